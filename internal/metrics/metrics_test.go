package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CartMutation("added")
	m.CartMutation("added")
	m.CartMutation("")
	m.Payment("stripe", "success")
	m.GatewayError("square", "card_declined")
	m.RefundRequest("accepted")
	m.ObserveCharge("stripe", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cartMutations.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cartMutations.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payments.WithLabelValues("stripe", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayErrors.WithLabelValues("square", "card_declined")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refundRequests.WithLabelValues("accepted")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestNilSafe(t *testing.T) {
	var m *Storefront
	assert.NotPanics(t, func() {
		m.CartMutation("added")
		m.Payment("stripe", "success")
		m.GatewayError("stripe", "unknown")
		m.RefundRequest("rejected")
		m.ObserveCharge("stripe", time.Second)
	})

	empty := New(nil)
	assert.NotPanics(t, func() { empty.CartMutation("added") })
}
