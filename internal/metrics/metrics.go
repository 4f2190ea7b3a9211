package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront holds the business counters exported on /metrics.
// A nil *Storefront is valid and records nothing.
type Storefront struct {
	cartMutations  *prometheus.CounterVec
	payments       *prometheus.CounterVec
	gatewayErrors  *prometheus.CounterVec
	refundRequests *prometheus.CounterVec
	chargeLatency  *prometheus.HistogramVec
}

// New registers the storefront metrics on reg.
func New(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	m := &Storefront{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation.",
		}, []string{"op"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_payments_total",
			Help: "Payment attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		gatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_gateway_errors_total",
			Help: "Payment gateway failures by provider and category.",
		}, []string{"provider", "category"}),
		refundRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_refund_requests_total",
			Help: "Refund requests by outcome.",
		}, []string{"outcome"}),
		chargeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_gateway_charge_seconds",
			Help:    "Latency of gateway charge calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	reg.MustRegister(m.cartMutations, m.payments, m.gatewayErrors, m.refundRequests, m.chargeLatency)
	return m
}

func (m *Storefront) CartMutation(op string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *Storefront) Payment(provider, outcome string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

func (m *Storefront) GatewayError(provider, category string) {
	if m == nil || m.gatewayErrors == nil {
		return
	}
	m.gatewayErrors.WithLabelValues(normalizeLabel(provider), normalizeLabel(category)).Inc()
}

func (m *Storefront) RefundRequest(outcome string) {
	if m == nil || m.refundRequests == nil {
		return
	}
	m.refundRequests.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Storefront) ObserveCharge(provider string, d time.Duration) {
	if m == nil || m.chargeLatency == nil {
		return
	}
	m.chargeLatency.WithLabelValues(normalizeLabel(provider)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
