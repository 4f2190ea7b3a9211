package payment

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Skotchmaster/storefront/internal/models"
	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSquarePayments struct {
	req  *sq.CreatePaymentRequest
	resp *sq.CreatePaymentResponse
	err  error
}

func (f *fakeSquarePayments) Create(_ context.Context, req *sq.CreatePaymentRequest, _ ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error) {
	f.req = req
	return f.resp, f.err
}

func strPtr(s string) *string { return &s }

func TestSquareChargeSuccess(t *testing.T) {
	fake := &fakeSquarePayments{resp: &sq.CreatePaymentResponse{Payment: &sq.Payment{ID: strPtr("pay_1"), Status: strPtr("COMPLETED")}}}
	s, err := NewSquare(SquareConfig{LocationID: "L1", payments: fake})
	require.NoError(t, err)

	res, err := s.Charge(context.Background(), ChargeRequest{
		AmountMinor:    1299,
		Currency:       "usd",
		CustomerToken:  "cnon:card-nonce-ok",
		Description:    "order",
		IdempotencyKey: "order-1",
		ReferenceID:    "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", res.ChargeID)
	assert.Equal(t, "COMPLETED", res.Status)

	require.NotNil(t, fake.req)
	assert.Equal(t, "order-1", fake.req.IdempotencyKey)
	assert.Equal(t, "cnon:card-nonce-ok", fake.req.SourceID)
	assert.Equal(t, "L1", *fake.req.LocationID)
	assert.EqualValues(t, 1299, *fake.req.AmountMoney.Amount)
	assert.Equal(t, sq.Currency("USD"), *fake.req.AmountMoney.Currency)
	assert.Equal(t, "1", *fake.req.ReferenceID)
}

func TestSquareFailedStatusIsDecline(t *testing.T) {
	fake := &fakeSquarePayments{resp: &sq.CreatePaymentResponse{Payment: &sq.Payment{ID: strPtr("pay_2"), Status: strPtr("FAILED")}}}
	s, err := NewSquare(SquareConfig{LocationID: "L1", payments: fake})
	require.NoError(t, err)

	_, err = s.Charge(context.Background(), ChargeRequest{AmountMinor: 100, Currency: "usd", CustomerToken: "cnon"})
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, CardDeclined, ge.Category)
	assert.Equal(t, models.PaymentSquare, ge.Provider)
}

func TestSquareErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		payload string
		want    Category
	}{
		{"card declined", http.StatusPaymentRequired, `{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"CARD_DECLINED","detail":"declined"}]}`, CardDeclined},
		{"rate limited", http.StatusTooManyRequests, `{"errors":[{"category":"RATE_LIMIT_ERROR","code":"RATE_LIMITED"}]}`, RateLimited},
		{"auth", http.StatusUnauthorized, `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`, AuthFailure},
		{"invalid", http.StatusBadRequest, `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"INVALID_VALUE"}]}`, InvalidRequest},
		{"status fallback", http.StatusTooManyRequests, `not json`, RateLimited},
		{"server", http.StatusInternalServerError, `{"errors":[{"category":"API_ERROR","code":"INTERNAL_SERVER_ERROR"}]}`, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeSquarePayments{err: sqcore.NewAPIError(tt.status, errors.New(tt.payload))}
			s, err := NewSquare(SquareConfig{LocationID: "L1", payments: fake})
			require.NoError(t, err)

			_, err = s.Charge(context.Background(), ChargeRequest{AmountMinor: 100, Currency: "usd", CustomerToken: "cnon"})
			ge, ok := AsGatewayError(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, ge.Category)
		})
	}
}

func TestNewSquareValidation(t *testing.T) {
	_, err := NewSquare(SquareConfig{AccessToken: "tok"})
	require.Error(t, err)

	_, err = NewSquare(SquareConfig{AccessToken: "tok", LocationID: "L1", Environment: "staging"})
	require.Error(t, err)

	s, err := NewSquare(SquareConfig{AccessToken: "tok", LocationID: "L1"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSquare, s.Provider())
}

func TestRegistry(t *testing.T) {
	st, err := NewStripe(StripeConfig{APIKey: "sk_test"})
	require.NoError(t, err)
	r := NewRegistry(st, nil)

	g, ok := r.Get(models.PaymentStripe)
	require.True(t, ok)
	assert.Equal(t, models.PaymentStripe, g.Provider())

	_, ok = r.Get(models.PaymentSquare)
	assert.False(t, ok)
	assert.Equal(t, []models.PaymentOption{models.PaymentStripe}, r.Options())
}
