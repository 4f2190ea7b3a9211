package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

type stripeCustomerAPI interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
}

type stripeChargeAPI interface {
	New(params *stripe.ChargeParams) (*stripe.Charge, error)
}

type stripeClients struct {
	customers stripeCustomerAPI
	charges   stripeChargeAPI
}

type StripeConfig struct {
	APIKey   string
	Backends *stripe.Backends
	clients  *stripeClients
}

// Stripe charges a card token by attaching it to a new customer and charging
// that customer.
type Stripe struct {
	api stripeClients
}

func NewStripe(cfg StripeConfig) (*Stripe, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients stripeClients
	if cfg.clients != nil {
		clients = *cfg.clients
	} else {
		sc := client.New(apiKey, cfg.Backends)
		clients = stripeClients{customers: sc.Customers, charges: sc.Charges}
	}
	if clients.customers == nil || clients.charges == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}
	return &Stripe{api: clients}, nil
}

func (s *Stripe) Provider() models.PaymentOption { return models.PaymentStripe }

func (s *Stripe) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	l := logging.FromContext(ctx).With("gateway", "stripe", "reference_id", req.ReferenceID)

	custParams := &stripe.CustomerParams{
		Source:      stripe.String(req.CustomerToken),
		Description: stripe.String(req.Description),
	}
	custParams.Context = ctx
	if req.IdempotencyKey != "" {
		custParams.SetIdempotencyKey(req.IdempotencyKey + "-customer")
	}
	customer, err := s.api.customers.New(custParams)
	if err != nil {
		ge := mapStripeError(err)
		l.Warn("stripe_customer_failed", "category", ge.Category, "error", err)
		return ChargeResult{}, ge
	}

	chargeParams := &stripe.ChargeParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Customer:    stripe.String(customer.ID),
		Description: stripe.String(req.Description),
	}
	chargeParams.Context = ctx
	if req.ReferenceID != "" {
		chargeParams.AddMetadata("order_id", req.ReferenceID)
	}
	if req.IdempotencyKey != "" {
		chargeParams.SetIdempotencyKey(req.IdempotencyKey + "-charge")
	}
	ch, err := s.api.charges.New(chargeParams)
	if err != nil {
		ge := mapStripeError(err)
		l.Warn("stripe_charge_failed", "category", ge.Category, "error", err)
		return ChargeResult{}, ge
	}
	if !ch.Paid || ch.Status == stripe.ChargeStatusFailed {
		return ChargeResult{}, &GatewayError{
			Provider: models.PaymentStripe,
			Category: CardDeclined,
			Message:  ch.FailureMessage,
		}
	}

	l.Info("stripe_charge_succeeded", "charge_id", ch.ID, "amount", req.AmountMinor)
	return ChargeResult{ChargeID: ch.ID, Status: string(ch.Status)}, nil
}

func mapStripeError(err error) *GatewayError {
	ge := &GatewayError{Provider: models.PaymentStripe, Err: err}

	var se *stripe.Error
	if !errors.As(err, &se) {
		ge.Category = transportCategory(err)
		return ge
	}

	ge.Message = se.Msg
	switch {
	case se.Type == stripe.ErrorTypeCard:
		ge.Category = CardDeclined
	case se.HTTPStatusCode == http.StatusTooManyRequests:
		ge.Category = RateLimited
	case se.HTTPStatusCode == http.StatusUnauthorized || se.HTTPStatusCode == http.StatusForbidden:
		ge.Category = AuthFailure
	case se.Type == stripe.ErrorTypeInvalidRequest || se.Type == stripe.ErrorTypeIdempotency:
		ge.Category = InvalidRequest
	default:
		ge.Category = Unknown
	}
	return ge
}
