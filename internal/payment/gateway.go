package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Category is the closed set of gateway failure kinds shown to customers.
type Category string

const (
	CardDeclined      Category = "card_declined"
	RateLimited       Category = "rate_limited"
	InvalidRequest    Category = "invalid_request"
	AuthFailure       Category = "auth_failure"
	ConnectionFailure Category = "connection_failure"
	Unknown           Category = "unknown"
)

type ChargeRequest struct {
	AmountMinor    int64
	Currency       string
	CustomerToken  string
	Description    string
	IdempotencyKey string
	ReferenceID    string
}

type ChargeResult struct {
	ChargeID string
	Status   string
}

type Gateway interface {
	Provider() models.PaymentOption
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

type GatewayError struct {
	Provider models.PaymentOption
	Category Category
	// Message is the provider's text, for logs only.
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s gateway: %s: %s", e.Provider, e.Category, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s gateway: %s: %v", e.Provider, e.Category, e.Err)
	}
	return fmt.Sprintf("%s gateway: %s", e.Provider, e.Category)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// transportCategory classifies errors that never reached the provider API.
func transportCategory(err error) Category {
	if errors.Is(err, context.DeadlineExceeded) {
		return ConnectionFailure
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ConnectionFailure
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ConnectionFailure
	}
	return Unknown
}

// Registry resolves the gateway for an address's payment option.
type Registry struct {
	gateways map[models.PaymentOption]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[models.PaymentOption]Gateway, len(gateways))}
	for _, g := range gateways {
		if g != nil {
			r.gateways[g.Provider()] = g
		}
	}
	return r
}

func (r *Registry) Get(opt models.PaymentOption) (Gateway, bool) {
	if r == nil {
		return nil, false
	}
	g, ok := r.gateways[opt]
	return g, ok
}

func (r *Registry) Options() []models.PaymentOption {
	if r == nil {
		return nil
	}
	out := make([]models.PaymentOption, 0, len(r.gateways))
	for opt := range r.gateways {
		out = append(out, opt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
