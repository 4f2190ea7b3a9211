package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"
)

const (
	squareSandbox    = "sandbox"
	squareProduction = "production"
)

var squareBaseURLs = map[string]string{
	squareSandbox:    "https://connect.squareupsandbox.com",
	squareProduction: "https://connect.squareup.com",
}

type squarePaymentsAPI interface {
	Create(ctx context.Context, request *sq.CreatePaymentRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error)
}

type SquareConfig struct {
	AccessToken string
	Environment string
	LocationID  string
	payments    squarePaymentsAPI
}

// Square charges a Web Payments SDK source id (card nonce).
type Square struct {
	payments   squarePaymentsAPI
	locationID string
}

func NewSquare(cfg SquareConfig) (*Square, error) {
	location := strings.TrimSpace(cfg.LocationID)
	if location == "" {
		return nil, errors.New("square: location id is required")
	}
	if cfg.payments != nil {
		return &Square{payments: cfg.payments, locationID: location}, nil
	}

	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("square: access token is required")
	}
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if env == "" {
		env = squareSandbox
	}
	baseURL, ok := squareBaseURLs[env]
	if !ok {
		return nil, fmt.Errorf("square: environment must be %q or %q", squareSandbox, squareProduction)
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(token),
	)
	return &Square{payments: sdk.Payments, locationID: location}, nil
}

func (s *Square) Provider() models.PaymentOption { return models.PaymentSquare }

func (s *Square) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	l := logging.FromContext(ctx).With("gateway", "square", "reference_id", req.ReferenceID)

	currency := sq.Currency(strings.ToUpper(req.Currency))
	amount := req.AmountMinor
	body := &sq.CreatePaymentRequest{
		IdempotencyKey: req.IdempotencyKey,
		SourceID:       req.CustomerToken,
		LocationID:     &s.locationID,
		AmountMoney:    &sq.Money{Amount: &amount, Currency: &currency},
	}
	if note := strings.TrimSpace(req.Description); note != "" {
		body.Note = &note
	}
	if ref := strings.TrimSpace(req.ReferenceID); ref != "" {
		body.ReferenceID = &ref
	}

	resp, err := s.payments.Create(ctx, body)
	if err != nil {
		ge := mapSquareError(err)
		l.Warn("square_payment_failed", "category", ge.Category, "error", err)
		return ChargeResult{}, ge
	}

	p := resp.GetPayment()
	if p == nil || p.GetID() == nil {
		return ChargeResult{}, &GatewayError{Provider: models.PaymentSquare, Category: Unknown, Message: "empty payment in response"}
	}
	status := ""
	if p.GetStatus() != nil {
		status = *p.GetStatus()
	}
	switch status {
	case "FAILED", "CANCELED":
		return ChargeResult{}, &GatewayError{Provider: models.PaymentSquare, Category: CardDeclined, Message: "payment " + strings.ToLower(status)}
	}

	l.Info("square_payment_succeeded", "charge_id", *p.GetID(), "status", status, "amount", req.AmountMinor)
	return ChargeResult{ChargeID: *p.GetID(), Status: status}, nil
}

func mapSquareError(err error) *GatewayError {
	ge := &GatewayError{Provider: models.PaymentSquare, Err: err}

	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		ge.Category = transportCategory(err)
		return ge
	}

	ge.Category = categoryForStatus(apiErr.StatusCode)
	for _, sqErr := range extractSquareErrors(apiErr) {
		if sqErr == nil {
			continue
		}
		if sqErr.Detail != nil {
			ge.Message = *sqErr.Detail
		}
		switch sqErr.Category {
		case sq.ErrorCategoryPaymentMethodError:
			ge.Category = CardDeclined
		case sq.ErrorCategoryRateLimitError:
			ge.Category = RateLimited
		case sq.ErrorCategoryAuthenticationError:
			ge.Category = AuthFailure
		case sq.ErrorCategoryInvalidRequestError:
			ge.Category = InvalidRequest
		default:
			continue
		}
		break
	}
	return ge
}

func extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func categoryForStatus(status int) Category {
	switch status {
	case http.StatusPaymentRequired:
		return CardDeclined
	case http.StatusTooManyRequests:
		return RateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return AuthFailure
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return InvalidRequest
	}
	return Unknown
}
