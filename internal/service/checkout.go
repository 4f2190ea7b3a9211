package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/lock"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/refcode"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultCurrency = "usd"

type CheckoutService struct {
	Repo     *repo.GormRepo
	Locks    lock.Locker
	Gateways *payment.Registry
	Events   events.Publisher
	Metrics  *metrics.Storefront
	Currency string
	// NewRefCode defaults to refcode.New.
	NewRefCode func() (string, error)
}

// StartCheckout moves a non-empty cart to the address step.
func (s *CheckoutService) StartCheckout(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := withUserLock(ctx, s.Locks, userID, func() error {
		var err error
		order, err = s.Repo.StartCheckout(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fromRepo(err, "order")
	}
	return order, nil
}

func (s *CheckoutService) AttachAddress(ctx context.Context, userID uuid.UUID, req AddressRequest) (*models.Order, error) {
	req.normalize()
	if err := Validate(req); err != nil {
		return nil, err
	}

	var addr *models.Address
	if !req.UseDefault {
		addr = &models.Address{
			StreetAddress:    req.StreetAddress,
			ApartmentAddress: req.ApartmentAddress,
			Country:          req.Country,
			Zip:              req.Zip,
			PaymentOption:    models.PaymentOption(req.PaymentOption),
			IsDefault:        req.SaveAsDefault,
		}
	}

	var order *models.Order
	err := withUserLock(ctx, s.Locks, userID, func() error {
		var err error
		order, err = s.Repo.AttachAddress(ctx, userID, addr, req.UseDefault)
		return err
	})
	if err != nil {
		return nil, fromRepo(err, "order")
	}
	return order, nil
}

// BeginPayment moves an order that has an address to the payment step.
func (s *CheckoutService) BeginPayment(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := withUserLock(ctx, s.Locks, userID, func() error {
		var err error
		order, err = s.Repo.BeginPayment(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fromRepo(err, "order")
	}
	return order, nil
}

// PaymentSummary is what the payment step shows before the customer pays.
func (s *CheckoutService) PaymentSummary(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.FindOpenOrder(ctx, userID)
	if err != nil {
		return nil, fromRepo(err, "order")
	}
	if order.Address == nil {
		return nil, fromRepo(repo.ErrAddressRequired, "")
	}
	return order, nil
}

// Pay charges the open order through the gateway picked by its address and
// finalizes it. The order is untouched on every gateway failure.
func (s *CheckoutService) Pay(ctx context.Context, userID uuid.UUID, req PaymentRequest) (*models.Order, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	var order *models.Order
	err := withUserLock(ctx, s.Locks, userID, func() error {
		var err error
		order, err = s.pay(ctx, userID, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicOrder, userID.String(), events.OrderEvent{
		Type:     "order_finalized",
		UserID:   userID.String(),
		OrderID:  order.ID.String(),
		RefCode:  order.RefCode,
		Provider: string(order.Payment.Provider),
		ChargeID: order.Payment.ChargeID,
		Amount:   order.Payment.Amount,
	})
	return order, nil
}

func (s *CheckoutService) pay(ctx context.Context, userID uuid.UUID, req PaymentRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("user_id", userID.String())

	open, err := s.Repo.FindOpenOrder(ctx, userID)
	if err != nil {
		return nil, fromRepo(err, "order")
	}
	if open.Address == nil {
		return nil, fromRepo(repo.ErrAddressRequired, "")
	}
	if open.Status != models.StatusAwaitingPayment {
		return nil, fromRepo(repo.ErrInvalidTransition, "")
	}

	option := open.Address.PaymentOption
	gw, ok := s.Gateways.Get(option)
	if !ok {
		return nil, newError(ErrValidation, "payment option %q is not available", option)
	}

	amount := open.AmountMinor()
	if amount <= 0 {
		return nil, newError(ErrValidation, "order total must be greater than zero")
	}

	provider := string(gw.Provider())
	start := time.Now()
	res, err := gw.Charge(ctx, payment.ChargeRequest{
		AmountMinor:    amount,
		Currency:       s.currency(),
		CustomerToken:  req.Token,
		Description:    "order " + open.ID.String(),
		IdempotencyKey: idempotencyKey(open.ID, amount, req.Token),
		ReferenceID:    open.ID.String(),
	})
	s.Metrics.ObserveCharge(provider, time.Since(start))
	if err != nil {
		if ge, ok := payment.AsGatewayError(err); ok {
			s.Metrics.GatewayError(provider, string(ge.Category))
			s.Metrics.Payment(provider, "failed")
			return nil, ge
		}
		l.Error("charge_unhandled_error", "order_id", open.ID.String(), "provider", provider, "error", err)
		s.Metrics.Payment(provider, "error")
		return nil, &Error{Kind: ErrUnhandled, Msg: "something went wrong, you were not charged"}
	}

	finalized, err := s.Repo.FinalizeOrder(ctx, repo.FinalizeParams{
		OrderID:     open.ID,
		UserID:      userID,
		AmountMinor: amount,
		Payment: models.Payment{
			ChargeID: res.ChargeID,
			Provider: gw.Provider(),
			Amount:   decimal.New(amount, -2),
			Currency: s.currency(),
		},
		NewRefCode: s.refCodeFunc(),
	})
	if err != nil {
		l.Error("charge_not_recorded",
			"order_id", open.ID.String(),
			"provider", provider,
			"charge_id", res.ChargeID,
			"amount_minor", amount,
			"error", err,
		)
		s.Metrics.Payment(provider, "not_recorded")
		return nil, &Error{
			Kind: ErrNotRecorded,
			Msg:  "your payment was received but the order could not be completed, please contact support with reference " + res.ChargeID,
		}
	}

	s.Metrics.Payment(provider, "succeeded")
	l.Info("order_finalized", "order_id", finalized.ID.String(), "ref_code", finalized.RefCode, "charge_id", res.ChargeID)
	return finalized, nil
}

func (s *CheckoutService) currency() string {
	if s.Currency == "" {
		return defaultCurrency
	}
	return s.Currency
}

func (s *CheckoutService) refCodeFunc() func() (string, error) {
	if s.NewRefCode != nil {
		return s.NewRefCode
	}
	return refcode.New
}

// idempotencyKey is stable for a resubmission of the same token and amount,
// and changes when the customer retries with another card.
func idempotencyKey(orderID uuid.UUID, amount int64, token string) string {
	sum := sha256.Sum256([]byte(token + ":" + strconv.FormatInt(amount, 10)))
	return fmt.Sprintf("order-%s-%s", orderID, hex.EncodeToString(sum[:8]))
}
