package service

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"gorm.io/gorm"
)

type RefundService struct {
	Repo    *repo.GormRepo
	Events  events.Publisher
	Metrics *metrics.Storefront
}

// RequestRefund flags the finalized order with the given ref code. Unknown
// codes and orders that were never paid get the same answer.
func (s *RefundService) RequestRefund(ctx context.Context, req RefundRequest) (*models.Refund, error) {
	req.normalize()
	if err := Validate(req); err != nil {
		s.Metrics.RefundRequest("invalid")
		return nil, err
	}

	refund := &models.Refund{Email: req.Email, Reason: req.Reason}
	err := s.Repo.RequestRefund(ctx, req.RefCode, refund)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.Metrics.RefundRequest("not_found")
		return nil, newError(ErrNotFound, "order does not exist")
	case errors.Is(err, repo.ErrInvalidTransition):
		s.Metrics.RefundRequest("rejected")
		return nil, newError(ErrConflict, "a refund was already granted for this order")
	case err != nil:
		return nil, err
	}

	s.Metrics.RefundRequest("accepted")
	events.Emit(ctx, s.Events, events.TopicRefund, refund.OrderID.String(), events.RefundEvent{
		Type:    "refund_requested",
		OrderID: refund.OrderID.String(),
		RefCode: req.RefCode,
	})
	return refund, nil
}
