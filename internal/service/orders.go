package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/google/uuid"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

// ListOrders returns the user's finalized orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListFinalizedOrders(ctx, userID, offset, limit)
}

func (s *OrderService) GrantRefund(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GrantRefund(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err, "order")
	}
	events.Emit(ctx, s.Events, events.TopicRefund, order.ID.String(), events.RefundEvent{
		Type:    "refund_granted",
		OrderID: order.ID.String(),
		RefCode: order.RefCode,
	})
	return order, nil
}

func (s *OrderService) MarkReceived(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.MarkReceived(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err, "order")
	}
	events.Emit(ctx, s.Events, events.TopicOrder, order.UserID.String(), events.OrderEvent{
		Type:    "order_received",
		UserID:  order.UserID.String(),
		OrderID: order.ID.String(),
		RefCode: order.RefCode,
	})
	return order, nil
}
