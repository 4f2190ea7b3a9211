package service

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/lock"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/google/uuid"
)

type CartService struct {
	Repo    *repo.GormRepo
	Locks   lock.Locker
	Events  events.Publisher
	Metrics *metrics.Storefront
}

// CartResult is the outcome of a cart mutation plus the cart afterwards.
// Order is nil when the user has no open order.
type CartResult struct {
	Outcome models.CartOutcome
	Order   *models.Order
}

// GetCart returns the open order, or nil when the user has none.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.FindOpenOrder(ctx, userID)
	if errors.Is(err, repo.ErrNoOpenOrder) {
		return nil, nil
	}
	return order, err
}

func (s *CartService) ItemCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.Repo.ItemCount(ctx, userID)
}

// AddItem puts one unit of the item in the user's cart, opening a cart when
// there is none.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, slug string) (CartResult, error) {
	item, err := s.Repo.ItemBySlug(ctx, slug)
	if err != nil {
		return CartResult{}, fromRepo(err, "item")
	}

	var res CartResult
	err = withUserLock(ctx, s.Locks, userID, func() error {
		outcome, order, err := s.Repo.AddItem(ctx, userID, item.ID)
		if err != nil {
			return err
		}
		res = CartResult{Outcome: outcome, Order: order}
		return nil
	})
	if err != nil {
		return CartResult{}, fromRepo(err, "item")
	}

	s.recordMutation(ctx, userID, item.Slug, res)
	return res, nil
}

// RemoveItem drops the item's line. Absent items report OutcomeNotInCart.
func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, slug string) (CartResult, error) {
	return s.change(ctx, userID, slug, s.Repo.RemoveItem)
}

// DecrementItem removes one unit; the last unit removes the line.
func (s *CartService) DecrementItem(ctx context.Context, userID uuid.UUID, slug string) (CartResult, error) {
	return s.change(ctx, userID, slug, s.Repo.DecrementItem)
}

func (s *CartService) change(
	ctx context.Context,
	userID uuid.UUID,
	slug string,
	op func(context.Context, uuid.UUID, uuid.UUID) (models.CartOutcome, *models.Order, error),
) (CartResult, error) {
	item, err := s.Repo.ItemBySlug(ctx, slug)
	if err != nil {
		return CartResult{}, fromRepo(err, "item")
	}

	var res CartResult
	err = withUserLock(ctx, s.Locks, userID, func() error {
		outcome, order, err := op(ctx, userID, item.ID)
		if err != nil {
			return err
		}
		res = CartResult{Outcome: outcome, Order: order}
		return nil
	})
	if err != nil {
		return CartResult{}, fromRepo(err, "item")
	}

	s.recordMutation(ctx, userID, item.Slug, res)
	return res, nil
}

// AttachCoupon replaces any coupon on the open order.
func (s *CartService) AttachCoupon(ctx context.Context, userID uuid.UUID, req CouponRequest) (*models.Order, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	coupon, err := s.Repo.CouponByCode(ctx, req.Code)
	if err != nil {
		return nil, fromRepo(err, "this coupon")
	}

	var order *models.Order
	err = withUserLock(ctx, s.Locks, userID, func() error {
		var err error
		order, err = s.Repo.SetCoupon(ctx, userID, &coupon.ID)
		return err
	})
	if err != nil {
		return nil, fromRepo(err, "order")
	}
	s.Metrics.CartMutation("coupon_attached")
	return order, nil
}

func (s *CartService) DetachCoupon(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := withUserLock(ctx, s.Locks, userID, func() error {
		var err error
		order, err = s.Repo.SetCoupon(ctx, userID, nil)
		return err
	})
	if err != nil {
		return nil, fromRepo(err, "order")
	}
	s.Metrics.CartMutation("coupon_detached")
	return order, nil
}

func (s *CartService) recordMutation(ctx context.Context, userID uuid.UUID, slug string, res CartResult) {
	s.Metrics.CartMutation(string(res.Outcome))
	if res.Outcome == models.OutcomeNotInCart {
		return
	}
	var qty uint
	if res.Order != nil {
		for _, line := range res.Order.Items {
			if line.Item != nil && line.Item.Slug == slug {
				qty = line.Quantity
			}
		}
	}
	events.Emit(ctx, s.Events, events.TopicCart, userID.String(), events.CartEvent{
		Type:     "cart_" + string(res.Outcome),
		UserID:   userID.String(),
		ItemSlug: slug,
		Outcome:  string(res.Outcome),
		Quantity: qty,
	})
}
