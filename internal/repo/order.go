package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// openOrderRetries bounds the retry after losing the race to create a user's
// open order against the partial unique index.
const openOrderRetries = 3

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.created_at ASC") }).
		Preload("Items.Item").
		Preload("Address").
		Preload("Coupon").
		Preload("Payment")
}

func loadOrder(tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := preloadOrder(tx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// lockOpenOrder selects the user's open order FOR UPDATE.
func lockOpenOrder(tx *gorm.DB, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND ordered = ?", userID, false).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOpenOrder
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) withRetryOnUnique(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for range openOrderRetries {
		err = r.DB.WithContext(ctx).Transaction(fn)
		if !IsUniqueViolation(err) {
			return err
		}
	}
	return err
}

// FindOpenOrder returns the user's cart with items, address and coupon loaded.
func (r *GormRepo) FindOpenOrder(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := preloadOrder(r.DB.WithContext(ctx)).
		Where("user_id = ? AND ordered = ?", userID, false).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOpenOrder
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// AddItem creates the open order when needed and adds one unit of item.
func (r *GormRepo) AddItem(ctx context.Context, userID, itemID uuid.UUID) (models.CartOutcome, *models.Order, error) {
	var (
		outcome models.CartOutcome
		order   *models.Order
	)
	err := r.withRetryOnUnique(ctx, func(tx *gorm.DB) error {
		open, err := lockOpenOrder(tx, userID)
		if errors.Is(err, ErrNoOpenOrder) {
			open = &models.Order{UserID: userID, Status: models.StatusCart}
			err = tx.Omit(clause.Associations).Create(open).Error
		}
		if err != nil {
			return err
		}

		res := tx.Model(&models.OrderItem{}).
			Where("order_id = ? AND item_id = ?", open.ID, itemID).
			Update("quantity", gorm.Expr("quantity + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		outcome = models.OutcomeIncremented
		if res.RowsAffected == 0 {
			line := models.OrderItem{OrderID: open.ID, UserID: userID, ItemID: itemID, Quantity: 1}
			if err := tx.Omit(clause.Associations).Create(&line).Error; err != nil {
				return err
			}
			outcome = models.OutcomeAdded
		}

		order, err = loadOrder(tx, open.ID)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, order, nil
}

// RemoveItem deletes the item's line from the open order. A missing order or
// line yields OutcomeNotInCart with a nil error.
func (r *GormRepo) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (models.CartOutcome, *models.Order, error) {
	return r.changeLine(ctx, userID, itemID, false)
}

// DecrementItem removes one unit, dropping the line when it reaches zero.
func (r *GormRepo) DecrementItem(ctx context.Context, userID, itemID uuid.UUID) (models.CartOutcome, *models.Order, error) {
	return r.changeLine(ctx, userID, itemID, true)
}

func (r *GormRepo) changeLine(ctx context.Context, userID, itemID uuid.UUID, decrement bool) (models.CartOutcome, *models.Order, error) {
	outcome := models.OutcomeNotInCart
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := lockOpenOrder(tx, userID)
		if errors.Is(err, ErrNoOpenOrder) {
			return nil
		}
		if err != nil {
			return err
		}

		var line models.OrderItem
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND item_id = ?", open.ID, itemID).
			First(&line).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		case decrement && line.Quantity > 1:
			if err := tx.Model(&line).Update("quantity", gorm.Expr("quantity - 1")).Error; err != nil {
				return err
			}
			outcome = models.OutcomeDecremented
		default:
			if err := tx.Delete(&line).Error; err != nil {
				return err
			}
			outcome = models.OutcomeRemoved
		}

		order, err = loadOrder(tx, open.ID)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, order, nil
}

func (r *GormRepo) ItemCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.ordered = ?", userID, false).
		Select("COALESCE(SUM(order_items.quantity), 0)").
		Scan(&n).Error
	return n, err
}

// SetCoupon attaches couponID to the open order, or detaches when nil.
func (r *GormRepo) SetCoupon(ctx context.Context, userID uuid.UUID, couponID *uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := lockOpenOrder(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", open.ID).Update("coupon_id", couponID).Error; err != nil {
			return err
		}
		order, err = loadOrder(tx, open.ID)
		return err
	})
	return order, err
}

func transition(tx *gorm.DB, order *models.Order, to models.OrderStatus, extra map[string]any) error {
	if order.Status != to && !models.CanTransition(order.Status, to) {
		return ErrInvalidTransition
	}
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	return tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error
}

func hasLines(tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	var n int64
	if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", orderID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// StartCheckout moves a non-empty cart to awaiting_address. Orders already
// past that point are returned unchanged.
func (r *GormRepo) StartCheckout(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := lockOpenOrder(tx, userID)
		if err != nil {
			return err
		}
		ok, err := hasLines(tx, open.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEmptyCart
		}
		if open.Status == models.StatusCart {
			if err := transition(tx, open, models.StatusAwaitingAddress, nil); err != nil {
				return err
			}
		}
		order, err = loadOrder(tx, open.ID)
		return err
	})
	return order, err
}

// AttachAddress stores addr, or reuses the user's default when useDefault is
// set, and links it to the open order.
func (r *GormRepo) AttachAddress(ctx context.Context, userID uuid.UUID, addr *models.Address, useDefault bool) (*models.Order, error) {
	var order *models.Order
	err := r.withRetryOnUnique(ctx, func(tx *gorm.DB) error {
		open, err := lockOpenOrder(tx, userID)
		if err != nil {
			return err
		}

		var attached models.Address
		if useDefault {
			if err := tx.Where("user_id = ? AND is_default = ?", userID, true).First(&attached).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNoDefaultAddress
				}
				return err
			}
		} else {
			attached = *addr
			attached.ID = uuid.Nil
			attached.UserID = userID
			if attached.IsDefault {
				if err := tx.Model(&models.Address{}).
					Where("user_id = ? AND is_default = ?", userID, true).
					Update("is_default", false).Error; err != nil {
					return err
				}
			}
			if err := tx.Create(&attached).Error; err != nil {
				return err
			}
		}

		if err := transition(tx, open, models.StatusAwaitingAddress, map[string]any{"address_id": attached.ID}); err != nil {
			return err
		}
		order, err = loadOrder(tx, open.ID)
		return err
	})
	return order, err
}

func (r *GormRepo) DefaultAddress(ctx context.Context, userID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	if err := r.DB.WithContext(ctx).Where("user_id = ? AND is_default = ?", userID, true).First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

// BeginPayment moves an order with an address to awaiting_payment.
func (r *GormRepo) BeginPayment(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := lockOpenOrder(tx, userID)
		if err != nil {
			return err
		}
		if open.AddressID == nil {
			return ErrAddressRequired
		}
		if err := transition(tx, open, models.StatusAwaitingPayment, nil); err != nil {
			return err
		}
		order, err = loadOrder(tx, open.ID)
		return err
	})
	return order, err
}

type FinalizeParams struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	// AmountMinor is what the gateway charged; the order must still total it.
	AmountMinor int64
	Payment     models.Payment
	NewRefCode  func() (string, error)
}

// refCodeAttempts bounds regeneration when a fresh ref code is already taken.
const refCodeAttempts = 5

// FinalizeOrder records the payment and closes the order in one transaction.
func (r *GormRepo) FinalizeOrder(ctx context.Context, p FinalizeParams) (*models.Order, error) {
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := lockOpenOrder(tx, p.UserID)
		if err != nil {
			return err
		}
		if open.ID != p.OrderID {
			return ErrOrderChanged
		}
		if !models.CanTransition(open.Status, models.StatusFinalized) {
			return ErrInvalidTransition
		}

		current, err := loadOrder(tx, open.ID)
		if err != nil {
			return err
		}
		if current.AmountMinor() != p.AmountMinor {
			return ErrOrderChanged
		}

		code, err := freshRefCode(tx, p.NewRefCode)
		if err != nil {
			return err
		}

		payment := p.Payment
		payment.OrderID = open.ID
		payment.UserID = p.UserID
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", open.ID).Update("ordered", true).Error; err != nil {
			return err
		}

		now := tx.NowFunc()
		if err := transition(tx, open, models.StatusFinalized, map[string]any{
			"ordered":    true,
			"ref_code":   code,
			"payment_id": payment.ID,
			"ordered_at": now,
		}); err != nil {
			return err
		}

		order, err = loadOrder(tx, open.ID)
		return err
	})
	return order, err
}

func freshRefCode(tx *gorm.DB, gen func() (string, error)) (string, error) {
	for range refCodeAttempts {
		code, err := gen()
		if err != nil {
			return "", err
		}
		var n int64
		if err := tx.Model(&models.Order{}).Where("ref_code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique ref code")
}

func (r *GormRepo) ListFinalizedOrders(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ? AND ordered = ?", userID, true)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := preloadOrder(q).Order("ordered_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// RequestRefund flags a finalized order found by ref code and stores the
// request. Unknown codes and unfinalized orders both return gorm.ErrRecordNotFound.
func (r *GormRepo) RequestRefund(ctx context.Context, refCode string, refund *models.Refund) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("ref_code = ? AND ordered = ?", refCode, true).
			First(&order).Error
		if err != nil {
			return err
		}
		if err := transition(tx, &order, models.StatusRefundRequested, map[string]any{"refund_requested": true}); err != nil {
			return err
		}
		refund.OrderID = order.ID
		return tx.Omit(clause.Associations).Create(refund).Error
	})
}

// GrantRefund is the administrative RefundRequested -> RefundGranted step.
func (r *GormRepo) GrantRefund(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", orderID).First(&o).Error; err != nil {
			return err
		}
		if o.Status != models.StatusRefundRequested {
			return ErrInvalidTransition
		}
		if err := transition(tx, &o, models.StatusRefundGranted, map[string]any{
			"refund_requested": false,
			"refund_granted":   true,
		}); err != nil {
			return err
		}
		if err := tx.Model(&models.Refund{}).Where("order_id = ?", o.ID).Update("accepted", true).Error; err != nil {
			return err
		}
		var err error
		order, err = loadOrder(tx, o.ID)
		return err
	})
	return order, err
}

func (r *GormRepo) MarkReceived(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", orderID).First(&o).Error; err != nil {
			return err
		}
		if !o.Ordered {
			return ErrInvalidTransition
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Update("received", true).Error; err != nil {
			return err
		}
		var err error
		order, err = loadOrder(tx, o.ID)
		return err
	})
	return order, err
}
