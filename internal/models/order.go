package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                             json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_order_items_order_item" json:"order_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"                         json:"user_id"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_order_items_order_item" json:"item_id"`
	Item      *Item     `gorm:"foreignKey:ItemID;constraint:OnDelete:RESTRICT"   json:"item,omitempty"`
	Quantity  uint      `gorm:"not null;default:1;check:quantity > 0"            json:"quantity"`
	Ordered   bool      `gorm:"not null;default:false"                           json:"ordered"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is the cart while Ordered is false and a purchase afterwards.
// The partial unique index keeps one open order per user.
type Order struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey"                                                 json:"id"`
	UserID          uuid.UUID   `gorm:"type:uuid;not null;index;uniqueIndex:idx_orders_open_user,where:ordered = false" json:"user_id"`
	Ordered         bool        `gorm:"not null;default:false"                                               json:"ordered"`
	Status          OrderStatus `gorm:"size:24;not null;default:cart"                                        json:"status"`
	RefCode         string      `gorm:"size:20;uniqueIndex:idx_orders_ref_code,where:ref_code <> ''"         json:"ref_code,omitempty"`
	Items           []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"                       json:"items"`
	AddressID       *uuid.UUID  `gorm:"type:uuid"                                                            json:"address_id,omitempty"`
	Address         *Address    `gorm:"foreignKey:AddressID;constraint:OnDelete:SET NULL"                    json:"address,omitempty"`
	CouponID        *uuid.UUID  `gorm:"type:uuid"                                                            json:"coupon_id,omitempty"`
	Coupon          *Coupon     `gorm:"foreignKey:CouponID;constraint:OnDelete:SET NULL"                     json:"coupon,omitempty"`
	PaymentID       *uuid.UUID  `gorm:"type:uuid"                                                            json:"payment_id,omitempty"`
	Payment         *Payment    `gorm:"foreignKey:PaymentID;constraint:OnDelete:SET NULL"                    json:"payment,omitempty"`
	Received        bool        `gorm:"not null;default:false"                                               json:"received"`
	RefundRequested bool        `gorm:"not null;default:false"                                               json:"refund_requested"`
	RefundGranted   bool        `gorm:"not null;default:false"                                               json:"refund_granted"`
	StartedAt       time.Time   `gorm:"autoCreateTime"                                                       json:"started_at"`
	OrderedAt       *time.Time  `json:"ordered_at,omitempty"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = StatusCart
	}
	return nil
}

func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == uuid.Nil {
		oi.ID = uuid.New()
	}
	return nil
}

func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// UnitPrice needs Item preloaded; a missing item prices at zero.
func (oi OrderItem) UnitPrice() decimal.Decimal {
	if oi.Item == nil {
		return decimal.Zero
	}
	return oi.Item.EffectivePrice()
}

func (oi OrderItem) LineTotal() decimal.Decimal {
	return oi.UnitPrice().Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

func (oi OrderItem) AmountSaved() decimal.Decimal {
	if oi.Item == nil || !oi.Item.DiscountPrice.Valid {
		return decimal.Zero
	}
	return oi.Item.Price.Sub(oi.Item.DiscountPrice.Decimal).Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

func (o Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, oi := range o.Items {
		sum = sum.Add(oi.LineTotal())
	}
	return sum
}

// Total is the subtotal minus the coupon amount, never below zero.
func (o Order) Total() decimal.Decimal {
	total := o.Subtotal()
	if o.Coupon != nil {
		total = total.Sub(o.Coupon.Amount)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// AmountMinor is Total in minor currency units, rounded half away from zero.
func (o Order) AmountMinor() int64 {
	return o.Total().Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (o Order) ItemCount() uint {
	var n uint
	for _, oi := range o.Items {
		n += oi.Quantity
	}
	return n
}

func (o Order) FindItem(itemID uuid.UUID) (OrderItem, bool) {
	for _, oi := range o.Items {
		if oi.ItemID == itemID {
			return oi, true
		}
	}
	return OrderItem{}, false
}
