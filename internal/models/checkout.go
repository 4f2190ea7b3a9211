package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentOption string

const (
	PaymentStripe PaymentOption = "stripe"
	PaymentSquare PaymentOption = "square"
)

func (p PaymentOption) Valid() bool {
	return p == PaymentStripe || p == PaymentSquare
}

// Address is a shipping snapshot plus the payment option chosen with it.
type Address struct {
	ID               uuid.UUID     `gorm:"type:uuid;primaryKey"                                                      json:"id"`
	UserID           uuid.UUID     `gorm:"type:uuid;not null;index;uniqueIndex:idx_addresses_default_user,where:is_default = true" json:"user_id"`
	StreetAddress    string        `gorm:"size:100;not null"                                                         json:"street_address"`
	ApartmentAddress string        `gorm:"size:100"                                                                  json:"apartment_address,omitempty"`
	Country          string        `gorm:"size:2;not null"                                                           json:"country"`
	Zip              string        `gorm:"size:12"                                                                   json:"zip,omitempty"`
	PaymentOption    PaymentOption `gorm:"size:16;not null"                                                          json:"payment_option"`
	IsDefault        bool          `gorm:"not null;default:false"                                                    json:"is_default"`
	CreatedAt        time.Time     `json:"created_at"`
}

type Coupon struct {
	ID     uuid.UUID       `gorm:"type:uuid;primaryKey"          json:"id"`
	Code   string          `gorm:"size:15;uniqueIndex;not null"  json:"code"`
	Amount decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"amount"`
}

// Payment records a captured charge. OrderID is unique so an order is paid once.
type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"         json:"id"`
	ChargeID  string          `gorm:"size:64;not null"             json:"charge_id"`
	Provider  PaymentOption   `gorm:"size:16;not null"             json:"provider"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index"     json:"user_id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"amount"`
	Currency  string          `gorm:"size:3;not null"              json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

type Refund struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                          json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index"                      json:"order_id"`
	Order     *Order    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
	Email     string    `gorm:"size:254;not null"                             json:"email"`
	Reason    string    `gorm:"type:text;not null"                            json:"reason"`
	Accepted  bool      `gorm:"not null;default:false"                        json:"accepted"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (r *Refund) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (Address) TableName() string { return "addresses" }
func (Coupon) TableName() string  { return "coupons" }
func (Payment) TableName() string { return "payments" }
func (Refund) TableName() string  { return "refunds" }

// All lists every table in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&Category{}, &Item{}, &Rating{}, &WishlistEntry{},
		&Address{}, &Coupon{}, &Payment{},
		&Order{}, &OrderItem{}, &Refund{},
	}
}
