package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Label string

const (
	LabelPrimary   Label = "primary"
	LabelSecondary Label = "secondary"
	LabelDanger    Label = "danger"
)

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"        json:"id"`
	Title       string    `gorm:"size:100;not null"           json:"title"`
	Slug        string    `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text"                   json:"description,omitempty"`
	Active      bool      `gorm:"not null;default:true"       json:"active"`
}

type Item struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"          json:"id"`
	Title         string              `gorm:"size:100;not null"             json:"title"`
	Slug          string              `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Price         decimal.Decimal     `gorm:"type:numeric(12,2);not null"   json:"price"`
	DiscountPrice decimal.NullDecimal `gorm:"type:numeric(12,2)"            json:"discount_price"`
	CategoryID    *uuid.UUID          `gorm:"type:uuid;index"               json:"category_id,omitempty"`
	Category      *Category           `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Label         Label               `gorm:"size:16"                       json:"label,omitempty"`
	Description   string              `gorm:"type:text"                     json:"description"`
	ImageURL      string              `gorm:"size:255"                      json:"image_url,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// EffectivePrice is the discount price when one is set, else the list price.
func (i Item) EffectivePrice() decimal.Decimal {
	if i.DiscountPrice.Valid {
		return i.DiscountPrice.Decimal
	}
	return i.Price
}

type Rating struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"                            json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_item" json:"user_id"`
	ItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_item" json:"item_id"`
	Stars  int       `gorm:"not null;check:stars BETWEEN 1 AND 5"           json:"stars"`
}

type WishlistEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                              json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_item" json:"user_id"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_item" json:"item_id"`
	Item      *Item     `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"     json:"item,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (w *WishlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

func (Category) TableName() string      { return "categories" }
func (Item) TableName() string          { return "items" }
func (Rating) TableName() string        { return "ratings" }
func (WishlistEntry) TableName() string { return "wishlist_entries" }
