package events

import "github.com/shopspring/decimal"

type CartEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"userID"`
	ItemSlug string `json:"itemSlug"`
	Outcome  string `json:"outcome"`
	Quantity uint   `json:"quantity"`
}

type OrderEvent struct {
	Type     string          `json:"type"`
	UserID   string          `json:"userID"`
	OrderID  string          `json:"orderID"`
	RefCode  string          `json:"refCode,omitempty"`
	Provider string          `json:"provider,omitempty"`
	ChargeID string          `json:"chargeID,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

type RefundEvent struct {
	Type    string `json:"type"`
	OrderID string `json:"orderID"`
	RefCode string `json:"refCode"`
}

type ItemEvent struct {
	Type   string          `json:"type"`
	ItemID string          `json:"itemID"`
	Slug   string          `json:"slug"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
}
