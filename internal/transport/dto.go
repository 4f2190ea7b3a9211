package transport

import (
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Category string            `json:"category,omitempty"`
}

type Page[T any] struct {
	Data []T       `json:"data"`
	Meta util.Meta `json:"meta"`
}

type LineResponse struct {
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Quantity    uint            `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	AmountSaved decimal.Decimal `json:"amount_saved"`
}

type CouponResponse struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

type AddressResponse struct {
	StreetAddress    string `json:"street_address"`
	ApartmentAddress string `json:"apartment_address,omitempty"`
	Country          string `json:"country"`
	Zip              string `json:"zip,omitempty"`
	PaymentOption    string `json:"payment_option"`
	IsDefault        bool   `json:"is_default"`
}

type CartResponse struct {
	ID          uuid.UUID        `json:"id"`
	Status      string           `json:"status"`
	Items       []LineResponse   `json:"items"`
	ItemCount   uint             `json:"item_count"`
	AmountSaved decimal.Decimal  `json:"amount_saved"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	Coupon      *CouponResponse  `json:"coupon,omitempty"`
	Address     *AddressResponse `json:"address,omitempty"`
	Total       decimal.Decimal  `json:"total"`
}

// EmptyCart is what a user without an open order sees.
func EmptyCart() CartResponse {
	return CartResponse{
		Status:      string(models.StatusCart),
		Items:       []LineResponse{},
		AmountSaved: decimal.Zero,
		Subtotal:    decimal.Zero,
		Total:       decimal.Zero,
	}
}

func NewCart(o *models.Order) CartResponse {
	if o == nil {
		return EmptyCart()
	}
	resp := CartResponse{
		ID:          o.ID,
		Status:      string(o.Status),
		Items:       make([]LineResponse, 0, len(o.Items)),
		ItemCount:   o.ItemCount(),
		AmountSaved: decimal.Zero,
		Subtotal:    o.Subtotal(),
		Total:       o.Total(),
	}
	for _, line := range o.Items {
		lr := LineResponse{
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice(),
			LineTotal:   line.LineTotal(),
			AmountSaved: line.AmountSaved(),
		}
		if line.Item != nil {
			lr.Slug = line.Item.Slug
			lr.Title = line.Item.Title
		}
		resp.AmountSaved = resp.AmountSaved.Add(lr.AmountSaved)
		resp.Items = append(resp.Items, lr)
	}
	if o.Coupon != nil {
		resp.Coupon = &CouponResponse{Code: o.Coupon.Code, Amount: o.Coupon.Amount}
	}
	if o.Address != nil {
		resp.Address = &AddressResponse{
			StreetAddress:    o.Address.StreetAddress,
			ApartmentAddress: o.Address.ApartmentAddress,
			Country:          o.Address.Country,
			Zip:              o.Address.Zip,
			PaymentOption:    string(o.Address.PaymentOption),
			IsDefault:        o.Address.IsDefault,
		}
	}
	return resp
}

type CartMutationResponse struct {
	Outcome string       `json:"outcome"`
	Message string       `json:"message"`
	Cart    CartResponse `json:"cart"`
}

var outcomeMessages = map[models.CartOutcome]string{
	models.OutcomeAdded:       "this item was added to your cart",
	models.OutcomeIncremented: "this item quantity was updated",
	models.OutcomeDecremented: "this item quantity was updated",
	models.OutcomeRemoved:     "this item was removed from your cart",
	models.OutcomeNotInCart:   "this item was not in your cart",
}

func NewCartMutation(outcome models.CartOutcome, o *models.Order) CartMutationResponse {
	return CartMutationResponse{
		Outcome: string(outcome),
		Message: outcomeMessages[outcome],
		Cart:    NewCart(o),
	}
}

type PaymentSummary struct {
	Provider string          `json:"provider"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type OrderResponse struct {
	ID              uuid.UUID       `json:"id"`
	RefCode         string          `json:"ref_code"`
	Status          string          `json:"status"`
	Items           []LineResponse  `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Payment         *PaymentSummary `json:"payment,omitempty"`
	Received        bool            `json:"received"`
	RefundRequested bool            `json:"refund_requested"`
	RefundGranted   bool            `json:"refund_granted"`
	OrderedAt       *time.Time      `json:"ordered_at,omitempty"`
}

func NewOrder(o *models.Order) OrderResponse {
	cart := NewCart(o)
	resp := OrderResponse{
		ID:              o.ID,
		RefCode:         o.RefCode,
		Status:          string(o.Status),
		Items:           cart.Items,
		Total:           cart.Total,
		Received:        o.Received,
		RefundRequested: o.RefundRequested,
		RefundGranted:   o.RefundGranted,
		OrderedAt:       o.OrderedAt,
	}
	if o.Payment != nil {
		resp.Total = o.Payment.Amount
		resp.Payment = &PaymentSummary{
			Provider: string(o.Payment.Provider),
			Amount:   o.Payment.Amount,
			Currency: o.Payment.Currency,
		}
	}
	return resp
}

func NewOrders(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = NewOrder(&orders[i])
	}
	return out
}

type ItemResponse struct {
	ID            uuid.UUID        `json:"id"`
	Slug          string           `json:"slug"`
	Title         string           `json:"title"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	Category      string           `json:"category,omitempty"`
	Label         string           `json:"label,omitempty"`
	Description   string           `json:"description"`
	ImageURL      string           `json:"image_url,omitempty"`
	Rating        *RatingSummary   `json:"rating,omitempty"`
}

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

func NewItem(it *models.Item) ItemResponse {
	resp := ItemResponse{
		ID:          it.ID,
		Slug:        it.Slug,
		Title:       it.Title,
		Price:       it.Price,
		Label:       string(it.Label),
		Description: it.Description,
		ImageURL:    it.ImageURL,
	}
	if it.DiscountPrice.Valid {
		d := it.DiscountPrice.Decimal
		resp.DiscountPrice = &d
	}
	if it.Category != nil {
		resp.Category = it.Category.Slug
	}
	return resp
}

func NewItems(items []models.Item) []ItemResponse {
	out := make([]ItemResponse, len(items))
	for i := range items {
		out[i] = NewItem(&items[i])
	}
	return out
}

type RefundResponse struct {
	Message string `json:"message"`
}
