package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AddressRequest fills or reuses the shipping address. When UseDefault is set
// the other fields are ignored.
type AddressRequest struct {
	StreetAddress    string `json:"street_address"    validate:"required_without=UseDefault,omitempty,max=100"`
	ApartmentAddress string `json:"apartment_address" validate:"omitempty,max=100"`
	Country          string `json:"country"           validate:"required_without=UseDefault,omitempty,iso3166_1_alpha2"`
	Zip              string `json:"zip"               validate:"omitempty,max=12"`
	PaymentOption    string `json:"payment_option"    validate:"required_without=UseDefault,omitempty,oneof=stripe square"`
	SaveAsDefault    bool   `json:"save_as_default"`
	UseDefault       bool   `json:"use_default"`
}

func (r *AddressRequest) normalize() {
	r.StreetAddress = strings.TrimSpace(r.StreetAddress)
	r.ApartmentAddress = strings.TrimSpace(r.ApartmentAddress)
	r.Country = strings.ToUpper(strings.TrimSpace(r.Country))
	r.Zip = strings.TrimSpace(r.Zip)
	r.PaymentOption = strings.ToLower(strings.TrimSpace(r.PaymentOption))
}

type CouponRequest struct {
	Code string `json:"code" validate:"required,max=15"`
}

type PaymentRequest struct {
	// Token is the card or source token produced by the provider's client SDK.
	Token string `json:"token" validate:"required,max=255"`
}

type RefundRequest struct {
	RefCode string `json:"ref_code" validate:"required,len=20,alphanum"`
	Email   string `json:"email"    validate:"required,email,max=254"`
	Reason  string `json:"reason"   validate:"required,max=2000"`
}

func (r *RefundRequest) normalize() {
	r.RefCode = strings.ToLower(strings.TrimSpace(r.RefCode))
	r.Email = strings.TrimSpace(r.Email)
	r.Reason = strings.TrimSpace(r.Reason)
}

type RatingRequest struct {
	Stars int `json:"stars" validate:"required,min=1,max=5"`
}

type CreateItemRequest struct {
	Title         string           `json:"title"          validate:"required,max=100"`
	Slug          string           `json:"slug"           validate:"required,max=120"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	CategorySlug  string           `json:"category"`
	Label         string           `json:"label"          validate:"omitempty,oneof=primary secondary danger"`
	Description   string           `json:"description"    validate:"required"`
	ImageURL      string           `json:"image_url"      validate:"omitempty,url,max=255"`
}
