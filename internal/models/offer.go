package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType identifies how an offer's discount is computed.
type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixedAmount  DiscountType = "fixed_amount"
	DiscountFreeDelivery DiscountType = "free_delivery"
)

// AudienceAll matches every customer audience.
const AudienceAll = "all"

// Offer is a promotional rule. used_count <= usage_limit whenever a limit is
// set; the counter is only ever mutated by single guarded SQL statements.
type Offer struct {
	ID                int64            `json:"id" db:"id"`
	Code              string           `json:"code" db:"code"`
	DiscountType      DiscountType     `json:"discount_type" db:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value" db:"discount_value"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount,omitempty" db:"min_order_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty" db:"max_discount_amount"`
	UsageLimit        *int             `json:"usage_limit,omitempty" db:"usage_limit"`
	UsedCount         int              `json:"used_count" db:"used_count"`
	ValidFrom         time.Time        `json:"valid_from" db:"valid_from"`
	ValidUntil        time.Time        `json:"valid_until" db:"valid_until"`
	IsActive          bool             `json:"is_active" db:"is_active"`
	Audience          string           `json:"audience" db:"audience"`
}

// FreeDelivery reports whether the offer waives the delivery fee instead of
// discounting the order amount.
func (o *Offer) FreeDelivery() bool {
	return o.DiscountType == DiscountFreeDelivery
}
