package models

import (
	"github.com/shopspring/decimal"
)

// RedemptionResult reports the outcome of a points redemption.
type RedemptionResult struct {
	DiscountGranted  decimal.Decimal `json:"discount_granted"`
	PointsConsumed   int             `json:"points_consumed"`
	RemainingBalance int             `json:"remaining_balance"`
}
