package offers

import (
	"time"

	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Validate checks an offer's eligibility against the order amount and
// audience at the given time, and computes the discount it grants.
//
// Validation never touches used_count: the increment happens exactly once,
// atomically, when the order is confirmed (see Repository.Redeem), so retried
// requests cannot double-count.
//
// Free-delivery offers return a zero discount here; the pricing calculator
// waives the delivery fee instead.
func Validate(offer *models.Offer, orderAmount decimal.Decimal, audience string, now time.Time) (decimal.Decimal, error) {
	if offer == nil {
		return decimal.Zero, models.ErrOfferNotFound
	}

	if !offer.IsActive || now.Before(offer.ValidFrom) || now.After(offer.ValidUntil) {
		return decimal.Zero, models.ErrOfferExpired
	}

	if offer.Audience != models.AudienceAll && offer.Audience != audience {
		return decimal.Zero, models.ErrOfferAudienceMismatch
	}

	if offer.MinOrderAmount != nil && orderAmount.LessThan(*offer.MinOrderAmount) {
		return decimal.Zero, models.ErrMinimumOrderNotMet
	}

	if offer.UsageLimit != nil && offer.UsedCount >= *offer.UsageLimit {
		return decimal.Zero, models.ErrUsageLimitReached
	}

	return computeDiscount(offer, orderAmount), nil
}

func computeDiscount(offer *models.Offer, orderAmount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch offer.DiscountType {
	case models.DiscountPercentage:
		discount = orderAmount.Mul(offer.DiscountValue).Div(hundred)
	case models.DiscountFixedAmount:
		discount = offer.DiscountValue
	case models.DiscountFreeDelivery:
		return decimal.Zero
	default:
		return decimal.Zero
	}

	if offer.MaxDiscountAmount != nil && discount.GreaterThan(*offer.MaxDiscountAmount) {
		discount = *offer.MaxDiscountAmount
	}
	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return discount
}
