package pricing

import (
	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/config"
	"restaurant-fulfillment/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Quote holds the priced fields of an order. Each field is rounded to two
// decimal places; total is derived from the rounded fields so that
// total == subtotal + tax + delivery_fee - discount holds exactly.
type Quote struct {
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// Calculator derives order totals from line items under the configured tax
// and delivery-fee policy. All arithmetic stays in decimal; rounding is
// applied only to the final per-field outputs, never to intermediate sums.
type Calculator struct {
	taxRatePercent        decimal.Decimal
	deliveryFee           decimal.Decimal
	freeDeliveryThreshold decimal.Decimal
}

// NewCalculator creates a calculator from the pricing policy.
func NewCalculator(cfg config.PricingConfig) *Calculator {
	return &Calculator{
		taxRatePercent:        cfg.TaxRatePercent,
		deliveryFee:           cfg.DeliveryFee,
		freeDeliveryThreshold: cfg.FreeDeliveryThreshold,
	}
}

// Subtotal sums quantity x unit price over the line items without rounding.
func (c *Calculator) Subtotal(items []models.OrderItem) (decimal.Decimal, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return decimal.Zero, models.ErrInvalidLineItem
		}
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal, nil
}

// Quote prices the order. discount is the combined offer and loyalty discount
// before capping; freeDelivery waives the delivery fee regardless of the
// subtotal threshold.
func (c *Calculator) Quote(items []models.OrderItem, discount decimal.Decimal, freeDelivery bool) (Quote, error) {
	subtotal, err := c.Subtotal(items)
	if err != nil {
		return Quote{}, err
	}

	tax := subtotal.Mul(c.taxRatePercent).Div(hundred)

	deliveryFee := decimal.Zero
	if !freeDelivery && subtotal.LessThan(c.freeDeliveryThreshold) {
		deliveryFee = c.deliveryFee
	}

	// The discount can never push the total below zero.
	gross := subtotal.Add(tax).Add(deliveryFee)
	if discount.GreaterThan(gross) {
		discount = gross
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	q := Quote{
		Subtotal:    subtotal.Round(2),
		Tax:         tax.Round(2),
		DeliveryFee: deliveryFee.Round(2),
		Discount:    discount.Round(2),
	}
	q.Total = q.Subtotal.Add(q.Tax).Add(q.DeliveryFee).Sub(q.Discount)

	return q, nil
}

// LineTotal computes the rounded line total for one snapshot item.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
