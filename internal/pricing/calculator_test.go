package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/config"
	"restaurant-fulfillment/internal/models"
)

func referencePolicy() config.PricingConfig {
	return config.PricingConfig{
		TaxRatePercent:        decimal.NewFromInt(18),
		DeliveryFee:           decimal.NewFromInt(50),
		FreeDeliveryThreshold: decimal.NewFromInt(500),
	}
}

func items(pairs ...[2]string) []models.OrderItem {
	var out []models.OrderItem
	for _, p := range pairs {
		price, _ := decimal.NewFromString(p[0])
		qty, _ := decimal.NewFromString(p[1])
		out = append(out, models.OrderItem{UnitPrice: price, Quantity: int(qty.IntPart())})
	}
	return out
}

func TestQuote_ReferenceScenario(t *testing.T) {
	// subtotal=400, tax 18% = 72, below the 500 threshold so fee=50, total=522.00
	calc := NewCalculator(referencePolicy())

	q, err := calc.Quote(items([2]string{"200", "2"}), decimal.Zero, false)
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"subtotal", q.Subtotal, "400.00"},
		{"tax", q.Tax, "72.00"},
		{"delivery_fee", q.DeliveryFee, "50.00"},
		{"discount", q.Discount, "0.00"},
		{"total", q.Total, "522.00"},
	}
	for _, c := range checks {
		want, _ := decimal.NewFromString(c.want)
		if !c.got.Equal(want) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestQuote_CappedOfferDiscount(t *testing.T) {
	// A 10%-off offer capped at 40 on the reference order lands at 482.00.
	calc := NewCalculator(referencePolicy())

	q, err := calc.Quote(items([2]string{"200", "2"}), decimal.NewFromInt(40), false)
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}

	want, _ := decimal.NewFromString("482.00")
	if !q.Total.Equal(want) {
		t.Errorf("total = %s, want %s", q.Total, want)
	}
}

func TestQuote_TotalIdentity(t *testing.T) {
	calc := NewCalculator(referencePolicy())

	tests := []struct {
		name         string
		items        []models.OrderItem
		discount     decimal.Decimal
		freeDelivery bool
	}{
		{"no discount", items([2]string{"133.33", "3"}), decimal.Zero, false},
		{"odd prices", items([2]string{"9.99", "7"}, [2]string{"0.05", "3"}), decimal.NewFromInt(5), false},
		{"free delivery", items([2]string{"120.50", "2"}), decimal.NewFromFloat(12.345), true},
		{"above threshold", items([2]string{"600", "1"}), decimal.Zero, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := calc.Quote(tt.items, tt.discount, tt.freeDelivery)
			if err != nil {
				t.Fatalf("Quote returned error: %v", err)
			}
			sum := q.Subtotal.Add(q.Tax).Add(q.DeliveryFee).Sub(q.Discount)
			if !q.Total.Equal(sum) {
				t.Errorf("total %s != subtotal+tax+fee-discount %s", q.Total, sum)
			}
		})
	}
}

func TestQuote_FreeDeliveryAboveThreshold(t *testing.T) {
	calc := NewCalculator(referencePolicy())

	q, err := calc.Quote(items([2]string{"500", "1"}), decimal.Zero, false)
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if !q.DeliveryFee.IsZero() {
		t.Errorf("expected zero delivery fee at the threshold, got %s", q.DeliveryFee)
	}
}

func TestQuote_DiscountNeverExceedsGross(t *testing.T) {
	calc := NewCalculator(referencePolicy())

	q, err := calc.Quote(items([2]string{"10", "1"}), decimal.NewFromInt(10000), false)
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if q.Total.IsNegative() {
		t.Errorf("total went negative: %s", q.Total)
	}
	if !q.Total.IsZero() {
		t.Errorf("expected fully discounted total of zero, got %s", q.Total)
	}
}

func TestQuote_InvalidQuantity(t *testing.T) {
	calc := NewCalculator(referencePolicy())

	bad := []models.OrderItem{{UnitPrice: decimal.NewFromInt(10), Quantity: 0}}
	if _, err := calc.Quote(bad, decimal.Zero, false); !errors.Is(err, models.ErrInvalidLineItem) {
		t.Errorf("expected ErrInvalidLineItem, got %v", err)
	}
}

func TestLineTotal(t *testing.T) {
	price, _ := decimal.NewFromString("9.99")
	want, _ := decimal.NewFromString("29.97")
	if got := LineTotal(price, 3); !got.Equal(want) {
		t.Errorf("LineTotal = %s, want %s", got, want)
	}
}
