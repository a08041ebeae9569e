package loyalty

import (
	"testing"

	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/config"
)

func testLedger() *Ledger {
	return NewLedger(nil, config.LoyaltyConfig{
		RedeemBlockPoints: 1000,
		RedeemBlockValue:  decimal.NewFromInt(50),
	})
}

func TestPlanRedemption(t *testing.T) {
	tests := []struct {
		name         string
		requested    int
		wantConsumed int
		wantDiscount string
	}{
		{"below one block", 500, 0, "0"},
		{"exactly one block", 1000, 1000, "50"},
		{"floors to nearest block", 2500, 2000, "100"},
		{"three blocks", 3000, 3000, "150"},
		{"zero", 0, 0, "0"},
	}

	l := testLedger()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			consumed, discount := l.PlanRedemption(tt.requested)
			if consumed != tt.wantConsumed {
				t.Errorf("consumed = %d, want %d", consumed, tt.wantConsumed)
			}
			want, _ := decimal.NewFromString(tt.wantDiscount)
			if !discount.Equal(want) {
				t.Errorf("discount = %s, want %s", discount, want)
			}
		})
	}
}

func TestPlanRedemption_FloorEqualsLowerBlock(t *testing.T) {
	// Redeeming 2500 grants exactly what redeeming 2000 grants.
	l := testLedger()

	consumedHigh, discountHigh := l.PlanRedemption(2500)
	consumedLow, discountLow := l.PlanRedemption(2000)

	if consumedHigh != consumedLow {
		t.Errorf("consumed(2500) = %d, consumed(2000) = %d", consumedHigh, consumedLow)
	}
	if !discountHigh.Equal(discountLow) {
		t.Errorf("discount(2500) = %s, discount(2000) = %s", discountHigh, discountLow)
	}
}
