package offers

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/models"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	d := dec(t, s)
	return &d
}

func intPtr(n int) *int { return &n }

func baseOffer(t *testing.T) *models.Offer {
	now := time.Now().UTC()
	return &models.Offer{
		ID:            1,
		Code:          "SAVE10",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: dec(t, "10"),
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
		Audience:      models.AudienceAll,
	}
}

func TestValidate_FailureTaxonomy(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name     string
		mutate   func(*models.Offer)
		audience string
		amount   string
		wantErr  error
	}{
		{"nil offer", nil, "all", "400", models.ErrOfferNotFound},
		{"inactive", func(o *models.Offer) { o.IsActive = false }, "all", "400", models.ErrOfferExpired},
		{"not yet valid", func(o *models.Offer) { o.ValidFrom = now.Add(time.Hour) }, "all", "400", models.ErrOfferExpired},
		{"already expired", func(o *models.Offer) { o.ValidUntil = now.Add(-time.Hour) }, "all", "400", models.ErrOfferExpired},
		{"audience mismatch", func(o *models.Offer) { o.Audience = "vip" }, "regular", "400", models.ErrOfferAudienceMismatch},
		{"minimum not met", func(o *models.Offer) { o.MinOrderAmount = decPtr(t, "500") }, "all", "400", models.ErrMinimumOrderNotMet},
		{"usage limit reached", func(o *models.Offer) { o.UsageLimit = intPtr(1); o.UsedCount = 1 }, "all", "400", models.ErrUsageLimitReached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var offer *models.Offer
			if tt.mutate != nil {
				offer = baseOffer(t)
				tt.mutate(offer)
			}
			_, err := Validate(offer, dec(t, tt.amount), tt.audience, now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_DiscountComputation(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name   string
		mutate func(*models.Offer)
		amount string
		want   string
	}{
		{"percentage", nil, "400", "40"},
		{"percentage with cap", func(o *models.Offer) { o.MaxDiscountAmount = decPtr(t, "40") }, "600", "40"},
		{"fixed amount", func(o *models.Offer) {
			o.DiscountType = models.DiscountFixedAmount
			o.DiscountValue = dec(t, "25")
		}, "400", "25"},
		{"fixed amount clamped to order", func(o *models.Offer) {
			o.DiscountType = models.DiscountFixedAmount
			o.DiscountValue = dec(t, "9999")
		}, "400", "400"},
		{"free delivery grants no amount discount", func(o *models.Offer) {
			o.DiscountType = models.DiscountFreeDelivery
		}, "400", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := baseOffer(t)
			if tt.mutate != nil {
				tt.mutate(offer)
			}
			got, err := Validate(offer, dec(t, tt.amount), "all", now)
			if err != nil {
				t.Fatalf("Validate() returned error: %v", err)
			}
			if !got.Equal(dec(t, tt.want)) {
				t.Errorf("discount = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidate_VipAudienceMatches(t *testing.T) {
	offer := baseOffer(t)
	offer.Audience = "vip"

	if _, err := Validate(offer, dec(t, "400"), "vip", time.Now().UTC()); err != nil {
		t.Errorf("expected vip audience to match, got %v", err)
	}
}
