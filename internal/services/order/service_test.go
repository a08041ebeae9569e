package order

import (
	"testing"

	"restaurant-fulfillment/internal/models"
)

func TestLateCapture(t *testing.T) {
	tests := []struct {
		name          string
		paymentStatus models.PaymentStatus
		captured      bool
		want          bool
	}{
		{"capture after staff confirmation", models.PaymentPending, true, true},
		{"redelivered capture already recorded", models.PaymentCompleted, true, false},
		{"staff re-confirmation carries no capture", models.PaymentPending, false, false},
		{"capture after earlier failure", models.PaymentFailed, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &models.Order{
				Number:        "ORD_20260314_001",
				Status:        models.StatusConfirmed,
				PaymentStatus: tt.paymentStatus,
			}
			if got := lateCapture(o, tt.captured); got != tt.want {
				t.Errorf("lateCapture(%s, %v) = %v, want %v", tt.paymentStatus, tt.captured, got, tt.want)
			}
		})
	}
}

func TestDerefOr(t *testing.T) {
	reason := "customer request"
	empty := ""

	if got := derefOr(&reason, "fallback"); got != reason {
		t.Errorf("derefOr(&reason) = %q, want %q", got, reason)
	}
	if got := derefOr(nil, "fallback"); got != "fallback" {
		t.Errorf("derefOr(nil) = %q, want fallback", got)
	}
	if got := derefOr(&empty, "fallback"); got != "fallback" {
		t.Errorf("derefOr(&empty) = %q, want fallback", got)
	}
}
