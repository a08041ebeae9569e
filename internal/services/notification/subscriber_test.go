package notification

import (
	"strings"
	"testing"
	"time"

	"restaurant-fulfillment/internal/models"
)

func TestFormatStatusChange(t *testing.T) {
	ts := time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)
	eta := ts.Add(45 * time.Minute)

	tests := []struct {
		name     string
		msg      *models.StatusChangedMessage
		contains string
	}{
		{
			"confirmed with eta",
			&models.StatusChangedMessage{OrderNumber: "ORD_20260314_001", NewStatus: models.StatusConfirmed, Timestamp: ts, EstimatedDeliveryAt: &eta},
			"Estimated delivery: 13:15",
		},
		{
			"preparing",
			&models.StatusChangedMessage{OrderNumber: "ORD_20260314_001", NewStatus: models.StatusPreparing, Timestamp: ts},
			"being prepared",
		},
		{
			"out for delivery",
			&models.StatusChangedMessage{OrderNumber: "ORD_20260314_001", NewStatus: models.StatusOutForDelivery, Timestamp: ts},
			"out for delivery",
		},
		{
			"delivered",
			&models.StatusChangedMessage{OrderNumber: "ORD_20260314_001", NewStatus: models.StatusDelivered, Timestamp: ts},
			"has been delivered",
		},
		{
			"cancelled",
			&models.StatusChangedMessage{OrderNumber: "ORD_20260314_001", NewStatus: models.StatusCancelled, Timestamp: ts},
			"has been cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatStatusChange(tt.msg)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("formatStatusChange() = %q, want substring %q", got, tt.contains)
			}
			if !strings.Contains(got, tt.msg.OrderNumber) {
				t.Errorf("formatStatusChange() = %q, missing order number", got)
			}
		})
	}
}
