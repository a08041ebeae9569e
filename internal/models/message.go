package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kinds discriminate messages sharing the notifications fanout queue.
const (
	KindStatusChanged  = "status_changed"
	KindPaymentFailed  = "payment_failed"
	KindActionRequired = "action_required"
)

// OrderCreatedMessage is published to the order events topic exchange so
// kitchen queues pick up new work.
type OrderCreatedMessage struct {
	OrderNumber  string          `json:"order_number"`
	CustomerID   int64           `json:"customer_id"`
	Items        []OrderItem     `json:"items"`
	Total        decimal.Decimal `json:"total"`
	KitchenNotes *string         `json:"kitchen_notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// StatusChangedMessage is published to the notifications fanout exchange on
// every order status transition.
type StatusChangedMessage struct {
	Kind                string      `json:"kind"`
	OrderNumber         string      `json:"order_number"`
	OldStatus           OrderStatus `json:"old_status"`
	NewStatus           OrderStatus `json:"new_status"`
	ChangedBy           string      `json:"changed_by"`
	Timestamp           time.Time   `json:"timestamp"`
	EstimatedDeliveryAt *time.Time  `json:"estimated_delivery_at,omitempty"`
}

// PaymentFailedMessage notifies the customer-facing layer that a payment
// failed and the order was cancelled.
type PaymentFailedMessage struct {
	Kind        string    `json:"kind"`
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// ActionRequiredMessage asks the customer-facing layer to request additional
// payment authentication. No order state changes.
type ActionRequiredMessage struct {
	Kind            string    `json:"kind"`
	OrderNumber     string    `json:"order_number"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewStatusChangedMessage builds a StatusChangedMessage stamped with the current time.
func NewStatusChangedMessage(orderNumber string, oldStatus, newStatus OrderStatus, changedBy string, estimatedDeliveryAt *time.Time) *StatusChangedMessage {
	return &StatusChangedMessage{
		Kind:                KindStatusChanged,
		OrderNumber:         orderNumber,
		OldStatus:           oldStatus,
		NewStatus:           newStatus,
		ChangedBy:           changedBy,
		Timestamp:           time.Now().UTC(),
		EstimatedDeliveryAt: estimatedDeliveryAt,
	}
}

// NewPaymentFailedMessage builds a PaymentFailedMessage stamped with the current time.
func NewPaymentFailedMessage(orderNumber, reason string) *PaymentFailedMessage {
	return &PaymentFailedMessage{
		Kind:        KindPaymentFailed,
		OrderNumber: orderNumber,
		Reason:      reason,
		Timestamp:   time.Now().UTC(),
	}
}

// NewActionRequiredMessage builds an ActionRequiredMessage stamped with the current time.
func NewActionRequiredMessage(orderNumber, paymentIntentID string) *ActionRequiredMessage {
	return &ActionRequiredMessage{
		Kind:            KindActionRequired,
		OrderNumber:     orderNumber,
		PaymentIntentID: paymentIntentID,
		Timestamp:       time.Now().UTC(),
	}
}
