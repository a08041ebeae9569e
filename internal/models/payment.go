package models

// Gateway event types carried by signed webhook payloads. The PaymentIntent
// itself is gateway-owned; the engine only reacts to its terminal states.
const (
	EventPaymentSucceeded      = "payment_intent.succeeded"
	EventPaymentFailed         = "payment_intent.payment_failed"
	EventPaymentCanceled       = "payment_intent.canceled"
	EventPaymentRequiresAction = "payment_intent.requires_action"
)

// PaymentWebhookEvent is the decoded body of a gateway webhook call.
// The event id doubles as the idempotency key under redelivery.
type PaymentWebhookEvent struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	OrderNumber     string `json:"order_number"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// Validate checks the minimal shape of a webhook event.
func (e *PaymentWebhookEvent) Validate() error {
	if e.ID == "" {
		return NewValidationError("id", "is required")
	}
	if e.Type == "" {
		return NewValidationError("type", "is required")
	}
	if e.OrderNumber == "" {
		return NewValidationError("order_number", "is required")
	}
	return nil
}
