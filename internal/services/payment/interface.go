package payment

import (
	"context"

	"restaurant-fulfillment/internal/models"
)

// OrderService is the slice of the order aggregate the reconciler drives.
type OrderService interface {
	ConfirmOrder(ctx context.Context, number, changedBy string, paymentIntentID *string, paymentCaptured bool, requestID string) error
	CancelOrder(ctx context.Context, number string, reason *string, changedBy string, paymentFailed bool, requestID string) error
}

// EventStore records processed gateway event ids. Recording a seen id fails
// with ErrDuplicateEvent; forgetting an id re-opens it for redelivery.
type EventStore interface {
	RecordEvent(ctx context.Context, event *models.PaymentWebhookEvent) error
	ForgetEvent(ctx context.Context, eventID string) error
}

// NotificationPublisher emits best-effort customer notifications.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg interface{}) error
}
