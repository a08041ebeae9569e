package payment

import (
	"context"
	"fmt"

	"restaurant-fulfillment/internal/database"
	"restaurant-fulfillment/internal/models"
)

// EventLog is the PostgreSQL-backed idempotency log for gateway events.
type EventLog struct {
	db *database.DB
}

// NewEventLog creates the event log.
func NewEventLog(db *database.DB) *EventLog {
	return &EventLog{db: db}
}

// RecordEvent inserts the event id; a previously recorded id fails with
// ErrDuplicateEvent.
func (l *EventLog) RecordEvent(ctx context.Context, event *models.PaymentWebhookEvent) error {
	tag, err := l.db.Pool.Exec(ctx, database.InsertPaymentEventSQL, event.ID, event.Type, event.OrderNumber)
	if err != nil {
		return fmt.Errorf("failed to record payment event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrDuplicateEvent
	}
	return nil
}

// ForgetEvent removes a recorded event id after a transient processing
// failure so redelivery is not swallowed by the idempotency check.
func (l *EventLog) ForgetEvent(ctx context.Context, eventID string) error {
	if err := l.db.Exec(ctx, database.DeletePaymentEventSQL, eventID); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
