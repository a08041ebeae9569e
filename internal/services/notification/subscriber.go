package notification

import (
	"context"
	"fmt"

	"restaurant-fulfillment/internal/logger"
	"restaurant-fulfillment/internal/messaging"
	"restaurant-fulfillment/internal/models"
)

// Subscriber consumes the notifications fanout queue and renders best-effort
// customer and kitchen notifications. Delivery is at most once: a failed
// message is logged and dropped, never retried, and the engine never waits
// for it.
type Subscriber struct {
	consumer *messaging.Consumer
	logger   *logger.Logger
}

// NewSubscriber creates a new notification subscriber
func NewSubscriber(consumer *messaging.Consumer, log *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
	}
}

// Start consumes until the context is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	return s.consumer.StartConsuming(ctx, s.handleNotification)
}

// handleNotification processes one fanout message, dispatching on its kind.
func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var envelope struct {
		Kind string `json:"kind"`
	}
	if err := messaging.ParseMessage(body, &envelope); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification message", requestID, err, nil)
		return fmt.Errorf("failed to parse notification: %w", err)
	}

	switch envelope.Kind {
	case models.KindStatusChanged:
		var msg models.StatusChangedMessage
		if err := messaging.ParseMessage(body, &msg); err != nil {
			return fmt.Errorf("failed to parse status change: %w", err)
		}
		s.displayStatusChange(&msg, requestID)
	case models.KindPaymentFailed:
		var msg models.PaymentFailedMessage
		if err := messaging.ParseMessage(body, &msg); err != nil {
			return fmt.Errorf("failed to parse payment failure: %w", err)
		}
		s.displayPaymentFailed(&msg, requestID)
	case models.KindActionRequired:
		var msg models.ActionRequiredMessage
		if err := messaging.ParseMessage(body, &msg); err != nil {
			return fmt.Errorf("failed to parse action required: %w", err)
		}
		s.displayActionRequired(&msg, requestID)
	default:
		s.logger.Debug("notification_ignored", fmt.Sprintf("Unknown notification kind %q", envelope.Kind), requestID, nil)
	}

	return nil
}

func (s *Subscriber) displayStatusChange(msg *models.StatusChangedMessage, requestID string) {
	fmt.Println(formatStatusChange(msg))

	s.logger.Info("notification_displayed", "Status change notification displayed", requestID, map[string]interface{}{
		"order_number": msg.OrderNumber,
		"old_status":   string(msg.OldStatus),
		"new_status":   string(msg.NewStatus),
		"changed_by":   msg.ChangedBy,
	})
}

func (s *Subscriber) displayPaymentFailed(msg *models.PaymentFailedMessage, requestID string) {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")
	fmt.Printf("[%s] Payment for order %s failed: %s. The order has been cancelled.\n",
		timestamp, msg.OrderNumber, msg.Reason)

	s.logger.Info("notification_displayed", "Payment failure notification displayed", requestID, map[string]interface{}{
		"order_number": msg.OrderNumber,
		"reason":       msg.Reason,
	})
}

func (s *Subscriber) displayActionRequired(msg *models.ActionRequiredMessage, requestID string) {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")
	fmt.Printf("[%s] Order %s needs additional payment authentication. Please complete verification with your bank.\n",
		timestamp, msg.OrderNumber)

	s.logger.Info("notification_displayed", "Action required notification displayed", requestID, map[string]interface{}{
		"order_number":      msg.OrderNumber,
		"payment_intent_id": msg.PaymentIntentID,
	})
}

// formatStatusChange creates a human-readable notification message.
func formatStatusChange(msg *models.StatusChangedMessage) string {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")

	switch msg.NewStatus {
	case models.StatusConfirmed:
		if msg.EstimatedDeliveryAt != nil {
			return fmt.Sprintf("[%s] Order %s is confirmed! Estimated delivery: %s",
				timestamp, msg.OrderNumber, msg.EstimatedDeliveryAt.Format("15:04"))
		}
		return fmt.Sprintf("[%s] Order %s is confirmed!", timestamp, msg.OrderNumber)
	case models.StatusPreparing:
		return fmt.Sprintf("[%s] Order %s is being prepared by the kitchen.", timestamp, msg.OrderNumber)
	case models.StatusReady:
		return fmt.Sprintf("[%s] Order %s is ready and waiting for a driver.", timestamp, msg.OrderNumber)
	case models.StatusOutForDelivery:
		return fmt.Sprintf("[%s] Order %s is out for delivery!", timestamp, msg.OrderNumber)
	case models.StatusDelivered:
		return fmt.Sprintf("[%s] Order %s has been delivered. Enjoy your meal!", timestamp, msg.OrderNumber)
	case models.StatusCancelled:
		return fmt.Sprintf("[%s] Order %s has been cancelled.", timestamp, msg.OrderNumber)
	default:
		return fmt.Sprintf("[%s] Order %s status changed from '%s' to '%s' by %s.",
			timestamp, msg.OrderNumber, msg.OldStatus, msg.NewStatus, msg.ChangedBy)
	}
}
