package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"restaurant-fulfillment/internal/logger"
	"restaurant-fulfillment/internal/models"
)

const maxWebhookBody = 64 * 1024

// action is what a gateway event does to the order.
type action int

const (
	actionUnknown action = iota
	actionConfirm
	actionCancel
	actionRequireAuth
)

// actionForEvent maps gateway event types onto order transitions.
func actionForEvent(eventType string) action {
	switch eventType {
	case models.EventPaymentSucceeded:
		return actionConfirm
	case models.EventPaymentFailed, models.EventPaymentCanceled:
		return actionCancel
	case models.EventPaymentRequiresAction:
		return actionRequireAuth
	default:
		return actionUnknown
	}
}

// cancelReason renders the recorded cancellation reason for a gateway event.
func cancelReason(eventType string) string {
	if eventType == models.EventPaymentCanceled {
		return "payment canceled by gateway"
	}
	return "payment failed"
}

// Reconciler aligns gateway payment state with order status. Webhook
// processing is idempotent under redelivery: the gateway event id is recorded
// before effects are applied, and a duplicate id is acknowledged without
// touching the order.
type Reconciler struct {
	events    EventStore
	orders    OrderService
	publisher NotificationPublisher
	logger    *logger.Logger
	secret    string
}

// NewReconciler creates the payment reconciler.
func NewReconciler(events EventStore, orders OrderService, publisher NotificationPublisher, log *logger.Logger, webhookSecret string) *Reconciler {
	return &Reconciler{
		events:    events,
		orders:    orders,
		publisher: publisher,
		logger:    log,
		secret:    webhookSecret,
	}
}

// HandleWebhook handles POST /webhooks/payment requests.
func (rc *Reconciler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		rc.writeError(w, http.StatusBadRequest, "failed to read body", requestID)
		return
	}

	if err := VerifySignature(rc.secret, body, r.Header.Get(SignatureHeader)); err != nil {
		rc.logger.Error("webhook_rejected", "Invalid webhook signature", requestID, err, map[string]interface{}{
			"remote_addr": r.RemoteAddr,
		})
		rc.writeError(w, http.StatusUnauthorized, models.ErrInvalidSignature.Error(), requestID)
		return
	}

	var event models.PaymentWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		rc.writeError(w, http.StatusBadRequest, "invalid event payload", requestID)
		return
	}
	if err := event.Validate(); err != nil {
		rc.writeError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	status, err := rc.Process(ctx, &event, requestID)
	if err != nil {
		rc.logger.Error("webhook_processing_failed", "Failed to process payment event", requestID, err, map[string]interface{}{
			"event_id":     event.ID,
			"event_type":   event.Type,
			"order_number": event.OrderNumber,
		})
		rc.writeError(w, http.StatusInternalServerError, "failed to process event", requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": status, "event_id": event.ID})
}

// Process applies one verified gateway event. Returns a short status for the
// gateway response body.
func (rc *Reconciler) Process(ctx context.Context, event *models.PaymentWebhookEvent, requestID string) (string, error) {
	act := actionForEvent(event.Type)
	if act == actionUnknown {
		rc.logger.Info("webhook_ignored", fmt.Sprintf("Ignoring event type %s", event.Type), requestID, map[string]interface{}{
			"event_id": event.ID,
		})
		return "ignored", nil
	}

	// Record the idempotency key before applying effects. A conflict means
	// this event was already processed: acknowledge and do nothing.
	if err := rc.events.RecordEvent(ctx, event); err != nil {
		if errors.Is(err, models.ErrDuplicateEvent) {
			rc.logger.Info("webhook_duplicate", "Duplicate event acknowledged", requestID, map[string]interface{}{
				"event_id": event.ID,
			})
			return "duplicate", nil
		}
		return "", err
	}

	if err := rc.apply(ctx, act, event, requestID); err != nil {
		switch {
		case errors.Is(err, models.ErrOrderNotFound):
			// Unknown order: log and drop so the gateway stops retrying.
			rc.logger.Error("webhook_order_unknown", "Event references unknown order", requestID, err, map[string]interface{}{
				"event_id":     event.ID,
				"order_number": event.OrderNumber,
			})
			return "dropped", nil
		case models.IsConflict(err):
			// The order already moved past this event (e.g. cancelled before
			// the success webhook landed). Recorded and acknowledged.
			rc.logger.Info("webhook_conflict", "Event conflicts with current order state", requestID, map[string]interface{}{
				"event_id":     event.ID,
				"order_number": event.OrderNumber,
			})
			return "conflict", nil
		default:
			// Transient failure: forget the idempotency key so the gateway's
			// retry can take effect.
			if forgetErr := rc.events.ForgetEvent(ctx, event.ID); forgetErr != nil {
				rc.logger.Error("webhook_cleanup_failed", "Failed to release idempotency key", requestID, forgetErr, map[string]interface{}{
					"event_id": event.ID,
				})
			}
			return "", err
		}
	}

	return "processed", nil
}

func (rc *Reconciler) apply(ctx context.Context, act action, event *models.PaymentWebhookEvent, requestID string) error {
	switch act {
	case actionConfirm:
		intentID := event.PaymentIntentID
		return rc.orders.ConfirmOrder(ctx, event.OrderNumber, "payment-gateway", &intentID, true, requestID)
	case actionCancel:
		reason := cancelReason(event.Type)
		return rc.orders.CancelOrder(ctx, event.OrderNumber, &reason, "payment-gateway", true, requestID)
	case actionRequireAuth:
		// No order-status change; the customer-facing layer picks this up.
		msg := models.NewActionRequiredMessage(event.OrderNumber, event.PaymentIntentID)
		if err := rc.publisher.PublishNotification(ctx, msg); err != nil {
			rc.logger.Error("notification_publish_failed", "Failed to publish action required", requestID, err, map[string]interface{}{
				"order_number": event.OrderNumber,
			})
		}
		return nil
	}
	return nil
}

func (rc *Reconciler) writeError(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error":      message,
		"request_id": requestID,
	})
}
