package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"restaurant-fulfillment/internal/logger"
	"restaurant-fulfillment/internal/models"
)

type confirmCall struct {
	number          string
	paymentIntentID *string
	paymentCaptured bool
}

type cancelCall struct {
	number        string
	reason        *string
	paymentFailed bool
}

type fakeOrders struct {
	confirms   []confirmCall
	cancels    []cancelCall
	confirmErr error
	cancelErr  error
}

func (f *fakeOrders) ConfirmOrder(_ context.Context, number, _ string, paymentIntentID *string, paymentCaptured bool, _ string) error {
	f.confirms = append(f.confirms, confirmCall{number, paymentIntentID, paymentCaptured})
	return f.confirmErr
}

func (f *fakeOrders) CancelOrder(_ context.Context, number string, reason *string, _ string, paymentFailed bool, _ string) error {
	f.cancels = append(f.cancels, cancelCall{number, reason, paymentFailed})
	return f.cancelErr
}

type fakeEventLog struct {
	recorded  map[string]bool
	forgotten []string
}

func newFakeEventLog() *fakeEventLog {
	return &fakeEventLog{recorded: make(map[string]bool)}
}

func (f *fakeEventLog) RecordEvent(_ context.Context, event *models.PaymentWebhookEvent) error {
	if f.recorded[event.ID] {
		return models.ErrDuplicateEvent
	}
	f.recorded[event.ID] = true
	return nil
}

func (f *fakeEventLog) ForgetEvent(_ context.Context, eventID string) error {
	delete(f.recorded, eventID)
	f.forgotten = append(f.forgotten, eventID)
	return nil
}

type fakePublisher struct {
	published []interface{}
}

func (f *fakePublisher) PublishNotification(_ context.Context, msg interface{}) error {
	f.published = append(f.published, msg)
	return nil
}

func newTestReconciler(orders *fakeOrders) (*Reconciler, *fakeEventLog, *fakePublisher) {
	events := newFakeEventLog()
	pub := &fakePublisher{}
	return NewReconciler(events, orders, pub, logger.New("payment-test"), "test-secret"), events, pub
}

func succeededEvent(id string) *models.PaymentWebhookEvent {
	return &models.PaymentWebhookEvent{
		ID:              id,
		Type:            models.EventPaymentSucceeded,
		OrderNumber:     "ORD_20260314_001",
		PaymentIntentID: "pi_123",
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","order_number":"ORD_20260314_001"}`)

	tests := []struct {
		name      string
		signature string
		wantErr   bool
	}{
		{"valid signature", Sign(secret, body), false},
		{"missing signature", "", true},
		{"wrong signature", "deadbeef", true},
		{"signature for different body", Sign(secret, []byte("other payload")), true},
		{"signature under wrong secret", Sign("other-secret", body), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(secret, body, tt.signature)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidSignature) {
					t.Errorf("expected ErrInvalidSignature, got %v", err)
				}
			} else if err != nil {
				t.Errorf("expected valid signature, got %v", err)
			}
		})
	}
}

func TestActionForEvent(t *testing.T) {
	tests := []struct {
		eventType string
		want      action
	}{
		{models.EventPaymentSucceeded, actionConfirm},
		{models.EventPaymentFailed, actionCancel},
		{models.EventPaymentCanceled, actionCancel},
		{models.EventPaymentRequiresAction, actionRequireAuth},
		{"charge.refund.updated", actionUnknown},
		{"", actionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			if got := actionForEvent(tt.eventType); got != tt.want {
				t.Errorf("actionForEvent(%q) = %v, want %v", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestWebhookEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   models.PaymentWebhookEvent
		wantErr bool
	}{
		{
			"valid",
			models.PaymentWebhookEvent{ID: "evt_1", Type: models.EventPaymentSucceeded, OrderNumber: "ORD_20260314_001"},
			false,
		},
		{"missing id", models.PaymentWebhookEvent{Type: models.EventPaymentSucceeded, OrderNumber: "ORD_20260314_001"}, true},
		{"missing type", models.PaymentWebhookEvent{ID: "evt_1", OrderNumber: "ORD_20260314_001"}, true},
		{"missing order number", models.PaymentWebhookEvent{ID: "evt_1", Type: models.EventPaymentSucceeded}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProcess_ReplayedSuccessConfirmsOnce(t *testing.T) {
	orders := &fakeOrders{}
	rc, _, _ := newTestReconciler(orders)
	ctx := context.Background()
	event := succeededEvent("evt_1")

	status, err := rc.Process(ctx, event, "req-1")
	if err != nil {
		t.Fatalf("first Process returned error: %v", err)
	}
	if status != "processed" {
		t.Errorf("first Process status = %q, want processed", status)
	}

	status, err = rc.Process(ctx, event, "req-2")
	if err != nil {
		t.Fatalf("replayed Process returned error: %v", err)
	}
	if status != "duplicate" {
		t.Errorf("replayed Process status = %q, want duplicate", status)
	}

	if len(orders.confirms) != 1 {
		t.Fatalf("ConfirmOrder called %d times, want 1", len(orders.confirms))
	}
	call := orders.confirms[0]
	if !call.paymentCaptured {
		t.Errorf("expected the success event to carry a payment capture")
	}
	if call.paymentIntentID == nil || *call.paymentIntentID != "pi_123" {
		t.Errorf("payment intent id not forwarded: %v", call.paymentIntentID)
	}
}

func TestProcess_FailedEventCancels(t *testing.T) {
	orders := &fakeOrders{}
	rc, _, _ := newTestReconciler(orders)

	event := &models.PaymentWebhookEvent{
		ID:          "evt_2",
		Type:        models.EventPaymentFailed,
		OrderNumber: "ORD_20260314_001",
	}
	status, err := rc.Process(context.Background(), event, "req-1")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if status != "processed" {
		t.Errorf("status = %q, want processed", status)
	}
	if len(orders.cancels) != 1 {
		t.Fatalf("CancelOrder called %d times, want 1", len(orders.cancels))
	}
	if !orders.cancels[0].paymentFailed {
		t.Errorf("expected cancellation to mark the payment as failed")
	}
}

func TestProcess_RequiresActionPublishesOnly(t *testing.T) {
	orders := &fakeOrders{}
	rc, _, pub := newTestReconciler(orders)

	event := &models.PaymentWebhookEvent{
		ID:              "evt_3",
		Type:            models.EventPaymentRequiresAction,
		OrderNumber:     "ORD_20260314_001",
		PaymentIntentID: "pi_123",
	}
	status, err := rc.Process(context.Background(), event, "req-1")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if status != "processed" {
		t.Errorf("status = %q, want processed", status)
	}
	if len(orders.confirms) != 0 || len(orders.cancels) != 0 {
		t.Errorf("requires_action must not touch order status")
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d notifications, want 1", len(pub.published))
	}
	if _, ok := pub.published[0].(*models.ActionRequiredMessage); !ok {
		t.Errorf("published %T, want *models.ActionRequiredMessage", pub.published[0])
	}
}

func TestProcess_UnknownOrderDropped(t *testing.T) {
	orders := &fakeOrders{confirmErr: models.ErrOrderNotFound}
	rc, events, _ := newTestReconciler(orders)

	event := succeededEvent("evt_4")
	status, err := rc.Process(context.Background(), event, "req-1")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if status != "dropped" {
		t.Errorf("status = %q, want dropped", status)
	}
	// The event stays recorded so the gateway's retries are acknowledged.
	if !events.recorded[event.ID] {
		t.Errorf("expected the dropped event to stay recorded")
	}
}

func TestProcess_TransientFailureReleasesKey(t *testing.T) {
	orders := &fakeOrders{confirmErr: errors.New("connection reset")}
	rc, events, _ := newTestReconciler(orders)
	ctx := context.Background()
	event := succeededEvent("evt_5")

	if _, err := rc.Process(ctx, event, "req-1"); err == nil {
		t.Fatalf("expected transient failure to surface")
	}
	if len(events.forgotten) != 1 || events.forgotten[0] != event.ID {
		t.Fatalf("expected the idempotency key to be released, forgotten = %v", events.forgotten)
	}

	// The gateway retries and the order service has recovered.
	orders.confirmErr = nil
	status, err := rc.Process(ctx, event, "req-2")
	if err != nil {
		t.Fatalf("retried Process returned error: %v", err)
	}
	if status != "processed" {
		t.Errorf("retried status = %q, want processed", status)
	}
}

func TestProcess_SuccessAfterStaffConfirmStillCarriesCapture(t *testing.T) {
	// Staff confirmed the order first; the gateway webhook lands later with a
	// fresh event id. The reconciler must still forward the capture so the
	// payment status and intent reach the order.
	orders := &fakeOrders{}
	rc, _, _ := newTestReconciler(orders)

	status, err := rc.Process(context.Background(), succeededEvent("evt_6"), "req-1")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if status != "processed" {
		t.Errorf("status = %q, want processed", status)
	}
	if len(orders.confirms) != 1 || !orders.confirms[0].paymentCaptured {
		t.Fatalf("expected exactly one capture-carrying confirmation, got %+v", orders.confirms)
	}
}

func TestHandleWebhook_EndToEnd(t *testing.T) {
	orders := &fakeOrders{}
	rc, _, _ := newTestReconciler(orders)

	body, err := json.Marshal(succeededEvent("evt_7"))
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("test-secret", body))
	w := httptest.NewRecorder()

	rc.HandleWebhook(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
	}
	if len(orders.confirms) != 1 {
		t.Errorf("ConfirmOrder called %d times, want 1", len(orders.confirms))
	}

	// Tampered body under the same signature is rejected before any effect.
	req = httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(append(body, ' ')))
	req.Header.Set(SignatureHeader, Sign("test-secret", body))
	w = httptest.NewRecorder()

	rc.HandleWebhook(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("tampered request status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if len(orders.confirms) != 1 {
		t.Errorf("rejected request must not reach the order service")
	}
}

func TestCancelReason(t *testing.T) {
	if got := cancelReason(models.EventPaymentCanceled); got != "payment canceled by gateway" {
		t.Errorf("unexpected reason for canceled event: %q", got)
	}
	if got := cancelReason(models.EventPaymentFailed); got != "payment failed" {
		t.Errorf("unexpected reason for failed event: %q", got)
	}
}
