package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/catalog"
	"restaurant-fulfillment/internal/database"
	"restaurant-fulfillment/internal/logger"
	"restaurant-fulfillment/internal/loyalty"
	"restaurant-fulfillment/internal/messaging"
	"restaurant-fulfillment/internal/models"
	"restaurant-fulfillment/internal/offers"
	"restaurant-fulfillment/internal/pricing"
)

const (
	// Time the kitchen gets before the promised delivery.
	estimatedPrepTime = 45 * time.Minute

	// Order-number collisions under concurrent creates surface as unique
	// violations; the insert is retried with a fresh sequence number.
	maxNumberRetries = 3

	changedBySystem = "order-service"
)

// Service is the order aggregate: it owns order creation, the delivery-status
// state machine, offer redemption and the loyalty award. Every multi-step
// invariant runs inside a single database transaction; every status change
// appends to the audit trail and emits a best-effort event.
type Service struct {
	db        *database.DB
	repo      *Repository
	catalog   *catalog.Repository
	offers    *offers.Repository
	ledger    *loyalty.Ledger
	calc      *pricing.Calculator
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewService wires the order aggregate.
func NewService(db *database.DB, repo *Repository, cat *catalog.Repository, offerRepo *offers.Repository,
	ledger *loyalty.Ledger, calc *pricing.Calculator, publisher *messaging.Publisher, log *logger.Logger) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		catalog:   cat,
		offers:    offerRepo,
		ledger:    ledger,
		calc:      calc,
		publisher: publisher,
		logger:    log,
	}
}

// CreateOrder validates the request, snapshots catalog prices, prices the
// order (offer and loyalty discounts included) and persists the aggregate in
// one transaction. The loyalty debit joins that transaction so a crash cannot
// leave the ledger and the order total inconsistent.
func (s *Service) CreateOrder(ctx context.Context, req *models.CreateOrderRequest, requestID string) (*models.CreateOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	addr, err := s.catalog.GetDeliveryAddress(ctx, req.DeliveryAddressID)
	if err != nil {
		return nil, err
	}
	if addr.CustomerID != req.CustomerID {
		return nil, models.NewValidationError("delivery_address_id", "address does not belong to customer %d", req.CustomerID)
	}

	items, err := s.snapshotItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal, err := s.calc.Subtotal(items)
	if err != nil {
		return nil, err
	}

	// Offer validation reads the counter but never increments it; the
	// increment is taken at confirmation.
	var offer *models.Offer
	offerDiscount := decimal.Zero
	if req.OfferCode != nil {
		offer, err = s.offers.GetByCode(ctx, *req.OfferCode)
		if err != nil {
			return nil, err
		}
		audience := req.Audience
		if audience == "" {
			audience = models.AudienceAll
		}
		offerDiscount, err = offers.Validate(offer, subtotal, audience, time.Now().UTC())
		if err != nil {
			return nil, err
		}
	}

	plannedPoints, loyaltyDiscount := s.ledger.PlanRedemption(req.RedeemPoints)

	freeDelivery := offer != nil && offer.FreeDelivery()
	quote, err := s.calc.Quote(items, offerDiscount.Add(loyaltyDiscount), freeDelivery)
	if err != nil {
		return nil, err
	}

	o := &models.Order{
		CustomerID:        req.CustomerID,
		DeliveryAddressID: req.DeliveryAddressID,
		Items:             items,
		Subtotal:          quote.Subtotal,
		Tax:               quote.Tax,
		DeliveryFee:       quote.DeliveryFee,
		Discount:          quote.Discount,
		Total:             quote.Total,
		Status:            models.StatusPending,
		PaymentStatus:     models.PaymentPending,
		RedeemedPoints:    plannedPoints,
		LoyaltyDiscount:   loyaltyDiscount.Round(2),
		CustomerNotes:     req.CustomerNotes,
		KitchenNotes:      req.KitchenNotes,
	}
	if offer != nil {
		o.OfferID = &offer.ID
	}

	var remainingPoints *int
	err = s.withRetries(ctx, func(ctx context.Context) error {
		tx, err := s.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		count, err := s.repo.DailyOrderCount(ctx, tx)
		if err != nil {
			return err
		}
		o.Number = models.GenerateOrderNumber(time.Now().UTC(), count+1)

		if err := s.repo.InsertOrder(ctx, tx, o); err != nil {
			return err
		}
		if err := s.repo.InsertOrderItems(ctx, tx, o.ID, o.Items); err != nil {
			return err
		}
		if err := s.repo.AppendStatusLog(ctx, tx, o.ID, models.StatusPending, changedBySystem, nil); err != nil {
			return err
		}

		// Debit the ledger after the order row is in place, inside the same
		// transaction.
		if req.RedeemPoints > 0 {
			result, err := s.ledger.Redeem(ctx, tx, req.CustomerID, req.RedeemPoints)
			if err != nil {
				return err
			}
			remainingPoints = &result.RemainingBalance
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_created", fmt.Sprintf("Order %s created", o.Number), requestID, map[string]interface{}{
		"order_number": o.Number,
		"customer_id":  o.CustomerID,
		"total":        o.Total.String(),
	})

	s.publishOrderCreated(ctx, o, requestID)

	return &models.CreateOrderResponse{
		OrderNumber:     o.Number,
		Status:          o.Status,
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		DeliveryFee:     o.DeliveryFee,
		Discount:        o.Discount,
		Total:           o.Total,
		RemainingPoints: remainingPoints,
	}, nil
}

// ConfirmOrder moves pending -> confirmed. Confirming an already-confirmed
// order is a no-op. When paymentCaptured is true the payment status moves to
// completed; staff confirmation for cash-on-delivery leaves it pending. The
// offer usage increment happens here, atomically with the confirmation.
func (s *Service) ConfirmOrder(ctx context.Context, number, changedBy string, paymentIntentID *string, paymentCaptured bool, requestID string) error {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return err
	}

	if o.Status == models.StatusConfirmed {
		// Idempotent on the status, but a capture arriving after a staff
		// confirmation still has to reach the payment fields.
		return s.recordLateCapture(ctx, o, paymentIntentID, paymentCaptured, requestID)
	}
	if o.Status != models.StatusPending {
		return fmt.Errorf("cannot confirm order in status %s: %w", o.Status, models.ErrInvalidTransition)
	}

	paymentStatus := o.PaymentStatus
	if paymentCaptured {
		paymentStatus = models.PaymentCompleted
	}
	estimatedAt := time.Now().UTC().Add(estimatedPrepTime)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	offerRedeemed := false
	if o.OfferID != nil && !o.OfferRedeemed {
		if err := s.offers.Redeem(ctx, tx, *o.OfferID); err != nil {
			return err
		}
		offerRedeemed = true
	}

	ok, err := s.repo.Confirm(ctx, tx, o.ID, paymentStatus, paymentIntentID, estimatedAt, offerRedeemed)
	if err != nil {
		return err
	}
	if !ok {
		// A concurrent writer moved the order first. Re-read to distinguish
		// a duplicate confirmation from a genuine conflict.
		current, err := s.repo.GetByNumber(ctx, number)
		if err != nil {
			return err
		}
		if current.Status == models.StatusConfirmed {
			return s.recordLateCapture(ctx, current, paymentIntentID, paymentCaptured, requestID)
		}
		return models.ErrStaleStatus
	}

	if err := s.repo.AppendStatusLog(ctx, tx, o.ID, models.StatusConfirmed, changedBy, nil); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit confirmation: %w", err)
	}

	s.logger.Info("order_confirmed", fmt.Sprintf("Order %s confirmed", number), requestID, map[string]interface{}{
		"order_number":   number,
		"payment_status": string(paymentStatus),
	})

	s.publishStatusChange(ctx, number, o.Status, models.StatusConfirmed, changedBy, &estimatedAt, requestID)
	return nil
}

// lateCapture reports whether a confirmation request carries a payment
// capture the already-confirmed order has not recorded yet. Staff can confirm
// a cash-on-delivery order before the gateway's success webhook lands; the
// webhook must not be swallowed by the idempotent status check.
func lateCapture(o *models.Order, paymentCaptured bool) bool {
	return paymentCaptured && o.PaymentStatus != models.PaymentCompleted
}

// recordLateCapture writes the capture onto an already-confirmed order.
func (s *Service) recordLateCapture(ctx context.Context, o *models.Order, paymentIntentID *string, paymentCaptured bool, requestID string) error {
	if !lateCapture(o, paymentCaptured) {
		return nil
	}

	ok, err := s.repo.RecordPaymentCapture(ctx, s.db.Pool, o.ID, models.PaymentCompleted, paymentIntentID)
	if err != nil {
		return err
	}
	if ok {
		s.logger.Info("payment_capture_recorded", fmt.Sprintf("Order %s payment captured after confirmation", o.Number), requestID, map[string]interface{}{
			"order_number":   o.Number,
			"payment_status": string(models.PaymentCompleted),
		})
	}
	return nil
}

// AdvanceStatus performs one strictly sequential staff-driven transition.
// Reaching delivered stamps the actual delivery time and awards loyalty
// points exactly once.
func (s *Service) AdvanceStatus(ctx context.Context, number string, target models.OrderStatus, changedBy string, notes *string, requestID string) error {
	if !models.ValidStatus(target) {
		return models.NewValidationError("status", "unknown status %q", string(target))
	}
	if changedBy == "" {
		changedBy = changedBySystem
	}

	// Staff confirmation (cash on delivery) routes through ConfirmOrder so
	// the offer increment stays tied to confirmation.
	if target == models.StatusConfirmed {
		return s.ConfirmOrder(ctx, number, changedBy, nil, false, requestID)
	}

	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return err
	}

	if !models.CanAdvance(o.Status, target) {
		return fmt.Errorf("cannot advance %s from %s to %s: %w", number, o.Status, target, models.ErrInvalidTransition)
	}

	if target == models.StatusDelivered {
		return s.deliver(ctx, o, changedBy, notes, requestID)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ok, err := s.repo.TransitionStatus(ctx, tx, o.ID, target, o.Status)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrStaleStatus
	}
	if err := s.repo.AppendStatusLog(ctx, tx, o.ID, target, changedBy, notes); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}

	s.logger.Info("status_advanced", fmt.Sprintf("Order %s moved to %s", number, target), requestID, map[string]interface{}{
		"order_number": number,
		"old_status":   string(o.Status),
		"new_status":   string(target),
	})

	s.publishStatusChange(ctx, number, o.Status, target, changedBy, o.EstimatedDeliveryAt, requestID)
	return nil
}

// deliver completes the order: delivery timestamp, audit entry and the
// exactly-once loyalty award, all in one transaction. The award is guarded by
// the points_awarded flag, not by re-deriving from status, so retries that
// lose the status race cannot double-award.
func (s *Service) deliver(ctx context.Context, o *models.Order, changedBy string, notes *string, requestID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ok, err := s.repo.Deliver(ctx, tx, o.ID)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrStaleStatus
	}
	if err := s.repo.AppendStatusLog(ctx, tx, o.ID, models.StatusDelivered, changedBy, notes); err != nil {
		return err
	}

	awarded, err := s.repo.MarkPointsAwarded(ctx, tx, o.ID)
	if err != nil {
		return err
	}
	if awarded {
		if _, err := s.ledger.Award(ctx, tx, o.CustomerID, o.Total); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delivery: %w", err)
	}

	s.logger.Info("order_delivered", fmt.Sprintf("Order %s delivered", o.Number), requestID, map[string]interface{}{
		"order_number":   o.Number,
		"points_awarded": awarded,
	})

	s.publishStatusChange(ctx, o.Number, o.Status, models.StatusDelivered, changedBy, nil, requestID)
	return nil
}

// CancelOrder cancels a pending or confirmed order. A confirmed order's offer
// usage increment is released; loyalty points are never reversed because none
// are awarded before delivery. paymentFailed marks the payment as failed and
// emits a payment-failure notification.
func (s *Service) CancelOrder(ctx context.Context, number string, reason *string, changedBy string, paymentFailed bool, requestID string) error {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return err
	}

	if !models.CanCancel(o.Status) {
		return fmt.Errorf("cannot cancel order in status %s: %w", o.Status, models.ErrInvalidTransition)
	}
	if changedBy == "" {
		changedBy = changedBySystem
	}

	paymentStatus := o.PaymentStatus
	if paymentFailed {
		paymentStatus = models.PaymentFailed
	} else if o.PaymentStatus == models.PaymentCompleted {
		// A captured payment on a cancelled order goes back to the customer.
		paymentStatus = models.PaymentRefunded
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ok, err := s.repo.Cancel(ctx, tx, o.ID, paymentStatus, o.Status)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrStaleStatus
	}

	if o.OfferRedeemed && o.OfferID != nil {
		if err := s.offers.Release(ctx, tx, *o.OfferID); err != nil {
			return err
		}
		if err := s.repo.ClearOfferRedeemed(ctx, tx, o.ID); err != nil {
			return err
		}
	}

	if err := s.repo.AppendStatusLog(ctx, tx, o.ID, models.StatusCancelled, changedBy, reason); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	s.logger.Info("order_cancelled", fmt.Sprintf("Order %s cancelled", number), requestID, map[string]interface{}{
		"order_number":   number,
		"payment_status": string(paymentStatus),
	})

	s.publishStatusChange(ctx, number, o.Status, models.StatusCancelled, changedBy, nil, requestID)

	if paymentFailed {
		msg := models.NewPaymentFailedMessage(number, derefOr(reason, "payment failed"))
		if err := s.publisher.PublishNotification(ctx, msg); err != nil {
			s.logger.Error("notification_publish_failed", "Failed to publish payment failure", requestID, err, map[string]interface{}{
				"order_number": number,
			})
		}
	}

	return nil
}

// TrackOrder returns the customer-facing tracking view.
func (s *Service) TrackOrder(ctx context.Context, number string) (*models.OrderTrackingResponse, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.GetStatusHistory(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	return &models.OrderTrackingResponse{
		OrderNumber:         o.Number,
		CurrentStatus:       o.Status,
		PaymentStatus:       o.PaymentStatus,
		Total:               o.Total,
		UpdatedAt:           o.UpdatedAt,
		EstimatedDeliveryAt: o.EstimatedDeliveryAt,
		ActualDeliveryAt:    o.ActualDeliveryAt,
		History:             history,
	}, nil
}

// LoyaltyBalance returns the customer's current point balance.
func (s *Service) LoyaltyBalance(ctx context.Context, customerID int64) (int, error) {
	return s.ledger.Balance(ctx, customerID)
}

// HealthCheck reports whether the datastore is reachable.
func (s *Service) HealthCheck(ctx context.Context) bool {
	return s.db.Ping(ctx) == nil
}

// snapshotItems copies current catalog prices into immutable line items.
// The catalog is never consulted again for this order.
func (s *Service) snapshotItems(ctx context.Context, reqs []models.CreateOrderItemRequest) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(reqs))
	for _, r := range reqs {
		menuItem, err := s.catalog.GetMenuItem(ctx, r.MenuItemID)
		if err != nil {
			return nil, err
		}
		items = append(items, models.OrderItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   r.Quantity,
			UnitPrice:  menuItem.Price,
			LineTotal:  pricing.LineTotal(menuItem.Price, r.Quantity),
		})
	}
	return items, nil
}

// withRetries retries fn when the order-number unique constraint trips under
// concurrent creates.
func (s *Service) withRetries(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		err = fn(ctx)
		if err == nil || !isUniqueViolation(err) {
			return err
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// publishOrderCreated emits the kitchen-facing event. Best effort: a publish
// failure is logged, never surfaced.
func (s *Service) publishOrderCreated(ctx context.Context, o *models.Order, requestID string) {
	msg := &models.OrderCreatedMessage{
		OrderNumber:  o.Number,
		CustomerID:   o.CustomerID,
		Items:        o.Items,
		Total:        o.Total,
		KitchenNotes: o.KitchenNotes,
		CreatedAt:    o.CreatedAt,
	}
	if err := s.publisher.PublishOrderEvent(ctx, msg, "order.created"); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish order created event", requestID, err, map[string]interface{}{
			"order_number": o.Number,
		})
	}
}

// publishStatusChange emits the notification-facing event. Best effort.
func (s *Service) publishStatusChange(ctx context.Context, number string, oldStatus, newStatus models.OrderStatus, changedBy string, estimatedAt *time.Time, requestID string) {
	msg := models.NewStatusChangedMessage(number, oldStatus, newStatus, changedBy, estimatedAt)
	if err := s.publisher.PublishNotification(ctx, msg); err != nil {
		s.logger.Error("notification_publish_failed", "Failed to publish status change", requestID, err, map[string]interface{}{
			"order_number": number,
			"new_status":   string(newStatus),
		})
	}
}

func derefOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
