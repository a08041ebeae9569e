package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"restaurant-fulfillment/internal/database"
	"restaurant-fulfillment/internal/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists the order aggregate: the order row, its item snapshot
// and the append-only status log.
type Repository struct {
	db *database.DB
}

// NewRepository creates an order repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// InsertOrder inserts the order row and fills in its id and creation time.
func (r *Repository) InsertOrder(ctx context.Context, q DBTX, o *models.Order) error {
	err := q.QueryRow(ctx, database.InsertOrderSQL,
		o.Number, o.CustomerID, o.DeliveryAddressID, o.Subtotal, o.Tax, o.DeliveryFee,
		o.Discount, o.Total, o.Status, o.PaymentStatus, o.OfferID, o.RedeemedPoints,
		o.LoyaltyDiscount, o.CustomerNotes, o.KitchenNotes,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// InsertOrderItems inserts the immutable line-item snapshot.
func (r *Repository) InsertOrderItems(ctx context.Context, q DBTX, orderID int, items []models.OrderItem) error {
	for _, item := range items {
		_, err := q.Exec(ctx, database.InsertOrderItemSQL,
			orderID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

// AppendStatusLog appends one audit-trail entry. Entries are never updated.
func (r *Repository) AppendStatusLog(ctx context.Context, q DBTX, orderID int, status models.OrderStatus, changedBy string, notes *string) error {
	if _, err := q.Exec(ctx, database.InsertOrderStatusLogSQL, orderID, status, changedBy, notes); err != nil {
		return fmt.Errorf("failed to append status log: %w", err)
	}
	return nil
}

// GetByNumber loads an order with its items.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	var o models.Order
	err := r.db.QueryRow(ctx, database.GetOrderByNumberSQL, number).Scan(
		&o.ID, &o.Number, &o.CustomerID, &o.DeliveryAddressID, &o.Subtotal, &o.Tax,
		&o.DeliveryFee, &o.Discount, &o.Total, &o.Status, &o.PaymentStatus, &o.OfferID,
		&o.OfferRedeemed, &o.PointsAwarded, &o.RedeemedPoints, &o.LoyaltyDiscount,
		&o.PaymentIntentID, &o.CustomerNotes, &o.KitchenNotes,
		&o.EstimatedDeliveryAt, &o.ActualDeliveryAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	rows, err := r.db.Query(ctx, database.GetOrderItemsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name,
			&item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return &o, nil
}

// GetStatusHistory loads the append-only audit trail for an order.
func (r *Repository) GetStatusHistory(ctx context.Context, orderID int) ([]models.OrderStatusHistory, error) {
	rows, err := r.db.Query(ctx, database.GetOrderStatusHistorySQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	defer rows.Close()

	var history []models.OrderStatusHistory
	for rows.Next() {
		var entry models.OrderStatusHistory
		if err := rows.Scan(&entry.Status, &entry.ChangedBy, &entry.ChangedAt, &entry.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

// DailyOrderCount returns the number of orders created today.
func (r *Repository) DailyOrderCount(ctx context.Context, q DBTX) (int, error) {
	var count int
	if err := q.QueryRow(ctx, database.GetDailyOrderCountSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count today's orders: %w", err)
	}
	return count, nil
}

// TransitionStatus performs an optimistic status-guarded update. Returns
// false when the expected status no longer matches (a concurrent writer won).
func (r *Repository) TransitionStatus(ctx context.Context, q DBTX, orderID int, to, expected models.OrderStatus) (bool, error) {
	tag, err := q.Exec(ctx, database.TransitionOrderStatusSQL, orderID, to, expected)
	if err != nil {
		return false, fmt.Errorf("failed to transition order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Confirm moves pending -> confirmed, updating payment fields, the estimated
// delivery time and the offer-redeemed flag in one guarded statement.
func (r *Repository) Confirm(ctx context.Context, q DBTX, orderID int, paymentStatus models.PaymentStatus, paymentIntentID *string, estimatedAt time.Time, offerRedeemed bool) (bool, error) {
	tag, err := q.Exec(ctx, database.ConfirmOrderSQL,
		orderID, models.StatusConfirmed, paymentStatus, paymentIntentID, estimatedAt, offerRedeemed, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to confirm order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Deliver moves out_for_delivery -> delivered and stamps the actual delivery time.
func (r *Repository) Deliver(ctx context.Context, q DBTX, orderID int) (bool, error) {
	tag, err := q.Exec(ctx, database.DeliverOrderSQL, orderID, models.StatusDelivered, models.StatusOutForDelivery)
	if err != nil {
		return false, fmt.Errorf("failed to mark order delivered: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel moves the order to cancelled, guarded on the expected status.
func (r *Repository) Cancel(ctx context.Context, q DBTX, orderID int, paymentStatus models.PaymentStatus, expected models.OrderStatus) (bool, error) {
	tag, err := q.Exec(ctx, database.CancelOrderSQL, orderID, models.StatusCancelled, paymentStatus, expected)
	if err != nil {
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordPaymentCapture writes the payment fields of an order whose status
// already moved past pending. Returns false when the payment status already
// matched, so retries are no-ops.
func (r *Repository) RecordPaymentCapture(ctx context.Context, q DBTX, orderID int, paymentStatus models.PaymentStatus, paymentIntentID *string) (bool, error) {
	tag, err := q.Exec(ctx, database.RecordPaymentCaptureSQL, orderID, paymentStatus, paymentIntentID)
	if err != nil {
		return false, fmt.Errorf("failed to record payment capture: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkPointsAwarded flips the exactly-once guard for the loyalty award.
// Returns false when points were already awarded.
func (r *Repository) MarkPointsAwarded(ctx context.Context, q DBTX, orderID int) (bool, error) {
	tag, err := q.Exec(ctx, database.MarkPointsAwardedSQL, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to mark points awarded: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClearOfferRedeemed resets the offer-redeemed flag after a release.
func (r *Repository) ClearOfferRedeemed(ctx context.Context, q DBTX, orderID int) error {
	if _, err := q.Exec(ctx, database.ClearOfferRedeemedSQL, orderID); err != nil {
		return fmt.Errorf("failed to clear offer redeemed flag: %w", err)
	}
	return nil
}
