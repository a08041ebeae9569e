package offers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"restaurant-fulfillment/internal/database"
	"restaurant-fulfillment/internal/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so counter mutations
// can join the order's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists offers and owns the usage counter.
type Repository struct {
	db *database.DB
}

// NewRepository creates an offer repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// GetByCode loads an offer by its public code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.Offer, error) {
	return scanOffer(r.db.QueryRow(ctx, database.GetOfferByCodeSQL, code))
}

// Redeem takes one usage slot with a single guarded UPDATE. Under concurrent
// redemptions against usage_limit=1, exactly one caller succeeds; the rest
// get ErrUsageLimitReached. Pass the order's transaction so the increment
// commits or rolls back with the confirmation.
func (r *Repository) Redeem(ctx context.Context, q DBTX, offerID int64) error {
	var usedCount int
	err := q.QueryRow(ctx, database.RedeemOfferSQL, offerID).Scan(&usedCount)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to redeem offer: %w", err)
	}

	// The guarded update matched nothing: classify why.
	offer, lookupErr := scanOffer(q.QueryRow(ctx, database.GetOfferByIDSQL, offerID))
	if lookupErr != nil {
		return lookupErr
	}
	if !offer.IsActive {
		return models.ErrOfferExpired
	}
	return models.ErrUsageLimitReached
}

// Release gives back a usage slot after a confirmed order is cancelled.
// The counter never drops below zero.
func (r *Repository) Release(ctx context.Context, q DBTX, offerID int64) error {
	if _, err := q.Exec(ctx, database.ReleaseOfferSQL, offerID); err != nil {
		return fmt.Errorf("failed to release offer usage: %w", err)
	}
	return nil
}

func scanOffer(row pgx.Row) (*models.Offer, error) {
	var offer models.Offer
	err := row.Scan(
		&offer.ID,
		&offer.Code,
		&offer.DiscountType,
		&offer.DiscountValue,
		&offer.MinOrderAmount,
		&offer.MaxDiscountAmount,
		&offer.UsageLimit,
		&offer.UsedCount,
		&offer.ValidFrom,
		&offer.ValidUntil,
		&offer.IsActive,
		&offer.Audience,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to load offer: %w", err)
	}
	return &offer, nil
}
