package loyalty

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/config"
	"restaurant-fulfillment/internal/database"
	"restaurant-fulfillment/internal/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so balance mutations
// can join the order's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ledger manages per-customer loyalty point balances. Balances never go
// negative: every mutation is a single atomic SQL statement.
type Ledger struct {
	db          *database.DB
	blockPoints int
	blockValue  decimal.Decimal
}

// NewLedger creates a ledger with the configured redemption policy.
func NewLedger(db *database.DB, cfg config.LoyaltyConfig) *Ledger {
	return &Ledger{
		db:          db,
		blockPoints: cfg.RedeemBlockPoints,
		blockValue:  cfg.RedeemBlockValue,
	}
}

// Balance returns the customer's current point balance, zero for customers
// with no ledger row yet.
func (l *Ledger) Balance(ctx context.Context, customerID int64) (int, error) {
	var points int
	if err := l.db.QueryRow(ctx, database.GetLoyaltyBalanceSQL, customerID).Scan(&points); err != nil {
		return 0, fmt.Errorf("failed to read loyalty balance: %w", err)
	}
	return points, nil
}

// Award atomically adds floor(amount) points and returns the new balance.
// Runs on the supplied queryable so it can join the delivery transaction.
func (l *Ledger) Award(ctx context.Context, q DBTX, customerID int64, amount decimal.Decimal) (int, error) {
	earned := int(amount.Floor().IntPart())
	if earned <= 0 {
		return l.Balance(ctx, customerID)
	}

	var points int
	if err := q.QueryRow(ctx, database.AwardLoyaltyPointsSQL, customerID, earned).Scan(&points); err != nil {
		return 0, fmt.Errorf("failed to award loyalty points: %w", err)
	}
	return points, nil
}

// PlanRedemption returns the points that would be consumed and the discount
// granted for a requested redemption. Points are spent in whole blocks only;
// fractional blocks are not redeemable.
func (l *Ledger) PlanRedemption(requestedPoints int) (int, decimal.Decimal) {
	if requestedPoints < l.blockPoints {
		return 0, decimal.Zero
	}
	blocks := requestedPoints / l.blockPoints
	return blocks * l.blockPoints, l.blockValue.Mul(decimal.NewFromInt(int64(blocks)))
}

// Redeem debits the largest whole-block amount at or below requestedPoints
// and returns the granted discount. Fails with ErrInsufficientPoints when the
// balance cannot cover the request. The debit is a single guarded UPDATE; run
// it on the order's transaction so the ledger and the order total cannot
// diverge on a crash.
func (l *Ledger) Redeem(ctx context.Context, q DBTX, customerID int64, requestedPoints int) (*models.RedemptionResult, error) {
	consumed, discount := l.PlanRedemption(requestedPoints)
	if consumed == 0 {
		balance, err := l.Balance(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if requestedPoints > balance {
			return nil, models.ErrInsufficientPoints
		}
		return &models.RedemptionResult{
			DiscountGranted:  decimal.Zero,
			PointsConsumed:   0,
			RemainingBalance: balance,
		}, nil
	}

	var remaining int
	err := q.QueryRow(ctx, database.DebitLoyaltyPointsSQL, customerID, consumed, requestedPoints).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrInsufficientPoints
		}
		return nil, fmt.Errorf("failed to debit loyalty points: %w", err)
	}

	return &models.RedemptionResult{
		DiscountGranted:  discount,
		PointsConsumed:   consumed,
		RemainingBalance: remaining,
	}, nil
}
