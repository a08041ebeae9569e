package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/database"
	"restaurant-fulfillment/internal/models"
)

// MenuItem is the catalog read model. Orders copy the price at creation time
// and never read it again.
type MenuItem struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Price       decimal.Decimal `json:"price" db:"price"`
	IsAvailable bool            `json:"is_available" db:"is_available"`
}

// DeliveryAddress is a resolvable address reference.
type DeliveryAddress struct {
	ID         int64  `json:"id" db:"id"`
	CustomerID int64  `json:"customer_id" db:"customer_id"`
	Address    string `json:"address" db:"address"`
}

// Repository provides read-only catalog lookups used at order-creation time.
type Repository struct {
	db *database.DB
}

// NewRepository creates a catalog repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// GetMenuItem loads one menu item. Missing or unavailable items fail with
// ErrInvalidLineItem so the caller can surface field-level detail.
func (r *Repository) GetMenuItem(ctx context.Context, id int64) (*MenuItem, error) {
	var item MenuItem
	err := r.db.QueryRow(ctx, database.GetMenuItemSQL, id).Scan(
		&item.ID,
		&item.Name,
		&item.Price,
		&item.IsAvailable,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("menu item %d: %w", id, models.ErrInvalidLineItem)
		}
		return nil, fmt.Errorf("failed to load menu item: %w", err)
	}
	if !item.IsAvailable {
		return nil, fmt.Errorf("menu item %d is unavailable: %w", id, models.ErrInvalidLineItem)
	}
	return &item, nil
}

// GetDeliveryAddress resolves a delivery address reference.
func (r *Repository) GetDeliveryAddress(ctx context.Context, id int64) (*DeliveryAddress, error) {
	var addr DeliveryAddress
	err := r.db.QueryRow(ctx, database.GetDeliveryAddressSQL, id).Scan(
		&addr.ID,
		&addr.CustomerID,
		&addr.Address,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to load delivery address: %w", err)
	}
	return &addr, nil
}
