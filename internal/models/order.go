package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the delivery status of an order
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// nextStatus maps each status to its single sequential successor.
// Advancing skips nothing: any other target fails.
var nextStatus = map[OrderStatus]OrderStatus{
	StatusConfirmed:      StatusPreparing,
	StatusPreparing:      StatusReady,
	StatusReady:          StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

// cancellableFrom lists the statuses an order may be cancelled from.
var cancellableFrom = map[OrderStatus]bool{
	StatusPending:   true,
	StatusConfirmed: true,
}

// CanAdvance reports whether from -> to is a legal sequential transition.
func CanAdvance(from, to OrderStatus) bool {
	next, ok := nextStatus[from]
	return ok && next == to
}

// CanCancel reports whether an order in the given status may be cancelled.
func CanCancel(from OrderStatus) bool {
	return cancellableFrom[from]
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status OrderStatus) bool {
	return status == StatusDelivered || status == StatusCancelled
}

// ValidStatus reports whether s names a known order status.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// OrderItem is an immutable snapshot of a menu item at order time.
// The unit price is copied from the catalog, never re-read.
type OrderItem struct {
	ID         int             `json:"id,omitempty" db:"id"`
	OrderID    int             `json:"order_id,omitempty" db:"order_id"`
	MenuItemID int64           `json:"menu_item_id" db:"menu_item_id"`
	Name       string          `json:"name" db:"name"`
	Quantity   int             `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total" db:"line_total"`
}

// Order is the aggregate root. total == subtotal + tax + delivery_fee - discount
// holds at creation and after every recomputation; it is never recomputed after
// payment capture.
type Order struct {
	ID                  int             `json:"id,omitempty" db:"id"`
	Number              string          `json:"order_number" db:"number"`
	CustomerID          int64           `json:"customer_id" db:"customer_id"`
	DeliveryAddressID   int64           `json:"delivery_address_id" db:"delivery_address_id"`
	Items               []OrderItem     `json:"items"`
	Subtotal            decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax                 decimal.Decimal `json:"tax" db:"tax"`
	DeliveryFee         decimal.Decimal `json:"delivery_fee" db:"delivery_fee"`
	Discount            decimal.Decimal `json:"discount" db:"discount"`
	Total               decimal.Decimal `json:"total" db:"total"`
	Status              OrderStatus     `json:"status" db:"status"`
	PaymentStatus       PaymentStatus   `json:"payment_status" db:"payment_status"`
	OfferID             *int64          `json:"offer_id,omitempty" db:"offer_id"`
	OfferRedeemed       bool            `json:"-" db:"offer_redeemed"`
	PointsAwarded       bool            `json:"-" db:"points_awarded"`
	RedeemedPoints      int             `json:"redeemed_points,omitempty" db:"redeemed_points"`
	LoyaltyDiscount     decimal.Decimal `json:"loyalty_discount" db:"loyalty_discount"`
	PaymentIntentID     *string         `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	CustomerNotes       *string         `json:"customer_notes,omitempty" db:"customer_notes"`
	KitchenNotes        *string         `json:"kitchen_notes,omitempty" db:"kitchen_notes"`
	EstimatedDeliveryAt *time.Time      `json:"estimated_delivery_at,omitempty" db:"estimated_delivery_at"`
	ActualDeliveryAt    *time.Time      `json:"actual_delivery_at,omitempty" db:"actual_delivery_at"`
	CreatedAt           time.Time       `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at,omitempty" db:"updated_at"`
}

// OrderStatusHistory is one append-only entry in the order audit trail.
type OrderStatusHistory struct {
	Status    OrderStatus `json:"status" db:"status"`
	ChangedBy string      `json:"changed_by" db:"changed_by"`
	ChangedAt time.Time   `json:"timestamp" db:"changed_at"`
	Notes     *string     `json:"notes,omitempty" db:"notes"`
}

// CreateOrderRequest represents the request to create a new order
type CreateOrderRequest struct {
	CustomerID        int64                    `json:"customer_id"`
	Items             []CreateOrderItemRequest `json:"items"`
	DeliveryAddressID int64                    `json:"delivery_address_id"`
	CustomerNotes     *string                  `json:"customer_notes,omitempty"`
	KitchenNotes      *string                  `json:"kitchen_notes,omitempty"`
	OfferCode         *string                  `json:"offer_code,omitempty"`
	RedeemPoints      int                      `json:"redeem_points,omitempty"`
	Audience          string                   `json:"audience,omitempty"`
}

// CreateOrderItemRequest references a catalog item; the price is looked up
// server-side, never taken from the client.
type CreateOrderItemRequest struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	OrderNumber     string          `json:"order_number"`
	Status          OrderStatus     `json:"status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	RemainingPoints *int            `json:"remaining_points,omitempty"`
}

// AdvanceStatusRequest is the staff request to move an order forward.
type AdvanceStatusRequest struct {
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changed_by"`
	Notes     *string     `json:"notes,omitempty"`
}

// CancelOrderRequest carries the cancellation reason.
type CancelOrderRequest struct {
	Reason    *string `json:"reason,omitempty"`
	ChangedBy string  `json:"changed_by,omitempty"`
}

// OrderTrackingResponse represents the response for order tracking
type OrderTrackingResponse struct {
	OrderNumber         string               `json:"order_number"`
	CurrentStatus       OrderStatus          `json:"current_status"`
	PaymentStatus       PaymentStatus        `json:"payment_status"`
	Total               decimal.Decimal      `json:"total"`
	UpdatedAt           time.Time            `json:"updated_at"`
	EstimatedDeliveryAt *time.Time           `json:"estimated_delivery_at,omitempty"`
	ActualDeliveryAt    *time.Time           `json:"actual_delivery_at,omitempty"`
	History             []OrderStatusHistory `json:"history"`
}

// Validate validates the create order request
func (req *CreateOrderRequest) Validate() error {
	if req.CustomerID <= 0 {
		return NewValidationError("customer_id", "must be a positive id")
	}
	if req.DeliveryAddressID <= 0 {
		return NewValidationError("delivery_address_id", "must be a positive id")
	}
	if len(req.Items) == 0 {
		return NewValidationError("items", "array cannot be empty")
	}
	if len(req.Items) > 20 {
		return NewValidationError("items", "array cannot contain more than 20 items")
	}

	for i, item := range req.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if item.MenuItemID <= 0 {
			return NewValidationError(prefix+".menu_item_id", "must be a positive id")
		}
		if item.Quantity < 1 || item.Quantity > 50 {
			return NewValidationError(prefix+".quantity", "must be between 1 and 50")
		}
	}

	if req.RedeemPoints < 0 {
		return NewValidationError("redeem_points", "must not be negative")
	}

	return nil
}

// GenerateOrderNumber generates a unique order number in format ORD_YYYYMMDD_NNN
func GenerateOrderNumber(date time.Time, sequence int) string {
	dateStr := date.Format("20060102")
	return fmt.Sprintf("ORD_%s_%03d", dateStr, sequence)
}
