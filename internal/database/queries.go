package database

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (number, customer_id, delivery_address_id, subtotal, tax, delivery_fee,
			   discount, total, status, payment_status, offer_id, redeemed_points, loyalty_discount,
			   customer_notes, kitchen_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_by, notes)
		VALUES ($1, $2, $3, $4)`

	GetOrderByNumberSQL = `
		SELECT id, number, customer_id, delivery_address_id, subtotal, tax, delivery_fee, discount,
			   total, status, payment_status, offer_id, offer_redeemed, points_awarded,
			   redeemed_points, loyalty_discount, payment_intent_id, customer_notes, kitchen_notes,
			   estimated_delivery_at, actual_delivery_at, created_at, updated_at
		FROM orders WHERE number = $1`

	GetOrderItemsSQL = `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price, line_total
		FROM order_items WHERE order_id = $1 ORDER BY id ASC`

	GetOrderStatusHistorySQL = `
		SELECT status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC`

	GetDailyOrderCountSQL = `
		SELECT COUNT(*) FROM orders WHERE DATE(created_at) = CURRENT_DATE`

	// Status transitions are guarded by the expected current status so a stale
	// writer fails instead of silently overwriting a newer status.
	TransitionOrderStatusSQL = `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`

	ConfirmOrderSQL = `
		UPDATE orders SET status = $2, payment_status = $3, payment_intent_id = COALESCE($4, payment_intent_id),
			   estimated_delivery_at = $5, offer_redeemed = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7`

	DeliverOrderSQL = `
		UPDATE orders SET status = $2, actual_delivery_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3`

	CancelOrderSQL = `
		UPDATE orders SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`

	ClearOfferRedeemedSQL = `
		UPDATE orders SET offer_redeemed = FALSE, updated_at = NOW()
		WHERE id = $1`

	// Exactly-once guard for the loyalty award at delivery.
	MarkPointsAwardedSQL = `
		UPDATE orders SET points_awarded = TRUE, updated_at = NOW()
		WHERE id = $1 AND points_awarded = FALSE`

	// The gateway webhook can land after staff already confirmed the order;
	// the capture still has to reach the payment fields.
	RecordPaymentCaptureSQL = `
		UPDATE orders SET payment_status = $2, payment_intent_id = COALESCE($3, payment_intent_id), updated_at = NOW()
		WHERE id = $1 AND payment_status <> $2`
)

// Offer queries
const (
	GetOfferByCodeSQL = `
		SELECT id, code, discount_type, discount_value, min_order_amount, max_discount_amount,
			   usage_limit, used_count, valid_from, valid_until, is_active, audience
		FROM offers WHERE code = $1`

	GetOfferByIDSQL = `
		SELECT id, code, discount_type, discount_value, min_order_amount, max_discount_amount,
			   usage_limit, used_count, valid_from, valid_until, is_active, audience
		FROM offers WHERE id = $1`

	// Single guarded increment so concurrent redemptions cannot exceed the limit.
	RedeemOfferSQL = `
		UPDATE offers SET used_count = used_count + 1
		WHERE id = $1 AND is_active
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		RETURNING used_count`

	ReleaseOfferSQL = `
		UPDATE offers SET used_count = GREATEST(used_count - 1, 0)
		WHERE id = $1`
)

// Loyalty queries
const (
	GetLoyaltyBalanceSQL = `
		SELECT COALESCE((SELECT points FROM loyalty_balances WHERE customer_id = $1), 0)`

	AwardLoyaltyPointsSQL = `
		INSERT INTO loyalty_balances (customer_id, points)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET
			points = loyalty_balances.points + EXCLUDED.points,
			updated_at = NOW()
		RETURNING points`

	// Guarded debit: $2 is the debited block amount, $3 the requested points.
	// Matches no row when the balance cannot cover the request.
	DebitLoyaltyPointsSQL = `
		UPDATE loyalty_balances SET points = points - $2, updated_at = NOW()
		WHERE customer_id = $1 AND points >= $3
		RETURNING points`
)

// Catalog and address queries
const (
	GetMenuItemSQL = `
		SELECT id, name, price, is_available
		FROM menu_items WHERE id = $1`

	GetDeliveryAddressSQL = `
		SELECT id, customer_id, address
		FROM delivery_addresses WHERE id = $1`
)

// Payment event queries
const (
	// Idempotency log: a conflict means the event was already processed.
	InsertPaymentEventSQL = `
		INSERT INTO payment_events (event_id, event_type, order_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`

	DeletePaymentEventSQL = `
		DELETE FROM payment_events WHERE event_id = $1`
)
