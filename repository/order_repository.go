package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"foodDeliveryManagement/models"
)

// OrderRepository handles order persistence.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order and its items in one transaction. Unit prices are
// read from the catalog inside the same transaction, so a concurrent catalog
// change can never produce an order priced against two catalog versions.
// Returns ErrUnknownProductSize or ErrProductUnavailable without inserting
// anything when a line item cannot be priced.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total float64
	for i := range o.Items {
		item := &o.Items[i]
		var (
			name      string
			available bool
			price     float64
		)
		err := tx.QueryRowContext(ctx, `
			SELECT p.name, p.available, ps.price
			FROM products p
			JOIN product_sizes ps ON ps.product_id = p.id AND ps.size = ?
			WHERE p.id = ?`,
			item.Size, item.ProductID,
		).Scan(&name, &available, &price)
		if err == sql.ErrNoRows {
			return fmt.Errorf("product %d size %q: %w", item.ProductID, item.Size, ErrUnknownProductSize)
		}
		if err != nil {
			return fmt.Errorf("price item: %w", err)
		}
		if !available {
			return fmt.Errorf("product %d: %w", item.ProductID, ErrProductUnavailable)
		}
		item.Name = name
		item.UnitPrice = price
		total += price * float64(item.Quantity)
	}
	o.TotalPrice = total
	o.Status = models.OrderStatusPending

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (order_code, customer_id, status, total_price,
			street, city, state, postal_code, dest_lat, dest_lng, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Code, o.CustomerID, o.Status, o.TotalPrice,
		o.Address.Street, o.Address.City, o.Address.State, o.Address.PostalCode,
		o.Address.Latitude, o.Address.Longitude,
		o.Phone, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	o.CreatedAt, o.UpdatedAt = now, now

	for i := range o.Items {
		item := &o.Items[i]
		res, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, size, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			o.ID, item.ProductID, item.Name, item.Size, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		item.OrderID = o.ID
		if item.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("order item id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

const orderColumns = `
	id, order_code, customer_id, driver_id, status, total_price,
	street, city, state, postal_code, dest_lat, dest_lng, phone,
	payment_reference, paid_at, cancellation_reason, cancelled_at, delivered_at,
	driver_lat, driver_lng, driver_heading, driver_speed_kph, location_updated_at,
	rating, review, created_at, updated_at`

// GetByID retrieves an order with its items, or nil if not found.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, o *models.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, name, size, quantity, unit_price
		FROM order_items WHERE order_id = ? ORDER BY id`, o.ID)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Size, &it.Quantity, &it.UnitPrice); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

// DeletePending removes an order that never left pending, together with its
// items. Used to unwind creation when payment initiation fails.
func (r *OrderRepository) DeletePending(ctx context.Context, orderID int64) (bool, error) {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM orders WHERE id = ? AND status = ?`,
		orderID, models.OrderStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("delete pending order: %w", err)
	}
	return oneRowChanged(res)
}

// MarkPaid records payment on a pending order. The status predicate makes the
// call idempotent: a second verification of the same order changes nothing
// and returns false.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID int64, reference string, paidAt time.Time) (bool, error) {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_reference = ?, paid_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.OrderStatusPlaced, reference, paidAt.UTC(), time.Now().UTC(),
		orderID, models.OrderStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark paid: %w", err)
	}
	return oneRowChanged(res)
}

// AssignDriver claims a placed, unassigned order for a driver. When several
// drivers race for the same order exactly one update matches the predicate;
// the rest see false.
func (r *OrderRepository) AssignDriver(ctx context.Context, orderID, driverID int64) (bool, error) {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET driver_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND driver_id IS NULL AND status = ?`,
		driverID, models.OrderStatusAssigned, time.Now().UTC(),
		orderID, models.OrderStatusPlaced,
	)
	if err != nil {
		return false, fmt.Errorf("assign driver: %w", err)
	}
	return oneRowChanged(res)
}

// UpdateStatusIf moves the order from one exact status to another. The
// from-status predicate rejects stale writers that read the order before a
// concurrent transition.
func (r *OrderRepository) UpdateStatusIf(ctx context.Context, orderID int64, from, to models.OrderStatus) (bool, error) {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	var (
		res sql.Result
		err error
	)
	if to == models.OrderStatusDelivered {
		res, err = r.db.ExecContext(ctx, `
			UPDATE orders SET status = ?, delivered_at = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			to, now, now, orderID, from,
		)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE orders SET status = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			to, now, orderID, from,
		)
	}
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return oneRowChanged(res)
}

// Cancel marks the order cancelled while it is still in a cancellable status.
func (r *OrderRepository) Cancel(ctx context.Context, orderID int64, reason string) (bool, error) {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, cancellation_reason = ?, cancelled_at = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		models.OrderStatusCancelled, reason, now, now,
		orderID, models.OrderStatusPending, models.OrderStatusPlaced,
	)
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	return oneRowChanged(res)
}

// UpdateDriverLocation stores the latest driver position. The predicate
// restricts writes to the assigned driver and to active-delivery statuses, so
// late pings after delivery change nothing.
func (r *OrderRepository) UpdateDriverLocation(ctx context.Context, orderID, driverID int64, loc models.DriverLocation) (bool, error) {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET driver_lat = ?, driver_lng = ?, driver_heading = ?, driver_speed_kph = ?,
			location_updated_at = ?, updated_at = ?
		WHERE id = ? AND driver_id = ? AND status IN (?, ?, ?)`,
		loc.Latitude, loc.Longitude, loc.Heading, loc.SpeedKPH,
		loc.UpdatedAt.UTC(), time.Now().UTC(),
		orderID, driverID,
		models.OrderStatusAssigned, models.OrderStatusPreparing, models.OrderStatusOutForDelivery,
	)
	if err != nil {
		return false, fmt.Errorf("update driver location: %w", err)
	}
	return oneRowChanged(res)
}

// SetRating records a one-time rating on a delivered order.
func (r *OrderRepository) SetRating(ctx context.Context, orderID int64, rating int, review string) (bool, error) {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET rating = ?, review = ?, updated_at = ?
		WHERE id = ? AND status = ? AND rating IS NULL`,
		rating, review, time.Now().UTC(),
		orderID, models.OrderStatusDelivered,
	)
	if err != nil {
		return false, fmt.Errorf("set rating: %w", err)
	}
	return oneRowChanged(res)
}

func oneRowChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// scanner abstracts sql.Row and sql.Rows for scanOrder.
type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*models.Order, error) {
	var (
		o          models.Order
		driverID   sql.NullInt64
		postalCode sql.NullString
		destLat    sql.NullFloat64
		destLng    sql.NullFloat64
		payRef     sql.NullString
		paidAt     sql.NullTime
		cancReason sql.NullString
		cancAt     sql.NullTime
		delivAt    sql.NullTime
		lat, lng   sql.NullFloat64
		heading    sql.NullFloat64
		speed      sql.NullFloat64
		locAt      sql.NullTime
		rating     sql.NullInt64
		review     sql.NullString
	)
	err := s.Scan(
		&o.ID, &o.Code, &o.CustomerID, &driverID, &o.Status, &o.TotalPrice,
		&o.Address.Street, &o.Address.City, &o.Address.State, &postalCode, &destLat, &destLng, &o.Phone,
		&payRef, &paidAt, &cancReason, &cancAt, &delivAt,
		&lat, &lng, &heading, &speed, &locAt,
		&rating, &review, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if driverID.Valid {
		o.DriverID = &driverID.Int64
	}
	o.Address.PostalCode = postalCode.String
	if destLat.Valid {
		o.Address.Latitude = &destLat.Float64
	}
	if destLng.Valid {
		o.Address.Longitude = &destLng.Float64
	}
	if payRef.Valid {
		o.PaymentReference = &payRef.String
	}
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	if cancReason.Valid {
		o.CancellationReason = &cancReason.String
	}
	if cancAt.Valid {
		o.CancelledAt = &cancAt.Time
	}
	if delivAt.Valid {
		o.DeliveredAt = &delivAt.Time
	}
	if lat.Valid && lng.Valid {
		o.DriverLocation = &models.DriverLocation{
			Latitude:  lat.Float64,
			Longitude: lng.Float64,
			Heading:   heading.Float64,
			SpeedKPH:  speed.Float64,
			UpdatedAt: locAt.Time,
		}
	}
	if rating.Valid {
		v := int(rating.Int64)
		o.Rating = &v
	}
	if review.Valid {
		o.Review = &review.String
	}
	return &o, nil
}
