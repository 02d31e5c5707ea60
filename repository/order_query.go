package repository

import (
	"context"
	"fmt"
	"time"

	"foodDeliveryManagement/models"
)

// DefaultPageSize bounds list queries when the caller passes limit <= 0.
const DefaultPageSize = 20

// ListByCustomer returns a customer's orders, newest first, keyset-paginated
// by order id. Pass beforeID = 0 for the first page.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID, beforeID int64, limit int) ([]*models.Order, error) {
	return r.list(ctx, `customer_id = ?`, []any{customerID}, beforeID, limit)
}

// ListByDriver returns the orders assigned to a driver, newest first.
func (r *OrderRepository) ListByDriver(ctx context.Context, driverID, beforeID int64, limit int) ([]*models.Order, error) {
	return r.list(ctx, `driver_id = ?`, []any{driverID}, beforeID, limit)
}

// ListByStatus returns all orders in a status, newest first. Admin feed.
func (r *OrderRepository) ListByStatus(ctx context.Context, status models.OrderStatus, beforeID int64, limit int) ([]*models.Order, error) {
	return r.list(ctx, `status = ?`, []any{status}, beforeID, limit)
}

// ListAll returns orders across all customers, newest first. Admin feed.
func (r *OrderRepository) ListAll(ctx context.Context, beforeID int64, limit int) ([]*models.Order, error) {
	return r.list(ctx, `1 = 1`, nil, beforeID, limit)
}

// ListUnassigned returns placed orders with no driver, oldest first, so the
// driver pool sees the queue in arrival order.
func (r *OrderRepository) ListUnassigned(ctx context.Context, limit int) ([]*models.Order, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = DefaultPageSize
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = ? AND driver_id IS NULL
		ORDER BY id ASC LIMIT ?`,
		models.OrderStatusPlaced, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list unassigned orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *OrderRepository) list(ctx context.Context, where string, args []any, beforeID int64, limit int) ([]*models.Order, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = DefaultPageSize
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where
	if beforeID > 0 {
		query += ` AND id < ?`
		args = append(args, beforeID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// Dashboard is the admin at-a-glance summary.
type Dashboard struct {
	StatusCounts  map[models.OrderStatus]int64 `json:"status_counts"`
	ActiveOrders  int64                        `json:"active_orders"`
	TodayOrders   int64                        `json:"today_orders"`
	TodayRevenue  float64                      `json:"today_revenue"`
	OnlineDrivers int64                        `json:"online_drivers"`
	AverageRating float64                      `json:"average_rating"`
}

// GetDashboard aggregates current order and driver state for the admin view.
// Revenue counts paid orders only; cancelled never contribute.
func (r *OrderRepository) GetDashboard(ctx context.Context) (*Dashboard, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	d := &Dashboard{StatusCounts: make(map[models.OrderStatus]int64)}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("dashboard status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status models.OrderStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		d.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	d.ActiveOrders = d.StatusCounts[models.OrderStatusAssigned] +
		d.StatusCounts[models.OrderStatusPreparing] +
		d.StatusCounts[models.OrderStatusOutForDelivery]

	today := time.Now().UTC().Truncate(24 * time.Hour)
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN paid_at IS NOT NULL THEN total_price ELSE 0 END), 0)
		FROM orders WHERE created_at >= ?`, today,
	).Scan(&d.TodayOrders, &d.TodayRevenue)
	if err != nil {
		return nil, fmt.Errorf("dashboard today: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE role = ? AND is_online = 1`, models.RoleDriver,
	).Scan(&d.OnlineDrivers)
	if err != nil {
		return nil, fmt.Errorf("dashboard online drivers: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(rating), 0) FROM orders WHERE rating IS NOT NULL`,
	).Scan(&d.AverageRating)
	if err != nil {
		return nil, fmt.Errorf("dashboard avg rating: %w", err)
	}
	return d, nil
}

// DailyStat is one day of order volume in the analytics window.
type DailyStat struct {
	Day           string  `json:"day"` // YYYY-MM-DD
	Orders        int64   `json:"orders"`
	Delivered     int64   `json:"delivered"`
	Cancelled     int64   `json:"cancelled"`
	Revenue       float64 `json:"revenue"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

// GetAnalytics returns per-day order stats for the trailing number of days.
func (r *OrderRepository) GetAnalytics(ctx context.Context, days int) ([]DailyStat, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(created_at, 1, 10) AS day,
			COUNT(*),
			SUM(CASE WHEN status = 'delivered' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END),
			COALESCE(SUM(CASE WHEN paid_at IS NOT NULL THEN total_price ELSE 0 END), 0)
		FROM orders
		WHERE created_at >= ?
		GROUP BY day
		ORDER BY day ASC`, since,
	)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var s DailyStat
		if err := rows.Scan(&s.Day, &s.Orders, &s.Delivered, &s.Cancelled, &s.Revenue); err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		if s.Orders > 0 {
			s.AvgOrderValue = s.Revenue / float64(s.Orders)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily stats: %w", err)
	}
	return stats, nil
}
