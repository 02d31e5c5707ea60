package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"foodDeliveryManagement/models"
)

// UserRepository handles account reads and driver presence writes.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user and sets its ID.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (name, email, phone, role, is_online)
		VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.Phone, u.Role, u.IsOnline,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, phone, role, is_online, lat, lng, last_active_at`

// GetByID retrieves a user, or nil if not found.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SetDriverStatus flips a driver's online flag and stamps last_active_at.
// Returns false when the id does not belong to a driver.
func (r *UserRepository) SetDriverStatus(ctx context.Context, driverID int64, online bool) (bool, error) {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_online = ?, last_active_at = ?
		WHERE id = ? AND role = ?`,
		online, time.Now().UTC(), driverID, models.RoleDriver,
	)
	if err != nil {
		return false, fmt.Errorf("set driver status: %w", err)
	}
	return oneRowChanged(res)
}

// UpdateDriverPosition stores a driver's last known coordinates.
func (r *UserRepository) UpdateDriverPosition(ctx context.Context, driverID int64, lat, lng float64) (bool, error) {
	ctx, cancel := withExecTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET lat = ?, lng = ?, last_active_at = ?
		WHERE id = ? AND role = ?`,
		lat, lng, time.Now().UTC(), driverID, models.RoleDriver,
	)
	if err != nil {
		return false, fmt.Errorf("update driver position: %w", err)
	}
	return oneRowChanged(res)
}

// ListOnlineDrivers returns all drivers currently marked online.
func (r *UserRepository) ListOnlineDrivers(ctx context.Context) ([]*models.User, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = ? AND is_online = 1 ORDER BY id`, models.RoleDriver,
	)
	if err != nil {
		return nil, fmt.Errorf("list online drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		drivers = append(drivers, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drivers: %w", err)
	}
	return drivers, nil
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u        models.User
		lat, lng sql.NullFloat64
		lastAt   sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.IsOnline, &lat, &lng, &lastAt)
	if err != nil {
		return nil, err
	}
	if lat.Valid {
		u.Lat = &lat.Float64
	}
	if lng.Valid {
		u.Lng = &lng.Float64
	}
	if lastAt.Valid {
		u.LastActiveAt = &lastAt.Time
	}
	return &u, nil
}
