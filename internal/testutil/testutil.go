// Package testutil provides shared helpers for package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"foodDeliveryManagement/internal/db"
	"foodDeliveryManagement/models"
)

var dbSeq atomic.Int64

// OpenInMemoryDB opens a fresh migrated in-memory SQLite database. Shared
// cache keeps the database alive across the pool's connections within a test.
func OpenInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	d, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// GenerateJWTHS256 mints a signed token for a principal, for handler tests.
func GenerateJWTHS256(t *testing.T, secret string, userID int64, name string, role models.Role) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", userID),
		"name": name,
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// SeedUser inserts a user directly and returns its id.
func SeedUser(t *testing.T, d *sql.DB, name, email string, role models.Role) int64 {
	t.Helper()
	res, err := d.ExecContext(context.Background(), `
		INSERT INTO users (name, email, phone, role) VALUES (?, ?, '', ?)`,
		name, email, role)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed user id: %v", err)
	}
	return id
}

// SeedProduct inserts a product with one or more sizes and returns its id.
func SeedProduct(t *testing.T, d *sql.DB, name string, sizes map[string]float64) int64 {
	t.Helper()
	res, err := d.ExecContext(context.Background(), `
		INSERT INTO products (name, category, available, prep_time_min)
		VALUES (?, 'pizza', 1, 15)`, name)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed product id: %v", err)
	}
	for size, price := range sizes {
		if _, err := d.ExecContext(context.Background(), `
			INSERT INTO product_sizes (product_id, size, price) VALUES (?, ?, ?)`,
			id, size, price); err != nil {
			t.Fatalf("seed product size: %v", err)
		}
	}
	return id
}
