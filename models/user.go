package models

import "time"

// Role is the closed set of actor roles in the system.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleDriver || r == RoleAdmin
}

// User represents an account as consumed by the order core. Accounts are
// created by the identity service; the core reads them and, for drivers,
// updates the online/location fields.
type User struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Phone string `db:"phone" json:"phone"`
	Role  Role   `db:"role" json:"role"`

	// Driver-only live state.
	IsOnline     bool       `db:"is_online" json:"is_online"`
	Lat          *float64   `db:"lat" json:"lat,omitempty"`
	Lng          *float64   `db:"lng" json:"lng,omitempty"`
	LastActiveAt *time.Time `db:"last_active_at" json:"last_active_at,omitempty"`
}
