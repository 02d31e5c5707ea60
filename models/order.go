package models

import "time"

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPlaced         OrderStatus = "placed"
	OrderStatusAssigned       OrderStatus = "assigned"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// OrderItem is a single line item. UnitPrice is always the catalog price for
// the chosen size at creation time; client-submitted prices are ignored.
type OrderItem struct {
	ID        int64   `db:"id" json:"id"`
	OrderID   int64   `db:"order_id" json:"order_id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	Name      string  `db:"name" json:"name"`
	Size      string  `db:"size" json:"size"`
	Quantity  int     `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price"`
}

// Address is the delivery destination for an order. Coordinates are optional
// and supplied by the client's geocoder; when present they enable live ETA
// estimates during delivery.
type Address struct {
	Street     string   `db:"street" json:"street"`
	City       string   `db:"city" json:"city"`
	State      string   `db:"state" json:"state"`
	PostalCode string   `db:"postal_code" json:"postal_code,omitempty"`
	Latitude   *float64 `db:"dest_lat" json:"latitude,omitempty"`
	Longitude  *float64 `db:"dest_lng" json:"longitude,omitempty"`
}

// DriverLocation is the live position reported by the assigned driver while
// the order is in an active-delivery state.
type DriverLocation struct {
	Latitude  float64   `db:"driver_lat" json:"latitude"`
	Longitude float64   `db:"driver_lng" json:"longitude"`
	Heading   float64   `db:"driver_heading" json:"heading"`
	SpeedKPH  float64   `db:"driver_speed_kph" json:"speed_kph"`
	UpdatedAt time.Time `db:"location_updated_at" json:"updated_at"`
}

// Order represents a customer order with an optional one-to-one relation to a
// driver via DriverID.
type Order struct {
	ID         int64       `db:"id" json:"id"`
	Code       string      `db:"order_code" json:"order_code"`
	CustomerID int64       `db:"customer_id" json:"customer_id"`
	DriverID   *int64      `db:"driver_id" json:"driver_id,omitempty"`
	Items      []OrderItem `json:"items"`
	Address    Address     `json:"address"`
	Phone      string      `db:"phone" json:"phone"`
	Status     OrderStatus `db:"status" json:"status"`
	// TotalPrice is recomputed server-side from the line items and never
	// trusted from the client.
	TotalPrice float64 `db:"total_price" json:"total_price"`

	PaymentReference *string    `db:"payment_reference" json:"payment_reference,omitempty"`
	PaidAt           *time.Time `db:"paid_at" json:"paid_at,omitempty"`

	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	DeliveredAt        *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`

	DriverLocation *DriverLocation `json:"driver_location,omitempty"`

	Rating *int    `db:"rating" json:"rating,omitempty"`
	Review *string `db:"review" json:"review,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasDriver reports whether a driver is assigned to the order.
func (o *Order) HasDriver() bool {
	return o != nil && o.DriverID != nil
}

// IsTerminal reports whether the order reached a state with no outgoing
// transitions.
func (o *Order) IsTerminal() bool {
	return o != nil && (o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled)
}

// InActiveDelivery reports whether live driver locations are accepted and
// broadcast for the order.
func (o *Order) InActiveDelivery() bool {
	if o == nil {
		return false
	}
	switch o.Status {
	case OrderStatusAssigned, OrderStatusPreparing, OrderStatusOutForDelivery:
		return true
	}
	return false
}
