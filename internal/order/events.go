package order

import (
	"time"

	"foodDeliveryManagement/models"
)

// Real-time event names pushed over live connections. Customer, driver and
// admin audiences each get their own view of a change, so a single state
// transition usually fans out under several names.
const (
	EventOrderCreated    = "order_created"
	EventNewOrderCreated = "new_order_created" // admin feed

	EventPaymentConfirmed  = "payment_confirmed"
	EventOrderPaid         = "order_paid"          // admin feed
	EventNewOrderAvailable = "new_order_available" // driver pool

	EventDriverAssigned        = "driver_assigned"
	EventOrderAssignedToYou    = "order_assigned_to_you"
	EventOrderAcceptedByDriver = "order_accepted_by_driver" // admin feed
	EventOrderNoLongerOpen     = "order_no_longer_available"

	EventStatusUpdated   = "order_status_updated"
	EventDeliveryStarted = "delivery_started"
	EventOrderDelivered  = "order_delivered"

	EventOrderCancelled         = "order_cancelled"
	EventAssignedOrderCancelled = "assigned_order_cancelled"

	EventDriverLocationUpdated = "driver_location_updated"
	EventDriverStatusChanged   = "driver_status_changed"
	EventCustomerMessage       = "customer_message"
	EventOrderRated            = "order_rated"
)

// Actor identifies who caused an event.
type Actor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// DriverInfo is the driver summary shared with customers on assignment.
type DriverInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// StatusUpdate is the payload for status transition events.
type StatusUpdate struct {
	OrderID   int64              `json:"order_id"`
	OrderCode string             `json:"order_code"`
	Status    models.OrderStatus `json:"status"`
	Previous  models.OrderStatus `json:"previous_status,omitempty"`
	Message   string             `json:"message,omitempty"`
	Driver    *DriverInfo        `json:"driver,omitempty"`
	ETA       *ETAView           `json:"eta,omitempty"`
	UpdatedBy *Actor             `json:"updated_by,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Cancellation is the payload for cancellation events.
type Cancellation struct {
	OrderID     int64     `json:"order_id"`
	OrderCode   string    `json:"order_code"`
	Reason      string    `json:"reason"`
	CancelledBy *Actor    `json:"cancelled_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// LocationUpdate is the payload for live driver position events.
type LocationUpdate struct {
	OrderID   int64     `json:"order_id"`
	OrderCode string    `json:"order_code"`
	DriverID  int64     `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   float64   `json:"heading,omitempty"`
	SpeedKPH  float64   `json:"speed_kph,omitempty"`
	ETA       *ETAView  `json:"eta,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OpenOrder is the driver-pool summary broadcast when an order becomes
// claimable.
type OpenOrder struct {
	OrderID    int64     `json:"order_id"`
	OrderCode  string    `json:"order_code"`
	TotalPrice float64   `json:"total_price"`
	City       string    `json:"city"`
	PlacedAt   time.Time `json:"placed_at"`
}

// ETAView is the customer-facing arrival estimate.
type ETAView struct {
	DistanceKm float64   `json:"distance_km"`
	Minutes    float64   `json:"minutes"`
	ArrivalAt  time.Time `json:"arrival_at"`
}

// DriverStatus is the payload for driver online/offline events.
type DriverStatus struct {
	DriverID int64     `json:"driver_id"`
	Name     string    `json:"name"`
	IsOnline bool      `json:"is_online"`
	At       time.Time `json:"at"`
}

// Message is the payload for customer-to-driver chat events.
type Message struct {
	OrderID   int64     `json:"order_id"`
	OrderCode string    `json:"order_code"`
	From      Actor     `json:"from"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// RatingEvent is the payload for post-delivery rating events.
type RatingEvent struct {
	OrderID   int64     `json:"order_id"`
	OrderCode string    `json:"order_code"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
