package mailer

import "time"

// Event types carried on the order events topic.
const (
	TypeOrderCreated     = "order_created"
	TypePaymentConfirmed = "payment_confirmed"
	TypeStatusUpdated    = "order_status_updated"
	TypeDeliveryStarted  = "delivery_started"
	TypeOrderDelivered   = "order_delivered"
	TypeOrderCancelled   = "order_cancelled"
)

// OrderEvent is the durable notification record published after an order
// state change commits. The mailer worker turns it into an email so users
// who are not connected still hear about the change.
type OrderEvent struct {
	Type           string    `json:"event_type"`
	OrderID        int64     `json:"order_id"`
	OrderCode      string    `json:"order_code"`
	CustomerName   string    `json:"customer_name"`
	CustomerEmail  string    `json:"customer_email"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	TotalPrice     float64   `json:"total_price"`
	Message        string    `json:"message,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
