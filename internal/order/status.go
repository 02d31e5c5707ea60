package order

import (
	"time"

	"foodDeliveryManagement/internal/apperr"
	"foodDeliveryManagement/internal/auth"
	"foodDeliveryManagement/models"
)

// allowedTransitions is the order status graph. Transitions are monotonic:
// nothing re-enters pending and the terminal states have no outgoing edges.
// placed leaves only through driver assignment or cancellation, so a driver
// is present from assigned onwards.
var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:        {models.OrderStatusPlaced, models.OrderStatusCancelled},
	models.OrderStatusPlaced:         {models.OrderStatusAssigned, models.OrderStatusCancelled},
	models.OrderStatusAssigned:       {models.OrderStatusPreparing, models.OrderStatusOutForDelivery},
	models.OrderStatusPreparing:      {models.OrderStatusOutForDelivery},
	models.OrderStatusOutForDelivery: {models.OrderStatusDelivered},
	models.OrderStatusDelivered:      {},
	models.OrderStatusCancelled:      {},
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s models.OrderStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is a legal status transition.
func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in the given status may still be
// cancelled. Orders held by a driver are not cancellable under current policy.
func Cancellable(s models.OrderStatus) bool {
	return s == models.OrderStatusPending || s == models.OrderStatusPlaced
}

// authorizeTransition checks the actor's rights for a from -> to move before
// any guard on the graph itself. Admins may perform any transition; drivers
// only forward moves on orders assigned to them; customers only cancellation
// of their own orders.
func authorizeTransition(actor *auth.Principal, o *models.Order, to models.OrderStatus) error {
	if to == models.OrderStatusCancelled {
		if !actor.CanCancel(o) {
			return apperr.New(apperr.KindUnauthorized, "not allowed to cancel this order")
		}
		return nil
	}
	if !actor.CanUpdateStatus(o) {
		return apperr.New(apperr.KindUnauthorized, "not allowed to update this order")
	}
	return nil
}

// checkTransition combines authorization and graph guards, returning a typed
// error that leaves the order untouched on failure.
func checkTransition(actor *auth.Principal, o *models.Order, to models.OrderStatus) error {
	if !ValidStatus(to) {
		return apperr.Newf(apperr.KindValidation, "invalid status value %q", to)
	}
	if err := authorizeTransition(actor, o, to); err != nil {
		return err
	}
	if !CanTransition(o.Status, to) {
		return apperr.Newf(apperr.KindConflict, "order is %s; cannot move to %s", o.Status, to)
	}
	return nil
}

// applyTransition mutates the order's status and maintains the transition
// timestamp fields. Call only after checkTransition succeeded.
func applyTransition(o *models.Order, to models.OrderStatus, now time.Time) {
	o.Status = to
	o.UpdatedAt = now
	switch to {
	case models.OrderStatusDelivered:
		if o.DeliveredAt == nil {
			t := now
			o.DeliveredAt = &t
		}
	case models.OrderStatusCancelled:
		if o.CancelledAt == nil {
			t := now
			o.CancelledAt = &t
		}
	}
}

// StatusMessage returns the customer-facing message for a status.
func StatusMessage(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusPending:
		return "Order is pending payment"
	case models.OrderStatusPlaced:
		return "Order has been placed successfully"
	case models.OrderStatusAssigned:
		return "A driver has been assigned to your order"
	case models.OrderStatusPreparing:
		return "Your order is being prepared"
	case models.OrderStatusOutForDelivery:
		return "Your order is on the way"
	case models.OrderStatusDelivered:
		return "Your order has been delivered"
	case models.OrderStatusCancelled:
		return "Order has been cancelled"
	}
	return "Order status updated to " + string(s)
}
