package auth

import "foodDeliveryManagement/models"

// Capability checks gate order transitions per role. The state machine calls
// these instead of branching on role strings, so a new role only has to be
// handled here.

// CanAssign reports whether the principal may assign a driver to an order.
func (p *Principal) CanAssign() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// CanAccept reports whether the principal may self-assign (accept) an order.
func (p *Principal) CanAccept() bool {
	return p != nil && p.Role == models.RoleDriver
}

// CanUpdateStatus reports whether the principal may move the order forward.
// Admins may update any order; drivers only orders assigned to them.
func (p *Principal) CanUpdateStatus(o *models.Order) bool {
	if p == nil || o == nil {
		return false
	}
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDriver:
		return o.DriverID != nil && *o.DriverID == p.ID
	}
	return false
}

// CanCancel reports whether the principal may request cancellation of the
// order. Whether the order is still in a cancellable status is the state
// machine's concern, not a capability.
func (p *Principal) CanCancel(o *models.Order) bool {
	if p == nil || o == nil {
		return false
	}
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return o.CustomerID == p.ID
	}
	return false
}

// CanView reports whether the principal may read the order.
func (p *Principal) CanView(o *models.Order) bool {
	if p == nil || o == nil {
		return false
	}
	if p.Role == models.RoleAdmin {
		return true
	}
	if o.CustomerID == p.ID {
		return true
	}
	return o.DriverID != nil && *o.DriverID == p.ID
}
