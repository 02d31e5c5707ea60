package realtime

import (
	"sync"

	"go.uber.org/zap"

	"foodDeliveryManagement/models"
)

// Router directs domain events to audience targets using the Registry,
// decoupling event producers from connection mechanics.
//
// Every delivery is best-effort and at-most-once per reachable connection:
// offline recipients are silently skipped, and no events are queued or
// retried. Clients re-synchronize with a pull query after reconnecting.
type Router struct {
	reg    *Registry
	logger *zap.Logger

	mu       sync.RWMutex
	watchers map[int64]map[string]struct{} // order id -> conn ids
}

// NewRouter creates a router over the given registry.
func NewRouter(reg *Registry, logger *zap.Logger) *Router {
	return &Router{
		reg:      reg,
		logger:   logger,
		watchers: make(map[int64]map[string]struct{}),
	}
}

// Watch subscribes the connection to an order's interest group. Unknown
// connections are ignored.
func (rt *Router) Watch(orderID int64, connID string) {
	if rt.reg.Get(connID) == nil {
		return
	}
	rt.mu.Lock()
	set, ok := rt.watchers[orderID]
	if !ok {
		set = make(map[string]struct{})
		rt.watchers[orderID] = set
	}
	set[connID] = struct{}{}
	rt.mu.Unlock()
}

// Unwatch removes the connection from an order's interest group.
func (rt *Router) Unwatch(orderID int64, connID string) {
	rt.mu.Lock()
	if set, ok := rt.watchers[orderID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(rt.watchers, orderID)
		}
	}
	rt.mu.Unlock()
}

// DropConnection evicts the connection from all watch groups and unregisters
// it. Called by the transport on disconnect.
func (rt *Router) DropConnection(connID string) {
	rt.mu.Lock()
	for orderID, set := range rt.watchers {
		delete(set, connID)
		if len(set) == 0 {
			delete(rt.watchers, orderID)
		}
	}
	rt.mu.Unlock()
	rt.reg.Unregister(connID)
}

// NotifyUser delivers the event to every live connection of a customer.
func (rt *Router) NotifyUser(userID int64, event string, payload any) {
	rt.send(rt.reg.Lookup(models.RoleCustomer, userID), event, payload)
}

// NotifyDriver delivers the event to every live connection of a driver.
func (rt *Router) NotifyDriver(driverID int64, event string, payload any) {
	rt.send(rt.reg.Lookup(models.RoleDriver, driverID), event, payload)
}

// NotifyAdmins delivers the event to all connected admins.
func (rt *Router) NotifyAdmins(event string, payload any) {
	rt.send(rt.reg.AllOfRole(models.RoleAdmin), event, payload)
}

// NotifyRole delivers the event to all connections of a role.
func (rt *Router) NotifyRole(role models.Role, event string, payload any) {
	rt.send(rt.reg.AllOfRole(role), event, payload)
}

// NotifyRoleExcept delivers the event to all connections of a role except
// those belonging to the excluded user.
func (rt *Router) NotifyRoleExcept(role models.Role, exceptUserID int64, event string, payload any) {
	all := rt.reg.AllOfRole(role)
	conns := make([]*Conn, 0, len(all))
	for _, c := range all {
		if c.UserID != exceptUserID {
			conns = append(conns, c)
		}
	}
	rt.send(conns, event, payload)
}

// NotifyOrderWatchers delivers the event to every connection watching the order.
func (rt *Router) NotifyOrderWatchers(orderID int64, event string, payload any) {
	rt.mu.RLock()
	set := rt.watchers[orderID]
	conns := make([]*Conn, 0, len(set))
	for id := range set {
		if c := rt.reg.Get(id); c != nil {
			conns = append(conns, c)
		}
	}
	rt.mu.RUnlock()
	rt.send(conns, event, payload)
}

func (rt *Router) send(conns []*Conn, event string, payload any) {
	ev := Event{Name: event, Payload: payload}
	for _, c := range conns {
		if !c.trySend(ev) {
			rt.logger.Warn("event dropped: connection buffer full",
				zap.String("conn_id", c.ID),
				zap.String("event", event),
			)
		}
	}
}
