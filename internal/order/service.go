// Package order implements the order lifecycle: the status state machine and
// the orchestrator that drives it, fans out live notifications and feeds the
// durable email pipeline.
package order

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"foodDeliveryManagement/internal/apperr"
	"foodDeliveryManagement/internal/auth"
	"foodDeliveryManagement/internal/geo"
	"foodDeliveryManagement/internal/mailer"
	"foodDeliveryManagement/internal/payment"
	"foodDeliveryManagement/models"
	"foodDeliveryManagement/repository"
)

// Notifier is the live fan-out surface. Deliveries are best-effort and never
// block or fail a state change.
type Notifier interface {
	NotifyUser(userID int64, event string, payload any)
	NotifyDriver(driverID int64, event string, payload any)
	NotifyAdmins(event string, payload any)
	NotifyRole(role models.Role, event string, payload any)
	NotifyRoleExcept(role models.Role, exceptUserID int64, event string, payload any)
	NotifyOrderWatchers(orderID int64, event string, payload any)
}

// EventPublisher hands order events to the durable notification pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, ev mailer.OrderEvent) error
}

// Service orchestrates order use-cases. State changes go through the
// repository's compare-and-set writes; all notification fan-out happens after
// the write succeeded.
type Service struct {
	orders  *repository.OrderRepository
	users   *repository.UserRepository
	gateway payment.Gateway
	notify  Notifier
	events  EventPublisher
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the orchestrator. gateway and events may be nil in tests.
func NewService(
	orders *repository.OrderRepository,
	users *repository.UserRepository,
	gateway payment.Gateway,
	notify Notifier,
	events EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		orders:  orders,
		users:   users,
		gateway: gateway,
		notify:  notify,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateInput is a new order request. Prices are not accepted from the
// client; every line is priced from the catalog.
type CreateInput struct {
	Items   []ItemInput    `json:"items"`
	Address models.Address `json:"address"`
	Phone   string         `json:"phone"`
}

// ItemInput is one requested line item.
type ItemInput struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

const maxOrderItems = 50

func (in *CreateInput) validate() error {
	if len(in.Items) == 0 {
		return apperr.New(apperr.KindValidation, "order must contain at least one item")
	}
	if len(in.Items) > maxOrderItems {
		return apperr.Newf(apperr.KindValidation, "order cannot exceed %d items", maxOrderItems)
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return apperr.New(apperr.KindValidation, "item product_id is required")
		}
		if it.Size == "" {
			return apperr.New(apperr.KindValidation, "item size is required")
		}
		if it.Quantity <= 0 {
			return apperr.New(apperr.KindValidation, "item quantity must be positive")
		}
	}
	if in.Address.Street == "" || in.Address.City == "" || in.Address.State == "" {
		return apperr.New(apperr.KindValidation, "delivery address requires street, city and state")
	}
	if in.Phone == "" {
		return apperr.New(apperr.KindValidation, "contact phone is required")
	}
	return nil
}

// Create stores a new pending order and initializes payment for it. The order
// survives a gateway failure; the customer retries payment against the same
// order.
func (s *Service) Create(ctx context.Context, actor *auth.Principal, in CreateInput) (*models.Order, *payment.InitResult, error) {
	if actor == nil || actor.Role != models.RoleCustomer {
		return nil, nil, apperr.New(apperr.KindUnauthorized, "only customers can place orders")
	}
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	customer, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindDependency, "load customer", err)
	}
	if customer == nil {
		return nil, nil, apperr.New(apperr.KindNotFound, "customer account not found")
	}

	o := &models.Order{
		Code:       NewOrderCode(),
		CustomerID: actor.ID,
		Address:    in.Address,
		Phone:      in.Phone,
	}
	for _, it := range in.Items {
		o.Items = append(o.Items, models.OrderItem{
			ProductID: it.ProductID,
			Size:      it.Size,
			Quantity:  it.Quantity,
		})
	}

	if err := s.orders.Create(ctx, o); err != nil {
		switch {
		case errors.Is(err, repository.ErrUnknownProductSize):
			return nil, nil, apperr.Wrap(apperr.KindValidation, "unknown product or size", err)
		case errors.Is(err, repository.ErrProductUnavailable):
			return nil, nil, apperr.Wrap(apperr.KindValidation, "product not available", err)
		}
		return nil, nil, apperr.Wrap(apperr.KindDependency, "create order", err)
	}

	var init *payment.InitResult
	if s.gateway != nil {
		init, err = s.gateway.Initialize(ctx, customer.Email, o.TotalPrice)
		if err != nil {
			// Creation is unwound so no unpayable order lingers.
			if _, delErr := s.orders.DeletePending(ctx, o.ID); delErr != nil {
				s.logger.Error("pending order cleanup failed",
					zap.Int64("order_id", o.ID), zap.Error(delErr))
			}
			return nil, nil, apperr.Wrap(apperr.KindPayment, "payment initialization failed", err)
		}
	}

	s.notify.NotifyUser(o.CustomerID, EventOrderCreated, s.statusUpdate(o, "", actor))
	s.notify.NotifyAdmins(EventNewOrderCreated, s.statusUpdate(o, "", actor))
	s.publishMail(ctx, mailer.OrderEvent{
		Type:          mailer.TypeOrderCreated,
		OrderID:       o.ID,
		OrderCode:     o.Code,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		Status:        string(o.Status),
		TotalPrice:    o.TotalPrice,
		Timestamp:     s.now().UTC(),
	})
	return o, init, nil
}

// Pay verifies a payment reference with the gateway and moves the order from
// pending to placed. Re-verifying an already placed order is a no-op success.
func (s *Service) Pay(ctx context.Context, actor *auth.Principal, orderID int64, reference string) (*models.Order, error) {
	if reference == "" {
		return nil, apperr.New(apperr.KindValidation, "payment reference is required")
	}
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(o) {
		return nil, apperr.New(apperr.KindUnauthorized, "not allowed to pay for this order")
	}

	verdict, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPayment, "payment verification failed", err)
	}
	if !verdict.Succeeded() {
		return nil, apperr.Newf(apperr.KindPayment, "payment not successful: %s", verdict.Status)
	}

	paidAt := verdict.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now().UTC()
	}
	ok, err := s.orders.MarkPaid(ctx, orderID, verdict.Reference, paidAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "record payment", err)
	}
	o, err = s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if o.Status == models.OrderStatusPlaced {
			return o, nil // already confirmed by an earlier verification
		}
		return nil, apperr.Newf(apperr.KindConflict, "order is %s; payment cannot be applied", o.Status)
	}

	upd := s.statusUpdate(o, models.OrderStatusPending, actor)
	s.notify.NotifyUser(o.CustomerID, EventPaymentConfirmed, upd)
	s.notify.NotifyAdmins(EventOrderPaid, upd)
	open := OpenOrder{
		OrderID:    o.ID,
		OrderCode:  o.Code,
		TotalPrice: o.TotalPrice,
		City:       o.Address.City,
		PlacedAt:   s.now().UTC(),
	}
	// Online drivers are pinged directly; with none marked online the pool
	// falls back to a broadcast over the driver role.
	if drivers, err := s.users.ListOnlineDrivers(ctx); err != nil || len(drivers) == 0 {
		if err != nil {
			s.logger.Warn("online driver lookup failed", zap.Int64("order_id", o.ID), zap.Error(err))
		}
		s.notify.NotifyRole(models.RoleDriver, EventNewOrderAvailable, open)
	} else {
		for _, d := range drivers {
			s.notify.NotifyDriver(d.ID, EventNewOrderAvailable, open)
		}
	}
	s.notify.NotifyOrderWatchers(o.ID, EventStatusUpdated, upd)
	s.publishCustomerMail(ctx, o, mailer.TypePaymentConfirmed, models.OrderStatusPending, "", "")
	return o, nil
}

// AssignDriver dispatches a driver onto a placed order. Admin operation; the
// first assignment wins and later ones report conflict.
func (s *Service) AssignDriver(ctx context.Context, actor *auth.Principal, orderID, driverID int64) (*models.Order, error) {
	if !actor.CanAssign() {
		return nil, apperr.New(apperr.KindUnauthorized, "only admins can assign drivers")
	}
	driver, err := s.users.GetByID(ctx, driverID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "load driver", err)
	}
	if driver == nil || driver.Role != models.RoleDriver {
		return nil, apperr.New(apperr.KindNotFound, "driver not found")
	}
	return s.claim(ctx, actor, orderID, driver, false)
}

// Accept lets a driver claim an open order for themselves. Concurrent accepts
// of the same order resolve to exactly one winner.
func (s *Service) Accept(ctx context.Context, actor *auth.Principal, orderID int64) (*models.Order, error) {
	if !actor.CanAccept() {
		return nil, apperr.New(apperr.KindUnauthorized, "only drivers can accept orders")
	}
	driver, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "load driver", err)
	}
	if driver == nil {
		return nil, apperr.New(apperr.KindNotFound, "driver account not found")
	}
	return s.claim(ctx, actor, orderID, driver, true)
}

func (s *Service) claim(ctx context.Context, actor *auth.Principal, orderID int64, driver *models.User, accepted bool) (*models.Order, error) {
	ok, err := s.orders.AssignDriver(ctx, orderID, driver.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "assign driver", err)
	}
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if o.HasDriver() {
			return nil, apperr.New(apperr.KindConflict, "order is no longer available")
		}
		return nil, apperr.Newf(apperr.KindConflict, "order is %s; a driver cannot be assigned", o.Status)
	}

	info := &DriverInfo{ID: driver.ID, Name: driver.Name, Phone: driver.Phone}
	upd := s.statusUpdate(o, models.OrderStatusPlaced, actor)
	upd.Driver = info

	s.notify.NotifyUser(o.CustomerID, EventDriverAssigned, upd)
	s.notify.NotifyDriver(driver.ID, EventOrderAssignedToYou, upd)
	s.notify.NotifyRoleExcept(models.RoleDriver, driver.ID, EventOrderNoLongerOpen, OpenOrder{
		OrderID:   o.ID,
		OrderCode: o.Code,
	})
	if accepted {
		s.notify.NotifyAdmins(EventOrderAcceptedByDriver, upd)
	} else {
		s.notify.NotifyAdmins(EventStatusUpdated, upd)
	}
	s.notify.NotifyOrderWatchers(o.ID, EventStatusUpdated, upd)
	s.publishCustomerMail(ctx, o, mailer.TypeStatusUpdated, models.OrderStatusPlaced,
		"Driver "+driver.Name+" is handling your order.", "")
	return o, nil
}

// UpdateStatus moves an order along the forward edges of the status graph.
// Cancellation has its own operation and is rejected here.
func (s *Service) UpdateStatus(ctx context.Context, actor *auth.Principal, orderID int64, to models.OrderStatus) (*models.Order, error) {
	if to == models.OrderStatusCancelled {
		return nil, apperr.New(apperr.KindValidation, "use the cancel operation to cancel an order")
	}
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(actor, o, to); err != nil {
		return nil, err
	}

	from := o.Status
	ok, err := s.orders.UpdateStatusIf(ctx, orderID, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "update status", err)
	}
	if !ok {
		o, err = s.loadOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, apperr.Newf(apperr.KindConflict, "order moved to %s concurrently", o.Status)
	}
	applyTransition(o, to, s.now().UTC())

	upd := s.statusUpdate(o, from, actor)
	s.notify.NotifyUser(o.CustomerID, EventStatusUpdated, upd)
	switch to {
	case models.OrderStatusOutForDelivery:
		// The departure event carries the driver's contact and an arrival
		// estimate alongside the plain status change.
		started := upd
		if o.HasDriver() {
			if driver, err := s.users.GetByID(ctx, *o.DriverID); err == nil && driver != nil {
				started.Driver = &DriverInfo{ID: driver.ID, Name: driver.Name, Phone: driver.Phone}
			}
		}
		started.ETA = s.arrivalEstimate(o, s.now().UTC())
		s.notify.NotifyUser(o.CustomerID, EventDeliveryStarted, started)
	case models.OrderStatusDelivered:
		s.notify.NotifyUser(o.CustomerID, EventOrderDelivered, upd)
	}
	s.notify.NotifyAdmins(EventStatusUpdated, upd)
	s.notify.NotifyOrderWatchers(o.ID, EventStatusUpdated, upd)

	mailType := mailer.TypeStatusUpdated
	switch to {
	case models.OrderStatusOutForDelivery:
		mailType = mailer.TypeDeliveryStarted
	case models.OrderStatusDelivered:
		mailType = mailer.TypeOrderDelivered
	}
	s.publishCustomerMail(ctx, o, mailType, from, StatusMessage(to), "")
	return o, nil
}

// Cancel aborts an order that has not yet been claimed by a driver.
func (s *Service) Cancel(ctx context.Context, actor *auth.Principal, orderID int64, reason string) (*models.Order, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(actor, o, models.OrderStatusCancelled); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "Order cancelled"
	}

	from := o.Status
	ok, err := s.orders.Cancel(ctx, orderID, reason)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "cancel order", err)
	}
	if !ok {
		o, err = s.loadOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, apperr.Newf(apperr.KindConflict, "order is %s; it can no longer be cancelled", o.Status)
	}
	applyTransition(o, models.OrderStatusCancelled, s.now().UTC())
	o.CancellationReason = &reason

	canc := Cancellation{
		OrderID:     o.ID,
		OrderCode:   o.Code,
		Reason:      reason,
		CancelledBy: actorRef(actor),
		Timestamp:   s.now().UTC(),
	}
	s.notify.NotifyUser(o.CustomerID, EventOrderCancelled, canc)
	s.notify.NotifyAdmins(EventOrderCancelled, canc)
	if o.HasDriver() {
		s.notify.NotifyDriver(*o.DriverID, EventAssignedOrderCancelled, canc)
	}
	s.notify.NotifyOrderWatchers(o.ID, EventOrderCancelled, canc)
	s.publishCustomerMail(ctx, o, mailer.TypeOrderCancelled, from, "", reason)
	return o, nil
}

// LocationInput is a live driver position report.
type LocationInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Heading   float64 `json:"heading"`
	SpeedKPH  float64 `json:"speed_kph"`
}

func (in *LocationInput) validate() error {
	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return apperr.New(apperr.KindValidation, "coordinates out of range")
	}
	return nil
}

// UpdateLocation records the assigned driver's position and broadcasts it to
// the customer and order watchers. Pings after delivery are rejected.
func (s *Service) UpdateLocation(ctx context.Context, actor *auth.Principal, orderID int64, in LocationInput) error {
	if actor == nil || actor.Role != models.RoleDriver {
		return apperr.New(apperr.KindUnauthorized, "only drivers report locations")
	}
	if err := in.validate(); err != nil {
		return err
	}

	now := s.now().UTC()
	loc := models.DriverLocation{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Heading:   in.Heading,
		SpeedKPH:  in.SpeedKPH,
		UpdatedAt: now,
	}
	ok, err := s.orders.UpdateDriverLocation(ctx, orderID, actor.ID, loc)
	if err != nil {
		return apperr.Wrap(apperr.KindDependency, "update driver location", err)
	}
	if !ok {
		o, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.DriverID == nil || *o.DriverID != actor.ID {
			return apperr.New(apperr.KindUnauthorized, "order is not assigned to you")
		}
		return apperr.Newf(apperr.KindConflict, "order is %s; location updates are closed", o.Status)
	}

	// Mirror onto the driver row for discovery views; best-effort.
	if _, err := s.users.UpdateDriverPosition(ctx, actor.ID, in.Latitude, in.Longitude); err != nil {
		s.logger.Warn("driver position mirror failed", zap.Int64("driver_id", actor.ID), zap.Error(err))
	}

	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	upd := LocationUpdate{
		OrderID:   o.ID,
		OrderCode: o.Code,
		DriverID:  actor.ID,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Heading:   in.Heading,
		SpeedKPH:  in.SpeedKPH,
		Timestamp: now,
	}
	if o.Address.Latitude != nil && o.Address.Longitude != nil {
		eta := geo.EstimateArrival(in.Latitude, in.Longitude, *o.Address.Latitude, *o.Address.Longitude, now)
		upd.ETA = &ETAView{
			DistanceKm: geo.HaversineKm(in.Latitude, in.Longitude, *o.Address.Latitude, *o.Address.Longitude),
			Minutes:    eta.EstimatedMinutes,
			ArrivalAt:  eta.EstimatedArrival,
		}
	}
	s.notify.NotifyUser(o.CustomerID, EventDriverLocationUpdated, upd)
	s.notify.NotifyOrderWatchers(o.ID, EventDriverLocationUpdated, upd)
	s.notify.NotifyAdmins(EventDriverLocationUpdated, upd)
	return nil
}

// TrackView is the customer-facing tracking snapshot for an order.
type TrackView struct {
	Order         *models.Order `json:"order"`
	StatusMessage string        `json:"status_message"`
	ETA           *ETAView      `json:"eta,omitempty"`
}

// statusMinutes is the coarse remaining-time heuristic used before a live
// driver position is available.
var statusMinutes = map[models.OrderStatus]float64{
	models.OrderStatusPending:        50,
	models.OrderStatusPlaced:         45,
	models.OrderStatusAssigned:       35,
	models.OrderStatusPreparing:      30,
	models.OrderStatusOutForDelivery: 15,
}

// Track returns the order with a human status message and an arrival
// estimate. While out for delivery with a known destination, the estimate is
// distance-based; otherwise it falls back to the status heuristic.
func (s *Service) Track(ctx context.Context, actor *auth.Principal, orderID int64) (*TrackView, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(o) {
		return nil, apperr.New(apperr.KindUnauthorized, "not allowed to view this order")
	}

	view := &TrackView{Order: o, StatusMessage: StatusMessage(o.Status)}
	view.ETA = s.arrivalEstimate(o, s.now().UTC())
	return view, nil
}

// arrivalEstimate returns the remaining-time estimate for an active order.
// While out for delivery with a live driver position and a known destination
// the estimate is distance-based; otherwise it falls back to the per-status
// heuristic. Terminal orders have no estimate.
func (s *Service) arrivalEstimate(o *models.Order, now time.Time) *ETAView {
	if o.IsTerminal() {
		return nil
	}
	if o.Status == models.OrderStatusOutForDelivery &&
		o.DriverLocation != nil && o.Address.Latitude != nil && o.Address.Longitude != nil {
		eta := geo.EstimateArrival(
			o.DriverLocation.Latitude, o.DriverLocation.Longitude,
			*o.Address.Latitude, *o.Address.Longitude, now)
		return &ETAView{
			DistanceKm: geo.HaversineKm(
				o.DriverLocation.Latitude, o.DriverLocation.Longitude,
				*o.Address.Latitude, *o.Address.Longitude),
			Minutes:   eta.EstimatedMinutes,
			ArrivalAt: eta.EstimatedArrival,
		}
	}
	if mins, ok := statusMinutes[o.Status]; ok {
		return &ETAView{
			Minutes:   mins,
			ArrivalAt: now.Add(time.Duration(mins * float64(time.Minute))),
		}
	}
	return nil
}

// Get returns a single order the actor may view.
func (s *Service) Get(ctx context.Context, actor *auth.Principal, orderID int64) (*models.Order, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(o) {
		return nil, apperr.New(apperr.KindUnauthorized, "not allowed to view this order")
	}
	return o, nil
}

// ListForCustomer returns the actor's own orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, actor *auth.Principal, beforeID int64, limit int) ([]*models.Order, error) {
	orders, err := s.orders.ListByCustomer(ctx, actor.ID, beforeID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "list orders", err)
	}
	return orders, nil
}

// ListForDriver returns the orders assigned to the acting driver.
func (s *Service) ListForDriver(ctx context.Context, actor *auth.Principal, beforeID int64, limit int) ([]*models.Order, error) {
	orders, err := s.orders.ListByDriver(ctx, actor.ID, beforeID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "list orders", err)
	}
	return orders, nil
}

// ListOpen returns the unclaimed order pool for drivers, oldest first.
func (s *Service) ListOpen(ctx context.Context, actor *auth.Principal, limit int) ([]*models.Order, error) {
	if actor == nil || actor.Role != models.RoleDriver {
		return nil, apperr.New(apperr.KindUnauthorized, "driver access required")
	}
	orders, err := s.orders.ListUnassigned(ctx, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "list open orders", err)
	}
	return orders, nil
}

// ListAll returns all orders, optionally filtered by status. Admin operation.
func (s *Service) ListAll(ctx context.Context, actor *auth.Principal, status models.OrderStatus, beforeID int64, limit int) ([]*models.Order, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.KindUnauthorized, "admin access required")
	}
	var (
		orders []*models.Order
		err    error
	)
	if status != "" {
		if !ValidStatus(status) {
			return nil, apperr.Newf(apperr.KindValidation, "invalid status filter %q", status)
		}
		orders, err = s.orders.ListByStatus(ctx, status, beforeID, limit)
	} else {
		orders, err = s.orders.ListAll(ctx, beforeID, limit)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "list orders", err)
	}
	return orders, nil
}

// Dashboard returns the admin summary aggregates.
func (s *Service) Dashboard(ctx context.Context, actor *auth.Principal) (*repository.Dashboard, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.KindUnauthorized, "admin access required")
	}
	d, err := s.orders.GetDashboard(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "load dashboard", err)
	}
	return d, nil
}

// Analytics returns trailing per-day order stats. Admin operation.
func (s *Service) Analytics(ctx context.Context, actor *auth.Principal, days int) ([]repository.DailyStat, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.KindUnauthorized, "admin access required")
	}
	stats, err := s.orders.GetAnalytics(ctx, days)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "load analytics", err)
	}
	return stats, nil
}

// SetDriverStatus flips the acting driver's availability and tells admins.
func (s *Service) SetDriverStatus(ctx context.Context, actor *auth.Principal, online bool) error {
	if actor == nil || actor.Role != models.RoleDriver {
		return apperr.New(apperr.KindUnauthorized, "driver access required")
	}
	ok, err := s.users.SetDriverStatus(ctx, actor.ID, online)
	if err != nil {
		return apperr.Wrap(apperr.KindDependency, "set driver status", err)
	}
	if !ok {
		return apperr.New(apperr.KindNotFound, "driver account not found")
	}
	s.notify.NotifyAdmins(EventDriverStatusChanged, DriverStatus{
		DriverID: actor.ID,
		Name:     actor.Name,
		IsOnline: online,
		At:       s.now().UTC(),
	})
	return nil
}

// RateOrder records a customer's one-time rating of a delivered order.
func (s *Service) RateOrder(ctx context.Context, actor *auth.Principal, orderID int64, rating int, review string) error {
	if actor == nil || actor.Role != models.RoleCustomer {
		return apperr.New(apperr.KindUnauthorized, "only customers rate orders")
	}
	if rating < 1 || rating > 5 {
		return apperr.New(apperr.KindValidation, "rating must be between 1 and 5")
	}
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.CustomerID != actor.ID {
		return apperr.New(apperr.KindUnauthorized, "not allowed to rate this order")
	}

	ok, err := s.orders.SetRating(ctx, orderID, rating, review)
	if err != nil {
		return apperr.Wrap(apperr.KindDependency, "set rating", err)
	}
	if !ok {
		return apperr.New(apperr.KindConflict, "only delivered orders can be rated, once")
	}

	ev := RatingEvent{
		OrderID:   o.ID,
		OrderCode: o.Code,
		Rating:    rating,
		Review:    review,
		Timestamp: s.now().UTC(),
	}
	if o.HasDriver() {
		s.notify.NotifyDriver(*o.DriverID, EventOrderRated, ev)
	}
	s.notify.NotifyAdmins(EventOrderRated, ev)
	return nil
}

const maxMessageLen = 1000

// MessageDriver relays a short customer message to the driver handling the
// order. Purely ephemeral: undelivered messages are lost.
func (s *Service) MessageDriver(ctx context.Context, actor *auth.Principal, orderID int64, body string) error {
	if actor == nil || actor.Role != models.RoleCustomer {
		return apperr.New(apperr.KindUnauthorized, "only customers message drivers")
	}
	if body == "" {
		return apperr.New(apperr.KindValidation, "message body is required")
	}
	if len(body) > maxMessageLen {
		return apperr.Newf(apperr.KindValidation, "message exceeds %d characters", maxMessageLen)
	}
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.CustomerID != actor.ID {
		return apperr.New(apperr.KindUnauthorized, "not allowed to message on this order")
	}
	if !o.HasDriver() || o.IsTerminal() {
		return apperr.New(apperr.KindConflict, "no driver is active on this order")
	}

	s.notify.NotifyDriver(*o.DriverID, EventCustomerMessage, Message{
		OrderID:   o.ID,
		OrderCode: o.Code,
		From:      *actorRef(actor),
		Body:      body,
		Timestamp: s.now().UTC(),
	})
	return nil
}

func (s *Service) loadOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, "load order", err)
	}
	if o == nil {
		return nil, apperr.New(apperr.KindNotFound, "order not found")
	}
	return o, nil
}

func (s *Service) statusUpdate(o *models.Order, from models.OrderStatus, actor *auth.Principal) StatusUpdate {
	return StatusUpdate{
		OrderID:   o.ID,
		OrderCode: o.Code,
		Status:    o.Status,
		Previous:  from,
		Message:   StatusMessage(o.Status),
		UpdatedBy: actorRef(actor),
		Timestamp: s.now().UTC(),
	}
}

func actorRef(p *auth.Principal) *Actor {
	if p == nil {
		return nil
	}
	return &Actor{ID: p.ID, Name: p.Name, Role: string(p.Role)}
}

// publishCustomerMail loads the order's customer and publishes a durable
// event for the mailer. Failures are logged and swallowed.
func (s *Service) publishCustomerMail(ctx context.Context, o *models.Order, mailType string, prev models.OrderStatus, message, reason string) {
	customer, err := s.users.GetByID(ctx, o.CustomerID)
	if err != nil || customer == nil {
		s.logger.Warn("mail event skipped: customer lookup failed",
			zap.Int64("order_id", o.ID), zap.Error(err))
		return
	}
	s.publishMail(ctx, mailer.OrderEvent{
		Type:           mailType,
		OrderID:        o.ID,
		OrderCode:      o.Code,
		CustomerName:   customer.Name,
		CustomerEmail:  customer.Email,
		Status:         string(o.Status),
		PreviousStatus: string(prev),
		TotalPrice:     o.TotalPrice,
		Message:        message,
		Reason:         reason,
		Timestamp:      s.now().UTC(),
	})
}

func (s *Service) publishMail(ctx context.Context, ev mailer.OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Error("order event publish failed",
			zap.String("type", ev.Type), zap.Int64("order_id", ev.OrderID), zap.Error(err))
	}
}
