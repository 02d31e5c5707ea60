package order

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"foodDeliveryManagement/internal/apperr"
	"foodDeliveryManagement/internal/auth"
	"foodDeliveryManagement/internal/mailer"
	"foodDeliveryManagement/internal/payment"
	"foodDeliveryManagement/internal/testutil"
	"foodDeliveryManagement/models"
	"foodDeliveryManagement/repository"
)

type sentEvent struct {
	target  string // "user", "driver", "admins", "role", "roleExcept", "watchers"
	id      int64
	name    string
	payload any
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeNotifier) record(target string, id int64, name string, payload any) {
	f.mu.Lock()
	f.events = append(f.events, sentEvent{target: target, id: id, name: name, payload: payload})
	f.mu.Unlock()
}

func (f *fakeNotifier) NotifyUser(userID int64, event string, payload any) {
	f.record("user", userID, event, payload)
}
func (f *fakeNotifier) NotifyDriver(driverID int64, event string, payload any) {
	f.record("driver", driverID, event, payload)
}
func (f *fakeNotifier) NotifyAdmins(event string, payload any) { f.record("admins", 0, event, payload) }
func (f *fakeNotifier) NotifyRole(role models.Role, event string, payload any) {
	f.record("role", 0, event, payload)
}
func (f *fakeNotifier) NotifyRoleExcept(_ models.Role, exceptUserID int64, event string, payload any) {
	f.record("roleExcept", exceptUserID, event, payload)
}
func (f *fakeNotifier) NotifyOrderWatchers(orderID int64, event string, payload any) {
	f.record("watchers", orderID, event, payload)
}

func (f *fakeNotifier) count(target, name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.target == target && e.name == name {
			n++
		}
	}
	return n
}

func (f *fakeNotifier) last(target, name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].target == target && f.events[i].name == name {
			return f.events[i].payload
		}
	}
	return nil
}

type fakeGateway struct {
	verifyStatus string
	initErr      error
	initCalls    int
}

func (g *fakeGateway) Initialize(_ context.Context, _ string, _ float64) (*payment.InitResult, error) {
	g.initCalls++
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &payment.InitResult{Reference: "gw-ref", AuthorizationURL: "https://pay.example/redirect"}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*payment.VerifyResult, error) {
	status := g.verifyStatus
	if status == "" {
		status = "success"
	}
	return &payment.VerifyResult{Status: status, Reference: reference, PaidAt: time.Now()}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []mailer.OrderEvent
}

func (p *fakePublisher) Publish(_ context.Context, ev mailer.OrderEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	svc      *Service
	db       *sql.DB
	notifier *fakeNotifier
	gateway  *fakeGateway
	mail     *fakePublisher

	customer *auth.Principal
	driver   *auth.Principal
	driver2  *auth.Principal
	admin    *auth.Principal

	productID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := testutil.OpenInMemoryDB(t)

	f := &fixture{
		db:       d,
		notifier: &fakeNotifier{},
		gateway:  &fakeGateway{},
		mail:     &fakePublisher{},
	}

	customerID := testutil.SeedUser(t, d, "Ada", "ada@example.com", models.RoleCustomer)
	driverID := testutil.SeedUser(t, d, "Dru", "dru@example.com", models.RoleDriver)
	driver2ID := testutil.SeedUser(t, d, "Eve", "eve@example.com", models.RoleDriver)
	adminID := testutil.SeedUser(t, d, "Root", "root@example.com", models.RoleAdmin)

	f.customer = &auth.Principal{ID: customerID, Name: "Ada", Role: models.RoleCustomer}
	f.driver = &auth.Principal{ID: driverID, Name: "Dru", Role: models.RoleDriver}
	f.driver2 = &auth.Principal{ID: driver2ID, Name: "Eve", Role: models.RoleDriver}
	f.admin = &auth.Principal{ID: adminID, Name: "Root", Role: models.RoleAdmin}

	f.productID = testutil.SeedProduct(t, d, "Margherita", map[string]float64{
		"small": 8.50, "large": 12.00,
	})

	f.svc = NewService(
		repository.NewOrderRepository(d),
		repository.NewUserRepository(d),
		f.gateway,
		f.notifier,
		f.mail,
		zap.NewNop(),
	)
	return f
}

func (f *fixture) createOrder(t *testing.T) *models.Order {
	t.Helper()
	o, init, err := f.svc.Create(context.Background(), f.customer, CreateInput{
		Items:   []ItemInput{{ProductID: f.productID, Size: "large", Quantity: 2}},
		Address: models.Address{Street: "1 Main St", City: "Springfield", State: "IL"},
		Phone:   "+15550100",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if init == nil || init.Reference == "" {
		t.Fatal("expected payment init result")
	}
	return o
}

func (f *fixture) placeOrder(t *testing.T) *models.Order {
	t.Helper()
	o := f.createOrder(t)
	paid, err := f.svc.Pay(context.Background(), f.customer, o.ID, "gw-ref")
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	return paid
}

func TestCreatePricesFromCatalogAndNotifies(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t)

	if o.Status != models.OrderStatusPending {
		t.Errorf("status = %s, want pending", o.Status)
	}
	if o.TotalPrice != 24.00 {
		t.Errorf("total = %v, want 24.00 from catalog", o.TotalPrice)
	}
	if f.notifier.count("user", EventOrderCreated) != 1 {
		t.Error("customer did not receive order_created")
	}
	if f.notifier.count("admins", EventNewOrderCreated) != 1 {
		t.Error("admins did not receive new_order_created")
	}
	if got := f.mail.types(); len(got) != 1 || got[0] != mailer.TypeOrderCreated {
		t.Errorf("mail events = %v, want [order_created]", got)
	}
}

func TestCreateRejectsNonCustomerAndBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Create(ctx, f.driver, CreateInput{})
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("driver create err = %v, want unauthorized", err)
	}

	_, _, err = f.svc.Create(ctx, f.customer, CreateInput{
		Address: models.Address{Street: "1 Main St", City: "Springfield", State: "IL"},
		Phone:   "+15550100",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("empty items err = %v, want validation", err)
	}

	_, _, err = f.svc.Create(ctx, f.customer, CreateInput{
		Items:   []ItemInput{{ProductID: f.productID, Size: "mega", Quantity: 1}},
		Address: models.Address{Street: "1 Main St", City: "Springfield", State: "IL"},
		Phone:   "+15550100",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("unknown size err = %v, want validation", err)
	}
}

func TestCreateUnwoundWhenPaymentInitFails(t *testing.T) {
	f := newFixture(t)
	f.gateway.initErr = context.DeadlineExceeded
	ctx := context.Background()

	_, _, err := f.svc.Create(ctx, f.customer, CreateInput{
		Items:   []ItemInput{{ProductID: f.productID, Size: "small", Quantity: 1}},
		Address: models.Address{Street: "1 Main St", City: "Springfield", State: "IL"},
		Phone:   "+15550100",
	})
	if !apperr.Is(err, apperr.KindPayment) {
		t.Fatalf("err = %v, want payment kind", err)
	}

	orders, err := f.svc.ListForCustomer(ctx, f.customer, 0, 10)
	if err != nil {
		t.Fatalf("ListForCustomer: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("orders after failed init = %d, want 0 (creation unwound)", len(orders))
	}
	if f.notifier.count("user", EventOrderCreated) != 0 {
		t.Error("order_created fired for an unwound order")
	}
}

func TestPayPlacesOrderOnceAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t)
	ctx := context.Background()

	paid, err := f.svc.Pay(ctx, f.customer, o.ID, "gw-ref")
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if paid.Status != models.OrderStatusPlaced {
		t.Errorf("status = %s, want placed", paid.Status)
	}
	if f.notifier.count("role", EventNewOrderAvailable) != 1 {
		t.Error("driver pool did not hear new_order_available")
	}
	if f.notifier.count("watchers", EventStatusUpdated) != 1 {
		t.Error("order watchers did not hear the placed transition")
	}

	again, err := f.svc.Pay(ctx, f.customer, o.ID, "gw-ref")
	if err != nil {
		t.Fatalf("second Pay: %v", err)
	}
	if again.Status != models.OrderStatusPlaced {
		t.Errorf("second pay status = %s", again.Status)
	}
	if n := f.notifier.count("role", EventNewOrderAvailable); n != 1 {
		t.Errorf("new_order_available broadcast %d times, want 1", n)
	}
	if n := f.notifier.count("watchers", EventStatusUpdated); n != 1 {
		t.Errorf("watchers notified %d times, want 1", n)
	}
}

func TestPayTargetsOnlineDrivers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.SetDriverStatus(ctx, f.driver, true); err != nil {
		t.Fatalf("SetDriverStatus: %v", err)
	}

	o := f.createOrder(t)
	if _, err := f.svc.Pay(ctx, f.customer, o.ID, "gw-ref"); err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if f.notifier.count("driver", EventNewOrderAvailable) != 1 {
		t.Error("online driver was not pinged directly")
	}
	if f.notifier.count("role", EventNewOrderAvailable) != 0 {
		t.Error("role broadcast fired despite an online driver")
	}
}

func TestPayFailedVerificationLeavesOrderPending(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t)
	f.gateway.verifyStatus = "failed"

	_, err := f.svc.Pay(context.Background(), f.customer, o.ID, "gw-ref")
	if !apperr.Is(err, apperr.KindPayment) {
		t.Fatalf("err = %v, want payment kind", err)
	}
	got, err := f.svc.Get(context.Background(), f.customer, o.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.OrderStatusPending {
		t.Errorf("status = %s, want pending after failed verification", got.Status)
	}
}

func TestAcceptRaceSingleWinner(t *testing.T) {
	f := newFixture(t)
	o := f.placeOrder(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for _, p := range []*auth.Principal{f.driver, f.driver2} {
		wg.Add(1)
		go func(p *auth.Principal) {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, p, o.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				t.Errorf("Accept err = %v", err)
			}
		}(p)
	}
	wg.Wait()

	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins = %d conflicts = %d, want 1 and 1", wins, conflicts)
	}
	if f.notifier.count("user", EventDriverAssigned) != 1 {
		t.Error("customer did not hear driver_assigned exactly once")
	}
	if f.notifier.count("admins", EventOrderAcceptedByDriver) != 1 {
		t.Error("admins did not hear order_accepted_by_driver")
	}
	if f.notifier.count("roleExcept", EventOrderNoLongerOpen) != 1 {
		t.Error("other drivers did not hear order_no_longer_available")
	}
}

func TestAcceptRequiresDriverRole(t *testing.T) {
	f := newFixture(t)
	o := f.placeOrder(t)

	_, err := f.svc.Accept(context.Background(), f.customer, o.ID)
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("customer accept err = %v, want unauthorized", err)
	}
}

func TestAssignDriverByAdmin(t *testing.T) {
	f := newFixture(t)
	o := f.placeOrder(t)
	ctx := context.Background()

	got, err := f.svc.AssignDriver(ctx, f.admin, o.ID, f.driver.ID)
	if err != nil {
		t.Fatalf("AssignDriver: %v", err)
	}
	if got.Status != models.OrderStatusAssigned || got.DriverID == nil || *got.DriverID != f.driver.ID {
		t.Errorf("order = %s driver %v", got.Status, got.DriverID)
	}
	if f.notifier.count("driver", EventOrderAssignedToYou) != 1 {
		t.Error("driver did not hear order_assigned_to_you")
	}

	// Assigning an unknown or non-driver account fails cleanly.
	_, err = f.svc.AssignDriver(ctx, f.admin, o.ID, f.customer.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("assign customer err = %v, want not_found", err)
	}
	_, err = f.svc.AssignDriver(ctx, f.driver, o.ID, f.driver.ID)
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("driver-as-admin err = %v, want unauthorized", err)
	}
}

func TestUpdateStatusForwardPath(t *testing.T) {
	f := newFixture(t)
	o := f.placeOrder(t)
	ctx := context.Background()

	if _, err := f.svc.Accept(ctx, f.driver, o.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	got, err := f.svc.UpdateStatus(ctx, f.driver, o.ID, models.OrderStatusOutForDelivery)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != models.OrderStatusOutForDelivery {
		t.Errorf("status = %s", got.Status)
	}
	if f.notifier.count("user", EventDeliveryStarted) != 1 {
		t.Error("customer did not hear delivery_started")
	}
	started, ok := f.notifier.last("user", EventDeliveryStarted).(StatusUpdate)
	if !ok {
		t.Fatal("delivery_started payload is not a status update")
	}
	if started.Driver == nil || started.Driver.ID != f.driver.ID {
		t.Error("delivery_started carries no driver contact")
	}
	if started.ETA == nil || started.ETA.Minutes <= 0 {
		t.Error("delivery_started carries no arrival estimate")
	}

	got, err = f.svc.UpdateStatus(ctx, f.driver, o.ID, models.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("UpdateStatus delivered: %v", err)
	}
	if got.DeliveredAt == nil {
		t.Error("delivered_at not set")
	}
	if f.notifier.count("user", EventOrderDelivered) != 1 {
		t.Error("customer did not hear order_delivered")
	}

	// Terminal: no further moves.
	_, err = f.svc.UpdateStatus(ctx, f.admin, o.ID, models.OrderStatusPreparing)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("move from delivered err = %v, want conflict", err)
	}
}

func TestUpdateStatusRejections(t *testing.T) {
	f := newFixture(t)
	o := f.placeOrder(t)
	ctx := context.Background()

	// Skipping to a terminal state from placed is not on the graph.
	_, err := f.svc.UpdateStatus(ctx, f.admin, o.ID, models.OrderStatusDelivered)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("placed->delivered err = %v, want conflict", err)
	}

	if _, err := f.svc.Accept(ctx, f.driver, o.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// A driver who does not hold the order cannot move it.
	_, err = f.svc.UpdateStatus(ctx, f.driver2, o.ID, models.OrderStatusPreparing)
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("foreign driver err = %v, want unauthorized", err)
	}

	// Cancellation is not served by this operation.
	_, err = f.svc.UpdateStatus(ctx, f.admin, o.ID, models.OrderStatusCancelled)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("cancel via status err = %v, want validation", err)
	}

	_, err = f.svc.UpdateStatus(ctx, f.admin, 9999, models.OrderStatusPreparing)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing order err = %v, want not_found", err)
	}
}

func TestCancelWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := f.createOrder(t)
	got, err := f.svc.Cancel(ctx, f.customer, o.ID, "changed my mind")
	if err != nil {
		t.Fatalf("Cancel pending: %v", err)
	}
	if got.Status != models.OrderStatusCancelled {
		t.Errorf("status = %s", got.Status)
	}
	if f.notifier.count("user", EventOrderCancelled) != 1 {
		t.Error("customer did not hear order_cancelled")
	}

	// Once a driver holds the order the window is closed, even for the owner.
	o2 := f.placeOrder(t)
	if _, err := f.svc.Accept(ctx, f.driver, o2.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	_, err = f.svc.Cancel(ctx, f.customer, o2.ID, "too slow")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("cancel assigned err = %v, want conflict", err)
	}

	// A stranger cannot cancel someone else's order.
	o3 := f.createOrder(t)
	stranger := &auth.Principal{ID: 9999, Name: "Mallory", Role: models.RoleCustomer}
	_, err = f.svc.Cancel(ctx, stranger, o3.ID, "")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("stranger cancel err = %v, want unauthorized", err)
	}
}

func TestUpdateLocationAndTrack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	destLat, destLng := 37.80, -122.41
	o, _, err := f.svc.Create(ctx, f.customer, CreateInput{
		Items: []ItemInput{{ProductID: f.productID, Size: "small", Quantity: 1}},
		Address: models.Address{
			Street: "1 Main St", City: "San Francisco", State: "CA",
			Latitude: &destLat, Longitude: &destLng,
		},
		Phone: "+15550100",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Pay(ctx, f.customer, o.ID, "gw-ref"); err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if _, err := f.svc.Accept(ctx, f.driver, o.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// Before departure: heuristic ETA only.
	view, err := f.svc.Track(ctx, f.customer, o.ID)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if view.ETA == nil || view.ETA.DistanceKm != 0 {
		t.Errorf("pre-delivery ETA = %+v, want heuristic with no distance", view.ETA)
	}

	if _, err := f.svc.UpdateStatus(ctx, f.driver, o.ID, models.OrderStatusOutForDelivery); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := f.svc.UpdateLocation(ctx, f.driver, o.ID, LocationInput{Latitude: 37.77, Longitude: -122.42}); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if f.notifier.count("user", EventDriverLocationUpdated) != 1 {
		t.Error("customer did not hear driver_location_updated")
	}

	view, err = f.svc.Track(ctx, f.customer, o.ID)
	if err != nil {
		t.Fatalf("Track after location: %v", err)
	}
	if view.ETA == nil || view.ETA.DistanceKm <= 0 {
		t.Fatalf("ETA = %+v, want distance-based estimate", view.ETA)
	}

	// The other driver cannot report positions for this order.
	err = f.svc.UpdateLocation(ctx, f.driver2, o.ID, LocationInput{Latitude: 37.77, Longitude: -122.42})
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("foreign driver location err = %v, want unauthorized", err)
	}

	// Out-of-range coordinates are rejected before any write.
	err = f.svc.UpdateLocation(ctx, f.driver, o.ID, LocationInput{Latitude: 123, Longitude: 0})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad coords err = %v, want validation", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, f.driver, o.ID, models.OrderStatusDelivered); err != nil {
		t.Fatalf("UpdateStatus delivered: %v", err)
	}
	err = f.svc.UpdateLocation(ctx, f.driver, o.ID, LocationInput{Latitude: 37.78, Longitude: -122.42})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("post-delivery location err = %v, want conflict", err)
	}
}

func TestViewAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.createOrder(t)

	if _, err := f.svc.Get(ctx, f.customer, o.ID); err != nil {
		t.Errorf("owner Get: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.admin, o.ID); err != nil {
		t.Errorf("admin Get: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.driver, o.ID); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Error("unassigned driver could read the order")
	}
}

func TestRateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.placeOrder(t)
	if _, err := f.svc.Accept(ctx, f.driver, o.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// Not delivered yet.
	err := f.svc.RateOrder(ctx, f.customer, o.ID, 5, "fast")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("rate undelivered err = %v, want conflict", err)
	}

	f.svc.UpdateStatus(ctx, f.driver, o.ID, models.OrderStatusOutForDelivery)
	f.svc.UpdateStatus(ctx, f.driver, o.ID, models.OrderStatusDelivered)

	if err := f.svc.RateOrder(ctx, f.customer, o.ID, 0, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("rating 0 err = %v, want validation", err)
	}
	if err := f.svc.RateOrder(ctx, f.customer, o.ID, 5, "fast"); err != nil {
		t.Fatalf("RateOrder: %v", err)
	}
	if f.notifier.count("driver", EventOrderRated) != 1 {
		t.Error("driver did not hear order_rated")
	}
	if err := f.svc.RateOrder(ctx, f.customer, o.ID, 1, "revised"); !apperr.Is(err, apperr.KindConflict) {
		t.Error("second rating accepted")
	}
}

func TestMessageDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.placeOrder(t)

	// No driver yet.
	err := f.svc.MessageDriver(ctx, f.customer, o.ID, "ring the bell")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("message without driver err = %v, want conflict", err)
	}

	if _, err := f.svc.Accept(ctx, f.driver, o.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := f.svc.MessageDriver(ctx, f.customer, o.ID, "ring the bell"); err != nil {
		t.Fatalf("MessageDriver: %v", err)
	}
	if f.notifier.count("driver", EventCustomerMessage) != 1 {
		t.Error("driver did not hear customer_message")
	}

	if err := f.svc.MessageDriver(ctx, f.customer, o.ID, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Error("empty message accepted")
	}
	if err := f.svc.MessageDriver(ctx, f.driver, o.ID, "hi"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Error("driver sent customer message")
	}
}

func TestDriverStatusAndAdminReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.SetDriverStatus(ctx, f.driver, true); err != nil {
		t.Fatalf("SetDriverStatus: %v", err)
	}
	if f.notifier.count("admins", EventDriverStatusChanged) != 1 {
		t.Error("admins did not hear driver_status_changed")
	}
	if err := f.svc.SetDriverStatus(ctx, f.customer, true); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Error("customer flipped driver status")
	}

	f.placeOrder(t)
	if _, err := f.svc.Dashboard(ctx, f.admin); err != nil {
		t.Errorf("Dashboard: %v", err)
	}
	if _, err := f.svc.Dashboard(ctx, f.driver); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Error("driver read the dashboard")
	}
	if _, err := f.svc.Analytics(ctx, f.admin, 30); err != nil {
		t.Errorf("Analytics: %v", err)
	}

	open, err := f.svc.ListOpen(ctx, f.driver, 10)
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(open) != 1 {
		t.Errorf("open pool = %d, want 1", len(open))
	}
}
