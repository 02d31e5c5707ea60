package realtime

import (
	"testing"

	"go.uber.org/zap"

	"foodDeliveryManagement/models"
)

func drain(c *Conn) []Event {
	var out []Event
	for {
		select {
		case ev := <-c.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestNotifyOrderWatchers(t *testing.T) {
	reg := newTestRegistry()
	router := NewRouter(reg, zap.NewNop())

	customer := reg.Register(1, models.RoleCustomer)
	driver := reg.Register(2, models.RoleDriver)
	bystander := reg.Register(3, models.RoleCustomer)

	router.Watch(42, customer.ID)
	router.Watch(42, driver.ID)
	router.Watch(99, bystander.ID)

	router.NotifyOrderWatchers(42, "driver_location_updated", nil)

	if got := drain(customer); len(got) != 1 {
		t.Errorf("customer: expected 1 event, got %d", len(got))
	}
	if got := drain(driver); len(got) != 1 {
		t.Errorf("driver: expected 1 event, got %d", len(got))
	}
	if got := drain(bystander); len(got) != 0 {
		t.Errorf("bystander watching another order got %d events", len(got))
	}
}

func TestWatchUnknownConnectionIgnored(t *testing.T) {
	reg := newTestRegistry()
	router := NewRouter(reg, zap.NewNop())

	router.Watch(42, "no-such-conn")
	// Must not panic and must deliver to nobody.
	router.NotifyOrderWatchers(42, "order_status_updated", nil)
}

func TestDropConnectionEvictsWatches(t *testing.T) {
	reg := newTestRegistry()
	router := NewRouter(reg, zap.NewNop())

	c := reg.Register(1, models.RoleCustomer)
	router.Watch(42, c.ID)
	router.DropConnection(c.ID)

	if reg.Get(c.ID) != nil {
		t.Error("connection should be unregistered")
	}
	router.NotifyOrderWatchers(42, "order_status_updated", nil)
	if got := drain(c); len(got) != 0 {
		t.Errorf("dropped connection received %d events", len(got))
	}
}

func TestNotifyRoleAndAdmins(t *testing.T) {
	reg := newTestRegistry()
	router := NewRouter(reg, zap.NewNop())

	d1 := reg.Register(10, models.RoleDriver)
	d2 := reg.Register(11, models.RoleDriver)
	a := reg.Register(20, models.RoleAdmin)

	router.NotifyRole(models.RoleDriver, "new_order_available", nil)
	router.NotifyAdmins("new_order_created", nil)

	if len(drain(d1)) != 1 || len(drain(d2)) != 1 {
		t.Error("every driver should receive the role broadcast")
	}
	evs := drain(a)
	if len(evs) != 1 || evs[0].Name != "new_order_created" {
		t.Errorf("admin events: %v", evs)
	}
}

func TestNotifyRoleExceptSkipsOneUser(t *testing.T) {
	reg := newTestRegistry()
	router := NewRouter(reg, zap.NewNop())

	winner := reg.Register(10, models.RoleDriver)
	winnerPhone := reg.Register(10, models.RoleDriver) // second device, same user
	loser := reg.Register(11, models.RoleDriver)

	router.NotifyRoleExcept(models.RoleDriver, 10, "order_no_longer_available", nil)

	if got := drain(loser); len(got) != 1 {
		t.Errorf("other driver got %d events, want 1", len(got))
	}
	if len(drain(winner))+len(drain(winnerPhone)) != 0 {
		t.Error("excluded user received the broadcast")
	}
}

func TestNotifyOfflineUserIsNoOp(t *testing.T) {
	reg := newTestRegistry()
	router := NewRouter(reg, zap.NewNop())
	// No connections registered; must simply do nothing.
	router.NotifyUser(1, "payment_confirmed", nil)
	router.NotifyDriver(2, "order_assigned_to_you", nil)
}
