package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"foodDeliveryManagement/models"
)

var (
	connectionsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Currently registered live connections per role",
		},
		[]string{"role"},
	)

	eventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Events dropped because a connection buffer was full",
		},
	)
)

func init() {
	prometheus.MustRegister(connectionsGauge)
	prometheus.MustRegister(eventsDroppedTotal)
}

// Event is a named, JSON-serializable message pushed to a live connection.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// connBuffer is the per-connection event queue depth. Sends never block: a
// slow consumer loses events rather than stalling a state transition.
const connBuffer = 64

// Conn is one live session bound to an authenticated identity. Not durable;
// lost on process restart.
type Conn struct {
	ID          string
	UserID      int64
	Role        models.Role
	ConnectedAt time.Time

	ch chan Event
}

// Events returns the channel the transport drains to push events to the client.
func (c *Conn) Events() <-chan Event { return c.ch }

// trySend enqueues ev without blocking. Returns false if the buffer is full.
func (c *Conn) trySend(ev Event) bool {
	select {
	case c.ch <- ev:
		return true
	default:
		eventsDroppedTotal.Inc()
		return false
	}
}

// Stats are per-role connection counts for observability.
type Stats struct {
	Total       int       `json:"total"`
	Customers   int       `json:"customers"`
	Drivers     int       `json:"drivers"`
	Admins      int       `json:"admins"`
	LastUpdated time.Time `json:"last_updated"`
}

// Registry tracks live connections indexed by connection id and by
// (role, identity). An identity may hold several simultaneous connections
// (multiple devices); targeted delivery fans out to all of them.
//
// Registries are plain values wired in at construction, never package
// globals, so tests can run several isolated instances.
type Registry struct {
	logger *zap.Logger

	mu     sync.RWMutex
	conns  map[string]*Conn
	byUser map[models.Role]map[int64]map[string]struct{}
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger: logger,
		conns:  make(map[string]*Conn),
		byUser: make(map[models.Role]map[int64]map[string]struct{}),
	}
}

// Register creates and stores a connection for the given identity. It always
// succeeds; existing connections of the same identity are kept reachable.
func (r *Registry) Register(userID int64, role models.Role) *Conn {
	c := &Conn{
		ID:          uuid.NewString(),
		UserID:      userID,
		Role:        role,
		ConnectedAt: time.Now(),
		ch:          make(chan Event, connBuffer),
	}

	r.mu.Lock()
	r.conns[c.ID] = c
	byID, ok := r.byUser[role]
	if !ok {
		byID = make(map[int64]map[string]struct{})
		r.byUser[role] = byID
	}
	set, ok := byID[userID]
	if !ok {
		set = make(map[string]struct{})
		byID[userID] = set
	}
	set[c.ID] = struct{}{}
	r.mu.Unlock()

	connectionsGauge.WithLabelValues(string(role)).Inc()
	r.logger.Info("connection registered",
		zap.String("conn_id", c.ID),
		zap.Int64("user_id", userID),
		zap.String("role", string(role)),
	)
	return c
}

// Unregister removes the connection and its role index entry. Unregistering
// an unknown id is a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
		if set, ok := r.byUser[c.Role][c.UserID]; ok {
			delete(set, connID)
			if len(set) == 0 {
				delete(r.byUser[c.Role], c.UserID)
			}
		}
	}
	r.mu.Unlock()

	if ok {
		connectionsGauge.WithLabelValues(string(c.Role)).Dec()
		r.logger.Info("connection removed",
			zap.String("conn_id", connID),
			zap.Int64("user_id", c.UserID),
			zap.String("role", string(c.Role)),
		)
	}
}

// Get returns a connection by id, or nil.
func (r *Registry) Get(connID string) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[connID]
}

// Lookup returns every live connection for the given identity and role.
func (r *Registry) Lookup(role models.Role, userID int64) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[role][userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(set))
	for id := range set {
		if c := r.conns[id]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// AllOfRole returns every registered connection for a role.
func (r *Registry) AllOfRole(role models.Role) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Conn
	for _, set := range r.byUser[role] {
		for id := range set {
			if c := r.conns[id]; c != nil {
				out = append(out, c)
			}
		}
	}
	return out
}

// Stats returns current per-role connection counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Stats{Total: len(r.conns), LastUpdated: time.Now()}
	for _, c := range r.conns {
		switch c.Role {
		case models.RoleCustomer:
			s.Customers++
		case models.RoleDriver:
			s.Drivers++
		case models.RoleAdmin:
			s.Admins++
		}
	}
	return s
}
