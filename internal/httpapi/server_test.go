package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foodDeliveryManagement/internal/order"
	"foodDeliveryManagement/internal/payment"
	"foodDeliveryManagement/internal/realtime"
	"foodDeliveryManagement/internal/testutil"
	"foodDeliveryManagement/models"
	"foodDeliveryManagement/repository"
)

const testSecret = "test-secret"

type stubGateway struct{}

func (stubGateway) Initialize(context.Context, string, float64) (*payment.InitResult, error) {
	return &payment.InitResult{Reference: "gw-ref", AuthorizationURL: "https://pay.example"}, nil
}

func (stubGateway) Verify(_ context.Context, ref string) (*payment.VerifyResult, error) {
	return &payment.VerifyResult{Status: "success", Reference: ref, PaidAt: time.Now()}, nil
}

type env struct {
	engine   *gin.Engine
	tokens   map[string]string
	orderSvc *order.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	d := testutil.OpenInMemoryDB(t)
	customerID := testutil.SeedUser(t, d, "Ada", "ada@example.com", models.RoleCustomer)
	driverID := testutil.SeedUser(t, d, "Dru", "dru@example.com", models.RoleDriver)
	adminID := testutil.SeedUser(t, d, "Root", "root@example.com", models.RoleAdmin)
	testutil.SeedProduct(t, d, "Margherita", map[string]float64{"small": 8.50})

	registry := realtime.NewRegistry(logger)
	router := realtime.NewRouter(registry, logger)
	svc := order.NewService(
		repository.NewOrderRepository(d),
		repository.NewUserRepository(d),
		stubGateway{},
		router,
		nil,
		logger,
	)
	srv := NewServer(svc, registry, router, logger)

	return &env{
		engine:   srv.Routes(testSecret),
		orderSvc: svc,
		tokens: map[string]string{
			"customer": testutil.GenerateJWTHS256(t, testSecret, customerID, "Ada", models.RoleCustomer),
			"driver":   testutil.GenerateJWTHS256(t, testSecret, driverID, "Dru", models.RoleDriver),
			"admin":    testutil.GenerateJWTHS256(t, testSecret, adminID, "Root", models.RoleAdmin),
		},
	}
}

func (e *env) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func TestHealthzIsPublic(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodGet, "/orders", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list = %d, want 401", w.Code)
	}
	w = e.do(t, http.MethodGet, "/orders", "not-a-token", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token list = %d, want 401", w.Code)
	}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)

	body := `{"items":[{"product_id":1,"size":"small","quantity":2}],
		"address":{"street":"1 Main St","city":"Springfield","state":"IL"},
		"phone":"+15550100"}`
	w := e.do(t, http.MethodPost, "/orders", e.tokens["customer"], body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Order   models.Order        `json:"order"`
		Payment *payment.InitResult `json:"payment"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Order.TotalPrice != 17.00 {
		t.Errorf("total = %v, want 17.00", created.Order.TotalPrice)
	}
	if created.Payment == nil || created.Payment.Reference == "" {
		t.Error("missing payment init in response")
	}
	id := created.Order.ID

	// A driver cannot create orders.
	w = e.do(t, http.MethodPost, "/orders", e.tokens["driver"], body)
	if w.Code != http.StatusForbidden {
		t.Errorf("driver create = %d, want 403", w.Code)
	}

	// Pay, then driver accepts.
	w = e.do(t, http.MethodPost, orderPath(id, "pay"), e.tokens["customer"], `{"reference":"gw-ref"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("pay = %d: %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPost, orderPath(id, "accept"), e.tokens["driver"], "")
	if w.Code != http.StatusOK {
		t.Fatalf("accept = %d: %s", w.Code, w.Body.String())
	}
	// Second accept conflicts.
	w = e.do(t, http.MethodPost, orderPath(id, "accept"), e.tokens["driver"], "")
	if w.Code != http.StatusConflict {
		t.Errorf("second accept = %d, want 409", w.Code)
	}

	// Status forward by the holding driver.
	w = e.do(t, http.MethodPatch, orderPath(id, "status"), e.tokens["driver"], `{"status":"out-for-delivery"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	// Cancel now conflicts: the order left the cancellation window.
	w = e.do(t, http.MethodPost, orderPath(id, "cancel"), e.tokens["customer"], `{"reason":"nope"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("late cancel = %d, want 409", w.Code)
	}

	// Track view is visible to the owner.
	w = e.do(t, http.MethodGet, orderPath(id, "track"), e.tokens["customer"], "")
	if w.Code != http.StatusOK {
		t.Fatalf("track = %d: %s", w.Code, w.Body.String())
	}
}

func TestRoleScopedListsAndAdminSurface(t *testing.T) {
	e := newEnv(t)

	body := `{"items":[{"product_id":1,"size":"small","quantity":1}],
		"address":{"street":"1 Main St","city":"Springfield","state":"IL"},
		"phone":"+15550100"}`
	if w := e.do(t, http.MethodPost, "/orders", e.tokens["customer"], body); w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}

	w := e.do(t, http.MethodGet, "/orders", e.tokens["customer"], "")
	if w.Code != http.StatusOK {
		t.Fatalf("customer list = %d", w.Code)
	}
	var list struct {
		Orders []models.Order `json:"orders"`
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Orders) != 1 {
		t.Errorf("customer sees %d orders, want 1", len(list.Orders))
	}

	w = e.do(t, http.MethodGet, "/orders", e.tokens["driver"], "")
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Orders) != 0 {
		t.Errorf("driver sees %d orders, want 0", len(list.Orders))
	}

	w = e.do(t, http.MethodGet, "/admin/dashboard", e.tokens["admin"], "")
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard = %d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/admin/dashboard", e.tokens["customer"], "")
	if w.Code != http.StatusForbidden {
		t.Errorf("customer dashboard = %d, want 403", w.Code)
	}
	w = e.do(t, http.MethodGet, "/admin/realtime/stats", e.tokens["admin"], "")
	if w.Code != http.StatusOK {
		t.Errorf("realtime stats = %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/drivers/orders/open", e.tokens["driver"], "")
	if w.Code != http.StatusOK {
		t.Fatalf("open orders = %d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/drivers/orders/open", e.tokens["customer"], "")
	if w.Code != http.StatusForbidden {
		t.Errorf("customer open orders = %d, want 403", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	e := newEnv(t)

	// Unknown order -> 404.
	w := e.do(t, http.MethodGet, "/orders/9999", e.tokens["customer"], "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing order = %d, want 404", w.Code)
	}

	// Malformed id -> 400.
	w = e.do(t, http.MethodGet, "/orders/abc", e.tokens["customer"], "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", w.Code)
	}

	// Empty order -> 400 validation.
	w = e.do(t, http.MethodPost, "/orders", e.tokens["customer"],
		`{"address":{"street":"1 Main St","city":"Springfield","state":"IL"},"phone":"+15550100"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty items = %d, want 400", w.Code)
	}
}

func orderPath(id int64, suffix string) string {
	return "/orders/" + strconv.FormatInt(id, 10) + "/" + suffix
}
