package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"foodDeliveryManagement/internal/apperr"
	"foodDeliveryManagement/internal/auth"
	"foodDeliveryManagement/internal/order"
	"foodDeliveryManagement/models"
)

func (s *Server) principal(c *gin.Context) *auth.Principal {
	p, _ := auth.PrincipalFrom(c)
	return p
}

func orderID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.KindValidation, "invalid order id")
	}
	return id, nil
}

func (s *Server) createOrder(c *gin.Context) {
	var in order.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	o, init, err := s.svc.Create(c.Request.Context(), s.principal(c), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	resp := gin.H{"order": o}
	if init != nil {
		resp["payment"] = init
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	o, err := s.svc.Get(c.Request.Context(), s.principal(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (s *Server) trackOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	view, err := s.svc.Track(c.Request.Context(), s.principal(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) payOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var body struct {
		Reference string `json:"reference"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	o, err := s.svc.Pay(c.Request.Context(), s.principal(c), id, body.Reference)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (s *Server) assignDriver(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var body struct {
		DriverID int64 `json:"driver_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	o, err := s.svc.AssignDriver(c.Request.Context(), s.principal(c), id, body.DriverID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (s *Server) acceptOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	o, err := s.svc.Accept(c.Request.Context(), s.principal(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (s *Server) updateStatus(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	o, err := s.svc.UpdateStatus(c.Request.Context(), s.principal(c), id, body.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o, "message": order.StatusMessage(o.Status)})
}

func (s *Server) cancelOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	// Body is optional for cancellation.
	_ = c.ShouldBindJSON(&body)
	o, err := s.svc.Cancel(c.Request.Context(), s.principal(c), id, body.Reason)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (s *Server) updateLocation(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var in order.LocationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.writeError(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	if err := s.svc.UpdateLocation(c.Request.Context(), s.principal(c), id, in); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) rateOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var body struct {
		Rating int    `json:"rating"`
		Review string `json:"review"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	if err := s.svc.RateOrder(c.Request.Context(), s.principal(c), id, body.Rating, body.Review); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) messageDriver(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var body struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	if err := s.svc.MessageDriver(c.Request.Context(), s.principal(c), id, body.Body); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// listOrders is role-scoped: customers see their own orders, drivers their
// assignments, admins everything (optionally filtered by status).
func (s *Server) listOrders(c *gin.Context) {
	p := s.principal(c)
	beforeID, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	var (
		orders []*models.Order
		err    error
	)
	switch p.Role {
	case models.RoleCustomer:
		orders, err = s.svc.ListForCustomer(c.Request.Context(), p, beforeID, limit)
	case models.RoleDriver:
		orders, err = s.svc.ListForDriver(c.Request.Context(), p, beforeID, limit)
	case models.RoleAdmin:
		orders, err = s.svc.ListAll(c.Request.Context(), p, models.OrderStatus(c.Query("status")), beforeID, limit)
	default:
		err = apperr.New(apperr.KindUnauthorized, "unknown role")
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) listOpenOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	orders, err := s.svc.ListOpen(c.Request.Context(), s.principal(c), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) setDriverStatus(c *gin.Context) {
	var body struct {
		Online bool `json:"online"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	if err := s.svc.SetDriverStatus(c.Request.Context(), s.principal(c), body.Online); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": body.Online})
}

func (s *Server) dashboard(c *gin.Context) {
	d, err := s.svc.Dashboard(c.Request.Context(), s.principal(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) analytics(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	stats, err := s.svc.Analytics(c.Request.Context(), s.principal(c), days)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": stats})
}

func (s *Server) realtimeStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Stats())
}

// watchOrder subscribes a live connection to an order's event group. The
// caller must own the connection and be allowed to view the order.
func (s *Server) watchOrder(c *gin.Context) {
	connID := c.Param("connId")
	oid, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil || oid <= 0 {
		s.writeError(c, apperr.New(apperr.KindValidation, "invalid order id"))
		return
	}
	p := s.principal(c)
	conn := s.registry.Get(connID)
	if conn == nil || conn.UserID != p.ID {
		s.writeError(c, apperr.New(apperr.KindNotFound, "connection not found"))
		return
	}
	if _, err := s.svc.Get(c.Request.Context(), p, oid); err != nil {
		s.writeError(c, err)
		return
	}
	s.router.Watch(oid, connID)
	c.JSON(http.StatusOK, gin.H{"watching": oid})
}

func (s *Server) unwatchOrder(c *gin.Context) {
	connID := c.Param("connId")
	oid, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil || oid <= 0 {
		s.writeError(c, apperr.New(apperr.KindValidation, "invalid order id"))
		return
	}
	p := s.principal(c)
	conn := s.registry.Get(connID)
	if conn == nil || conn.UserID != p.ID {
		s.writeError(c, apperr.New(apperr.KindNotFound, "connection not found"))
		return
	}
	s.router.Unwatch(oid, connID)
	c.JSON(http.StatusOK, gin.H{"watching": nil})
}
