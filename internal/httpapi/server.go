// Package httpapi exposes the order lifecycle over REST and SSE with gin.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"foodDeliveryManagement/internal/auth"
	"foodDeliveryManagement/internal/order"
	"foodDeliveryManagement/internal/realtime"
	"foodDeliveryManagement/models"
)

// Server holds the handler dependencies.
type Server struct {
	svc      *order.Service
	registry *realtime.Registry
	router   *realtime.Router
	logger   *zap.Logger
}

// NewServer creates the HTTP server facade.
func NewServer(svc *order.Service, registry *realtime.Registry, router *realtime.Router, logger *zap.Logger) *Server {
	return &Server{svc: svc, registry: registry, router: router, logger: logger}
}

// Routes builds the gin engine with all endpoints mounted.
func (s *Server) Routes(jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), metricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/", auth.Middleware(jwtSecret))

	orders := authed.Group("/orders")
	{
		orders.POST("", s.createOrder)
		orders.GET("", s.listOrders)
		orders.GET("/:id", s.getOrder)
		orders.GET("/:id/track", s.trackOrder)
		orders.POST("/:id/pay", s.payOrder)
		orders.POST("/:id/assign", s.assignDriver)
		orders.POST("/:id/accept", s.acceptOrder)
		orders.PATCH("/:id/status", s.updateStatus)
		orders.POST("/:id/cancel", s.cancelOrder)
		orders.POST("/:id/location", s.updateLocation)
		orders.POST("/:id/rating", s.rateOrder)
		orders.POST("/:id/message", s.messageDriver)
	}

	drivers := authed.Group("/drivers")
	{
		drivers.GET("/orders/open", s.listOpenOrders)
		drivers.POST("/status", s.setDriverStatus)
	}

	admin := authed.Group("/admin", auth.RequireRole(models.RoleAdmin))
	{
		admin.GET("/dashboard", s.dashboard)
		admin.GET("/analytics", s.analytics)
		admin.GET("/realtime/stats", s.realtimeStats)
	}

	rt := authed.Group("/realtime")
	{
		rt.GET("", realtime.StreamHandler(s.registry, s.router, s.logger))
		rt.POST("/:connId/watch/:orderId", s.watchOrder)
		rt.DELETE("/:connId/watch/:orderId", s.unwatchOrder)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
