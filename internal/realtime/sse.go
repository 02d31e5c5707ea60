package realtime

import (
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"

	"foodDeliveryManagement/internal/auth"
)

// StreamHandler returns the SSE endpoint. A successful handshake registers a
// connection for the authenticated principal; the first event carries the
// connection id used by the watch endpoints. The connection is torn down when
// the client goes away.
func StreamHandler(reg *Registry, router *Router, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.PrincipalFrom(c)
		if !ok {
			c.AbortWithStatus(401)
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		conn := reg.Register(p.ID, p.Role)
		defer router.DropConnection(conn.ID)

		c.SSEvent("connected", gin.H{
			"connection_id": conn.ID,
			"role":          string(p.Role),
		})
		c.Writer.Flush()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				logger.Info("stream closed by client", zap.String("conn_id", conn.ID))
				return
			case ev := <-conn.Events():
				c.SSEvent(ev.Name, ev.Payload)
				c.Writer.Flush()
			}
		}
	}
}
