package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodDeliveryManagement/models"
)

const principalCtxKey = "auth.principal"

// Middleware returns a gin middleware that extracts and validates a Bearer
// JWT from the Authorization header and stores the Principal on the request
// context. Unauthenticated requests are rejected.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := ParseFromHeader(c.GetHeader("Authorization"), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(principalCtxKey, p)
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// PrincipalFrom retrieves the principal stored by Middleware.
func PrincipalFrom(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalCtxKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}

// RequireRole returns a middleware that rejects principals of other roles.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok || p.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "only " + string(role) + " can perform this action"})
			return
		}
		c.Next()
	}
}
