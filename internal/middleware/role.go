package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldforce/api/internal/model"
)

// RequireRole guards a route group behind an exact role match. It expects a
// *model.User under "user", set by the auth middleware; anything else is
// denied.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get("user")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, ok := v.(*model.User)
		if !ok || user.Role != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			c.Abort()
			return
		}

		c.Next()
	}
}
