package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"appointment-management-api/internal/auth"
)

// UserIDKey is the gin context key carrying the authenticated user id.
const UserIDKey = "user_id"

// RequireAuth guards every route in its group: a request without a valid
// bearer token never reaches a handler. Unauthenticated routes simply live
// outside the group.
func RequireAuth(m *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if h := c.GetHeader("Authorization"); h != "" {
			raw = strings.TrimPrefix(h, "Bearer ")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
			return
		}

		claims, err := m.ParseToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
