package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/freelancehub/app-indexer/internal/observability"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminKey guards admin routes with a shared key sent as
// "Authorization: Bearer <key>" or "X-Admin-Key". An empty key disables
// the check.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-Admin-Key")
		if provided == "" {
			authHeader := c.GetHeader("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				provided = strings.TrimSpace(parts[1])
			}
		}

		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin key is required"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			observability.Logger().Warn("rejected admin request",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid admin key"})
			return
		}
		c.Next()
	}
}
