package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/freelancehub/app-indexer/internal/observability"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxAuditBody = 4 << 10

// AdminAudit logs every write operation on the routes it wraps, with
// sensitive body fields masked
func AdminAudit() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			c.Next()
			return
		}

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			rest, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), bytes.NewReader(rest)))
		}

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
		}
		var body map[string]interface{}
		if len(bodyBytes) > 0 && json.Unmarshal(bodyBytes, &body) == nil {
			fields = append(fields, zap.Any("body", observability.MaskSensitiveData(body)))
		}
		observability.Logger().Info("admin action", fields...)
	}
}
