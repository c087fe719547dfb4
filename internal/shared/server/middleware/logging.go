package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/shared/telemetry"
)

// contextLogKeys maps gin context keys set by handlers to log field names.
var contextLogKeys = map[string]string{
	userIDKey:          "user_id",
	"fileId":           "file_id",
	"analysisId":       "analysis_id",
	"statusTransition": "status_transition",
}

// Logging installs a request-scoped logger carrying request_id and writes one
// request.complete line per request. 5xx responses log at error level.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		reqID := RequestIDFromContext(c)
		logger := telemetry.FromContext(c.Request.Context()).With(map[string]any{"request_id": reqID})
		c.Request = c.Request.WithContext(telemetry.WithContext(c.Request.Context(), logger))

		start := time.Now()
		c.Next()

		fields := map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"bytes":       c.Writer.Size(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		for key, field := range contextLogKeys {
			fields[field] = c.GetString(key)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request.complete", fields)
			return
		}
		logger.Info("request.complete", fields)
	}
}
