package respond

import (
	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/shared/telemetry"
)

// Error codes shared by handlers.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeTooLarge     = "FILE_TOO_LARGE"
	CodeRateLimited  = "RATE_LIMITED"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Error   interface{} `json:"error,omitempty"`
}

// Error sends a standardized error response. Details on 5xx responses are
// only exposed while gin runs in debug mode.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if details != nil {
		fields["details"] = detailString(details)
	}
	telemetry.Error("http.error", fields)

	if status >= 500 && !gin.IsDebugging() {
		details = nil
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Success: false,
		Message: message,
		Code:    code,
		Error:   detailString(details),
	})
}

func detailString(details interface{}) interface{} {
	if details == nil {
		return nil
	}
	if err, ok := details.(error); ok {
		return err.Error()
	}
	return details
}
