package respond

import (
	"github.com/gin-gonic/gin"

	"voice-resume-backend/internal/shared/telemetry"
)

// ErrorResponse is the error body every endpoint returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error logs the failure under code and aborts with {"error": message}.
func Error(c *gin.Context, status int, code, message string) {
	ErrorWith(c, status, code, message, ErrorResponse{Error: message})
}

// ErrorWith logs like Error but sends a caller-shaped body, for endpoints
// whose failure payload carries more than the message.
func ErrorWith(c *gin.Context, status int, code, message string, body any) {
	telemetry.Error("http.error", map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString(RequestIDKey),
	})
	c.AbortWithStatusJSON(status, body)
}
