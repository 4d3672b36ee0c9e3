package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"voice-resume-backend/internal/shared/metrics"
	"voice-resume-backend/internal/shared/server/respond"
	"voice-resume-backend/internal/shared/telemetry"
)

// Recovery turns handler panics into a 500 {"error"} body. http.ErrAbortHandler
// is re-raised so net/http can drop the connection as intended.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			metrics.IncPanic(c.FullPath())
			telemetry.Error("panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"route":      c.FullPath(),
				"method":     c.Request.Method,
			})
			if c.Writer.Written() {
				// Part of the body is already out; all we can do is stop.
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error")
		}()
		c.Next()
	}
}
