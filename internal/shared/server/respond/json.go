package respond

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "requestId"

// OK writes a 200 JSON response.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Text writes a plain text response.
func Text(c *gin.Context, status int, body string) {
	c.String(status, body)
}

// File streams r with the given content type. disposition is "attachment"
// or "inline"; name is what the client sees.
func File(c *gin.Context, contentType, disposition, name string, r io.Reader) {
	c.DataFromReader(http.StatusOK, -1, contentType, r, map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%q", disposition, name),
	})
}
