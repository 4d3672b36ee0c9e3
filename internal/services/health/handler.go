package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-resume-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

type readyResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// RegisterRoutes serves the liveness string on GET / and readiness on GET /readyz.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", func(c *gin.Context) {
		respond.Text(c, http.StatusOK, h.Svc.Status())
	})
	r.GET("/readyz", h.ready)
}

func (h *Handler) ready(c *gin.Context) {
	ok, checks := h.Svc.Ready()
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, readyResponse{Ready: ok, Checks: checks})
}
