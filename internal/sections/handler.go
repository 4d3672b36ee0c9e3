package sections

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voice-resume-backend/internal/shared/server/respond"
)

// Handler wires the parse endpoint to the extractor.
type Handler struct {
	Extractor       *Extractor
	DefaultTemplate string
}

// NewHandler constructs a Handler.
func NewHandler(extractor *Extractor, defaultTemplate string) *Handler {
	return &Handler{Extractor: extractor, DefaultTemplate: defaultTemplate}
}

// RegisterRoutes attaches the section parsing route.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/parse_resume", h.parse)
}

type parseRequest struct {
	Answers  map[string]any `json:"answers"`
	Template string         `json:"template"`
}

type parseResponse struct {
	ParsedResume map[string]any `json:"parsed_resume"`
	Template     string         `json:"template"`
}

func (h *Handler) parse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body: "+err.Error())
		return
	}

	template := strings.TrimSpace(req.Template)
	if template == "" {
		template = h.DefaultTemplate
	}

	parsed := h.Extractor.ParseAnswers(c.Request.Context(), req.Answers)
	c.Set("sections", len(parsed))

	respond.OK(c, parseResponse{ParsedResume: parsed, Template: template})
}
