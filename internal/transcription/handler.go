package transcription

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-resume-backend/internal/shared/server/respond"
)

// Handler wires the audio endpoint to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the transcription route.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/audio_to_text", h.audioToText)
}

type audioRequest struct {
	Audio string `json:"audio"`
	Lang  string `json:"lang"`
}

type audioResponse struct {
	TranslatedText string `json:"translated_text"`
}

func (h *Handler) audioToText(c *gin.Context) {
	var req audioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body: "+err.Error())
		return
	}
	c.Set("lang", req.Lang)

	text, err := h.Svc.AudioToText(c.Request.Context(), req.Audio, req.Lang)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "transcription_failed", err.Error())
		return
	}

	respond.OK(c, audioResponse{TranslatedText: text})
}
