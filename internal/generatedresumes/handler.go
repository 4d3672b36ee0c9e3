package generatedresumes

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"voice-resume-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
	// PublicBaseURL overrides the scheme and host used in download links.
	PublicBaseURL string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, publicBaseURL string) *Handler {
	return &Handler{Svc: svc, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// RegisterRoutes attaches generation routes. Downloads are registered
// separately so they can sit outside the heavy rate limit group.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/generate_resume", h.generate)
}

// RegisterDownloadRoutes attaches artifact and template listing routes.
func (h *Handler) RegisterDownloadRoutes(r gin.IRoutes) {
	r.GET("/download/docx/:filename", h.download(KindDOCX))
	r.GET("/download/pdf/:filename", h.download(KindPDF))
	r.GET("/output/:filename", h.output)
	r.GET("/templates", h.listTemplates)
}

type generateRequest struct {
	ResumeData map[string]any `json:"resume_data"`
	Template   string         `json:"template"`
	ImageB64   string         `json:"image_b64"`
}

type generateResponse struct {
	DocxURL string  `json:"docx_url"`
	PDFURL  string  `json:"pdf_url"`
	Error   *string `json:"error"`
}

func failedGeneration(message string) generateResponse {
	return generateResponse{Error: &message}
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		msg := "invalid request body: " + err.Error()
		respond.ErrorWith(c, http.StatusBadRequest, "validation_error", msg, failedGeneration(msg))
		return
	}
	if req.ResumeData == nil {
		req.ResumeData = map[string]any{}
	}

	artifacts, err := h.Svc.Generate(c.Request.Context(), req.ResumeData, req.Template, req.ImageB64)
	if err != nil {
		msg := err.Error()
		code := "generation_failed"
		switch {
		case errors.Is(err, ErrTemplateNotFound):
			code = "template_not_found"
		case errors.Is(err, ErrInvalidInput):
			code = "validation_error"
		}
		respond.ErrorWith(c, http.StatusInternalServerError, code, msg, failedGeneration(msg))
		return
	}

	c.Set("docx", artifacts.DocxName)
	c.Set("pdf", artifacts.PDFReady)

	base := h.baseURL(c)
	respond.OK(c, generateResponse{
		DocxURL: base + "/download/docx/" + artifacts.DocxName,
		PDFURL:  base + "/download/pdf/" + artifacts.PDFName,
	})
}

func (h *Handler) download(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.serve(c, kind, c.Param("filename"), "attachment")
	}
}

// output serves artifacts inline, picking the type from the extension.
func (h *Handler) output(c *gin.Context) {
	name := c.Param("filename")
	kind, ok := kindFromExt(strings.ToLower(filepath.Ext(name)))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unsupported file type")
		return
	}
	h.serve(c, kind, name, "inline")
}

func (h *Handler) serve(c *gin.Context, kind Kind, name, disposition string) {
	rc, err := h.Svc.Open(c.Request.Context(), kind, name)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name")
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "File not found")
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open file")
		}
		return
	}
	defer rc.Close()

	respond.File(c, kind.ContentType(), disposition, filepath.Base(name), rc)
}

func (h *Handler) listTemplates(c *gin.Context) {
	names, err := h.Svc.ListTemplates()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list templates")
		return
	}
	respond.OK(c, gin.H{"templates": names, "default": h.Svc.DefaultTemplate})
}

// baseURL is PublicBaseURL when set, else the scheme and host the request came in on.
func (h *Handler) baseURL(c *gin.Context) string {
	if h.PublicBaseURL != "" {
		return h.PublicBaseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	host := c.Request.Host
	if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}
