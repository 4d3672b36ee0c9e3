package generatedresumes

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voice-resume-backend/internal/shared/metrics"
	"voice-resume-backend/internal/shared/storage/object"
	"voice-resume-backend/internal/shared/telemetry"
	"voice-resume-backend/internal/shared/util"
	"voice-resume-backend/resume/model"
	"voice-resume-backend/resume/render"
	"voice-resume-backend/resume/templates"
)

// TemplateSource loads and lists DOCX templates.
type TemplateSource interface {
	Load(name string) ([]byte, error)
	List() ([]string, error)
}

// PDFConverter converts a DOCX on disk into a PDF inside outDir.
type PDFConverter interface {
	ToPDF(ctx context.Context, docxPath, outDir string) (string, int, error)
}

// Service renders resumes and stores the resulting artifacts.
type Service struct {
	Templates       TemplateSource
	Store           object.ObjectStore
	Converter       PDFConverter // nil disables PDF output
	DefaultTemplate string
	TempDir         string
	Now             func() time.Time
}

// Generate renders parsed into the named template, stores the DOCX and, when
// conversion succeeds, the PDF. A bad image or a failed conversion is logged
// and does not fail the request.
func (s *Service) Generate(ctx context.Context, parsed map[string]any, template, imageB64 string) (Artifacts, error) {
	start := time.Now()
	if s.Templates == nil || s.Store == nil {
		return Artifacts{}, errors.New("missing dependencies")
	}

	template = strings.TrimSpace(template)
	if template == "" {
		template = s.DefaultTemplate
	}
	tpl, err := s.Templates.Load(template)
	if err != nil {
		switch {
		case errors.Is(err, templates.ErrTemplateNotFound):
			return Artifacts{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, template)
		case errors.Is(err, util.ErrInvalidFileName):
			return Artifacts{}, fmt.Errorf("%w: template %q", ErrInvalidInput, template)
		}
		return Artifacts{}, fmt.Errorf("load template: %w", err)
	}

	img, cleanup := s.loadImage(imageB64)
	defer cleanup()

	docx, err := render.Render(tpl, model.BuildContext(parsed), img)
	if err != nil {
		return Artifacts{}, fmt.Errorf("render %s: %w", template, err)
	}

	base := "resume_" + s.now().Format("20060102_150405")
	out := Artifacts{DocxName: base + KindDOCX.Ext(), PDFName: base + KindPDF.Ext()}

	if _, err := s.Store.SaveWithKey(ctx, out.DocxName, MimeDOCX, bytes.NewReader(docx)); err != nil {
		return Artifacts{}, fmt.Errorf("store %s: %w", out.DocxName, err)
	}

	if s.Converter != nil {
		pages, err := s.convert(ctx, docx, out)
		switch {
		case err == nil:
			out.PDFReady = true
			out.Pages = pages
		case errors.Is(err, errPDFStore):
			return Artifacts{}, err
		default:
			telemetry.Warn("resume.pdf_failed", map[string]any{"docx": out.DocxName, "err": err})
		}
	}

	metrics.IncResumeGenerated(out.PDFReady)
	metrics.ObserveGenerationDurationMs(metrics.SinceMillis(start))
	telemetry.Info("resume.generated", map[string]any{
		"template":    template,
		"docx":        out.DocxName,
		"pdf_ready":   out.PDFReady,
		"pages":       out.Pages,
		"with_image":  img != nil,
		"duration_ms": metrics.SinceMillis(start),
	})
	return out, nil
}

var errPDFStore = errors.New("store pdf")

// convert runs the converter in a scratch directory and stores the PDF.
func (s *Service) convert(ctx context.Context, docx []byte, out Artifacts) (int, error) {
	scratch, err := os.MkdirTemp(s.TempDir, "convert-*")
	if err != nil {
		return 0, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	docxPath := filepath.Join(scratch, out.DocxName)
	if err := os.WriteFile(docxPath, docx, 0o600); err != nil {
		return 0, fmt.Errorf("write scratch docx: %w", err)
	}

	pdfPath, pages, err := s.Converter.ToPDF(ctx, docxPath, scratch)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("open converted pdf: %w", err)
	}
	defer f.Close()
	if _, err := s.Store.SaveWithKey(ctx, out.PDFName, MimePDF, f); err != nil {
		return 0, fmt.Errorf("%w %s: %v", errPDFStore, out.PDFName, err)
	}
	return pages, nil
}

// loadImage decodes a base64 photo (data URL prefix allowed) into a temp file
// and loads it for embedding. Failures are logged and yield no image.
func (s *Service) loadImage(imageB64 string) (*render.Image, func()) {
	noop := func() {}
	imageB64 = strings.TrimSpace(imageB64)
	if imageB64 == "" {
		return nil, noop
	}
	if idx := strings.LastIndexByte(imageB64, ','); idx != -1 {
		imageB64 = imageB64[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		telemetry.Warn("resume.image_decode_failed", map[string]any{"err": err})
		return nil, noop
	}

	f, err := os.CreateTemp(s.TempDir, "photo-*")
	if err != nil {
		telemetry.Warn("resume.image_temp_failed", map[string]any{"err": err})
		return nil, noop
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }
	_, werr := f.Write(raw)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		telemetry.Warn("resume.image_temp_failed", map[string]any{"err": errors.Join(werr, cerr)})
		return nil, cleanup
	}

	img, err := render.LoadImage(path)
	if err != nil {
		telemetry.Warn("resume.image_unsupported", map[string]any{"err": err, "bytes": len(raw)})
		return nil, cleanup
	}
	return img, cleanup
}

// Open returns a stored artifact. The name must be a bare file name whose
// extension matches kind.
func (s *Service) Open(ctx context.Context, kind Kind, name string) (io.ReadCloser, error) {
	clean, err := util.SanitizeFileName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !strings.EqualFold(filepath.Ext(clean), kind.Ext()) {
		return nil, fmt.Errorf("%w: %s is not a %s file", ErrInvalidInput, clean, kind)
	}
	rc, err := s.Store.Open(ctx, clean)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rc, nil
}

// ListTemplates returns the available template names.
func (s *Service) ListTemplates() ([]string, error) {
	return s.Templates.List()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
