// Package convert turns rendered DOCX files into PDF with LibreOffice.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"voice-resume-backend/internal/shared/telemetry"
)

const DefaultSofficePath = "soffice"

var (
	ErrConversionFailed = errors.New("pdf conversion failed")
	ErrInvalidPDF       = errors.New("converted pdf is unreadable")
)

// Converter shells out to soffice in headless mode.
type Converter struct {
	SofficePath string
	Timeout     time.Duration
}

func New(sofficePath string, timeout time.Duration) *Converter {
	if strings.TrimSpace(sofficePath) == "" {
		sofficePath = DefaultSofficePath
	}
	return &Converter{SofficePath: sofficePath, Timeout: timeout}
}

// Available reports whether the soffice binary can be found.
func (c *Converter) Available() error {
	if _, err := exec.LookPath(c.SofficePath); err != nil {
		return fmt.Errorf("soffice unavailable: %w", err)
	}
	return nil
}

// ToPDF converts docxPath into outDir and returns the PDF path along with its
// page count. A PDF the reader cannot parse is still returned, with zero pages.
// Each call uses its own LibreOffice profile under outDir so that
// concurrent conversions do not fight over the default one.
func (c *Converter) ToPDF(ctx context.Context, docxPath, outDir string) (string, int, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return "", 0, fmt.Errorf("resolve outdir: %w", err)
	}
	profile := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(absOut, ".soffice-profile"))}

	cmd := exec.CommandContext(ctx, c.SofficePath,
		"-env:UserInstallation="+profile.String(),
		"--headless",
		"--convert-to", "pdf",
		"--outdir", absOut,
		docxPath,
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return "", 0, fmt.Errorf("%w: %v: %s", ErrConversionFailed, err, strings.TrimSpace(output.String()))
	}

	base := filepath.Base(docxPath)
	pdfPath := filepath.Join(absOut, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", 0, fmt.Errorf("%w: expected %s: %v", ErrConversionFailed, pdfPath, err)
	}

	pages, err := PageCount(pdfPath)
	if err != nil {
		telemetry.Warn("convert.page_count_failed", map[string]any{"pdf": filepath.Base(pdfPath), "err": err})
		return pdfPath, 0, nil
	}
	return pdfPath, pages, nil
}

// PageCount opens a PDF and returns its number of pages; zero pages is an error.
func PageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	defer f.Close()

	pages := r.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return pages, nil
}
