package generatedresumes

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voice-resume-backend/internal/shared/storage/object/local"
	"voice-resume-backend/resume/templates"
)

const templateDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>
<w:p><w:r><w:t>{{IMAGE}}</w:t></w:r></w:p>
<w:p><w:r><w:t>{{FULL_NAME}}</w:t></w:r></w:p>
<w:p><w:r><w:t>{{PROFILE}}</w:t></w:r></w:p>
<w:p><w:r><w:t>{{#EXPERTISE}}</w:t></w:r></w:p>
<w:p><w:r><w:t>{{SKILL}}</w:t></w:r></w:p>
<w:p><w:r><w:t>{{/EXPERTISE}}</w:t></w:r></w:p>
</w:body></w:document>`

const templateTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`

const templateRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func writeTemplate(t *testing.T, dir, name string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for part, content := range map[string]string{
		"[Content_Types].xml":          templateTypes,
		"word/_rels/document.xml.rels": templateRels,
		"word/document.xml":            templateDocument,
	} {
		w, err := zw.Create(part)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
}

type fakeConverter struct {
	err   error
	calls int
}

func (f *fakeConverter) ToPDF(_ context.Context, docxPath, outDir string) (string, int, error) {
	f.calls++
	if f.err != nil {
		return "", 0, f.err
	}
	if _, err := os.Stat(docxPath); err != nil {
		return "", 0, err
	}
	base := filepath.Base(docxPath)
	pdfPath := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0o600); err != nil {
		return "", 0, err
	}
	return pdfPath, 1, nil
}

var errConvert = errors.New("soffice exploded")

type testEnv struct {
	svc       *Service
	outDir    string
	tempDir   string
	converter *fakeConverter
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	tplDir := t.TempDir()
	writeTemplate(t, tplDir, "Creative.docx")
	outDir := t.TempDir()
	tempDir := t.TempDir()
	conv := &fakeConverter{}
	return testEnv{
		svc: &Service{
			Templates:       templates.New(tplDir),
			Store:           local.New(outDir),
			Converter:       conv,
			DefaultTemplate: "Creative.docx",
			TempDir:         tempDir,
			Now:             func() time.Time { return fixedNow },
		},
		outDir:    outDir,
		tempDir:   tempDir,
		converter: conv,
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 20, 10))))
	return buf.Bytes()
}

func readDocumentXML(t *testing.T, path string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("document.xml missing from %s", path)
	return ""
}
