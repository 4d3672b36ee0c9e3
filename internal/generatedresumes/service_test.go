package generatedresumes

import (
	"context"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-resume-backend/resume/model"
	"voice-resume-backend/resume/templates"
)

func TestGenerateStoresDocxAndPDF(t *testing.T) {
	env := newTestEnv(t)
	parsed := map[string]any{
		"NAME":   map[string]any{"NAME": "Asha Rao", "TITLE": "Analyst"},
		"SKILLS": []any{"SQL", "Python"},
	}

	out, err := env.svc.Generate(context.Background(), parsed, "", "")
	require.NoError(t, err)

	assert.Equal(t, "resume_20250102_030405.docx", out.DocxName)
	assert.Equal(t, "resume_20250102_030405.pdf", out.PDFName)
	assert.True(t, out.PDFReady)
	assert.Equal(t, 1, out.Pages)

	doc := readDocumentXML(t, filepath.Join(env.outDir, out.DocxName))
	assert.Contains(t, doc, "Asha Rao")
	assert.Contains(t, doc, model.DefaultProfile)
	assert.Contains(t, doc, "SQL")
	assert.Contains(t, doc, "Python")
	assert.NotContains(t, doc, "{{")
	assert.NotContains(t, doc, "drawing")

	assert.FileExists(t, filepath.Join(env.outDir, out.PDFName))
	entries, err := os.ReadDir(env.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch files are cleaned up")
}

func TestGenerateConversionFailureKeepsDocx(t *testing.T) {
	env := newTestEnv(t)
	env.converter.err = errConvert

	out, err := env.svc.Generate(context.Background(), map[string]any{}, "Creative.docx", "")
	require.NoError(t, err)

	assert.False(t, out.PDFReady)
	assert.Equal(t, "resume_20250102_030405.pdf", out.PDFName)
	assert.FileExists(t, filepath.Join(env.outDir, out.DocxName))
	assert.NoFileExists(t, filepath.Join(env.outDir, out.PDFName))
}

func TestGenerateWithoutConverter(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Converter = nil

	out, err := env.svc.Generate(context.Background(), nil, "", "")
	require.NoError(t, err)
	assert.False(t, out.PDFReady)
	assert.Equal(t, 0, env.converter.calls)
}

func TestGenerateMissingTemplate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Generate(context.Background(), map[string]any{}, "Missing.docx", "")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = env.svc.Generate(context.Background(), map[string]any{}, "../Creative.docx", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGenerateEmbedsDataURLImage(t *testing.T) {
	env := newTestEnv(t)
	b64 := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))

	out, err := env.svc.Generate(context.Background(), map[string]any{}, "", b64)
	require.NoError(t, err)

	doc := readDocumentXML(t, filepath.Join(env.outDir, out.DocxName))
	assert.Contains(t, doc, "<w:drawing>")
	assert.Contains(t, doc, `cx="1440000" cy="720000"`)

	entries, err := os.ReadDir(env.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "image temp file is removed")
}

func TestGenerateIgnoresBadImage(t *testing.T) {
	env := newTestEnv(t)

	for _, img := range []string{"%%%not-base64%%%", base64.StdEncoding.EncodeToString([]byte("not an image"))} {
		out, err := env.svc.Generate(context.Background(), map[string]any{}, "", img)
		require.NoError(t, err)

		doc := readDocumentXML(t, filepath.Join(env.outDir, out.DocxName))
		assert.NotContains(t, doc, "drawing")
		assert.NotContains(t, doc, "{{IMAGE}}")
	}
}

func TestOpen(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.outDir, "resume_1.docx"), []byte("docx"), 0o644))

	rc, err := env.svc.Open(context.Background(), KindDOCX, "resume_1.docx")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "docx", string(data))

	_, err = env.svc.Open(context.Background(), KindPDF, "resume_1.docx")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Open(context.Background(), KindDOCX, "../resume_1.docx")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Open(context.Background(), KindPDF, "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateWithShippedTemplateFillsEverySection(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Templates = templates.New(filepath.Join("..", "..", "templates", "docx"))

	parsed := map[string]any{
		"NAME":    map[string]any{"NAME": "Ravi Kumar", "TITLE": "Plumber"},
		"CONTACT": map[string]any{"PHONE": "99999", "EMAIL": "ravi@example.in"},
		"EXPERIENCE": []any{
			map[string]any{"EXP_YEAR": "2019", "EXP_JOB_TITLE": "Lead Plumber", "EXP_COMPANY": "City Works", "EXP_DESC": "Ran the night crew"},
			map[string]any{"EXP_YEAR": "2015", "EXP_JOB_TITLE": "Apprentice", "EXP_COMPANY": "Rao and Sons"},
		},
		"EDUCATION": []any{map[string]any{"EDU_YEAR": "2014", "DEGREE": "ITI Plumbing", "UNIVERSITY": "Govt ITI Pune"}},
		"AWARDS":    []any{map[string]any{"AWARD_TITLE": "Best Tradesman", "AWARD_DESC": "2020"}},
		"SKILLS":    []any{"Pipe fitting"},
		"INTERESTS": []any{"Cricket"},
	}

	out, err := env.svc.Generate(context.Background(), parsed, "Creative.docx", "")
	require.NoError(t, err)

	doc := readDocumentXML(t, filepath.Join(env.outDir, out.DocxName))
	for _, want := range []string{
		"Ravi Kumar",
		"Lead Plumber | City Works", "Ran the night crew", "2019",
		"Apprentice | Rao and Sons",
		"ITI Plumbing | Govt ITI Pune", "2014",
		"Best Tradesman", "2020",
		"• Pipe fitting", "Cricket",
	} {
		assert.Contains(t, doc, want)
	}
	assert.NotContains(t, doc, "{{")
}
