package sections

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-resume-backend/internal/llm"
)

func newTestRouter(gen llm.Generator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewExtractor(gen, nil), "Creative.docx").RegisterRoutes(r)
	return r
}

func TestParseResumeEndpoint(t *testing.T) {
	r := newTestRouter(llm.GeneratorFunc(func(context.Context, string) (string, error) {
		return `["Python","Teamwork","Leadership"]`, nil
	}))

	req := httptest.NewRequest(http.MethodPost, "/parse_resume", strings.NewReader(`{"answers":{"skills":"Python, teamwork, leadership"}}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "Creative.docx", body["template"])
	assert.Equal(t, map[string]any{"SKILLS": []any{"Python", "Teamwork", "Leadership"}}, body["parsed_resume"])
}

func TestParseResumeEchoesTemplate(t *testing.T) {
	r := newTestRouter(llm.GeneratorFunc(func(context.Context, string) (string, error) { return "[]", nil }))

	req := httptest.NewRequest(http.MethodPost, "/parse_resume", strings.NewReader(`{"answers":{},"template":"Modern.docx"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"parsed_resume":{},"template":"Modern.docx"}`, resp.Body.String())
}

func TestParseResumeInvalidBody(t *testing.T) {
	r := newTestRouter(llm.GeneratorFunc(func(context.Context, string) (string, error) { return "[]", nil }))

	req := httptest.NewRequest(http.MethodPost, "/parse_resume", strings.NewReader(`{not json`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "invalid request body")
}
