package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-resume-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		OutputDir:       t.TempDir(),
		TemplateDir:     t.TempDir(),
		DefaultTemplate: "Creative.docx",
		LLMProvider:     "gemini",
	}
}

func TestBuildWiresRoutesWithoutLLMKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app, err := Build(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	_, err = app.Generator.Generate(context.Background(), "hi")
	assert.Error(t, err)

	for _, path := range []string{"/", "/templates", "/metrics"} {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestBuildReadinessFailsWithoutDefaultTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app, err := Build(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"template"`)
}

func TestBuildFailsWithoutKeyInProduction(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	cfg.LLMProvider = "openai"
	cfg.LLMModel = "gpt-4o-mini"

	_, err := Build(cfg)
	assert.Error(t, err)
}

func TestBuildRejectsBadPromptsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PromptsFile = "does-not-exist.yaml"

	_, err := Build(cfg)
	assert.Error(t, err)
}

func TestWatchTemplatesOnMissingDirDoesNotPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.TemplateDir = "missing-dir"

	app, err := Build(cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.WatchTemplates(ctx)
}
