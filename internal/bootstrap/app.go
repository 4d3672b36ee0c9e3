package bootstrap

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"voice-resume-backend/internal/generatedresumes"
	"voice-resume-backend/internal/llm"
	"voice-resume-backend/internal/llm/gemini"
	openai "voice-resume-backend/internal/llm/openai"
	"voice-resume-backend/internal/sections"
	"voice-resume-backend/internal/services/health"
	"voice-resume-backend/internal/shared/config"
	"voice-resume-backend/internal/shared/server"
	"voice-resume-backend/internal/shared/storage/object"
	localstore "voice-resume-backend/internal/shared/storage/object/local"
	s3store "voice-resume-backend/internal/shared/storage/object/s3"
	"voice-resume-backend/internal/shared/telemetry"
	"voice-resume-backend/internal/speech"
	"voice-resume-backend/internal/transcription"
	"voice-resume-backend/resume/convert"
	"voice-resume-backend/resume/templates"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	Store     object.ObjectStore
	Generator llm.Generator
	Templates *templates.Library

	TranscriptionService *transcription.Service
	Extractor            *sections.Extractor
	ResumesService       *generatedresumes.Service

	closers []func()
}

// Build prepares every dependency and mounts the routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Store:     store,
		Templates: templates.New(cfg.TemplateDir),
	}

	gen, closeGen, err := buildGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Generator = gen
	if closeGen != nil {
		app.closers = append(app.closers, closeGen)
	}

	prompts, err := sections.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	app.Extractor = sections.NewExtractor(gen, prompts)

	pipeline := speech.NewClient(
		cfg.SpeechEndpoint,
		cfg.SpeechAuthToken,
		time.Duration(cfg.SpeechTimeoutSeconds)*time.Second,
		cfg.DefaultLanguage,
	)
	app.TranscriptionService = transcription.NewService(pipeline)

	converter := convert.New(cfg.SofficePath, 2*time.Minute)
	app.ResumesService = &generatedresumes.Service{
		Templates:       app.Templates,
		Store:           store,
		Converter:       converter,
		DefaultTemplate: cfg.DefaultTemplate,
	}

	healthSvc := health.NewService()
	healthSvc.AddCheck("template", func() error {
		_, err := app.Templates.Load(cfg.DefaultTemplate)
		return err
	})
	healthSvc.AddCheck("soffice", converter.Available)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:               cfg,
		HealthHandler:        health.NewHandler(healthSvc),
		TranscriptionHandler: transcription.NewHandler(app.TranscriptionService),
		SectionsHandler:      sections.NewHandler(app.Extractor, cfg.DefaultTemplate),
		ResumesHandler:       generatedresumes.NewHandler(app.ResumesService, cfg.PublicBaseURL),
	})

	return app, nil
}

// WatchTemplates drops cached templates whenever the template directory changes,
// until ctx is done. A directory that cannot be watched is logged and skipped.
func (a *App) WatchTemplates(ctx context.Context) {
	if err := a.Templates.Watch(ctx); err != nil {
		telemetry.Warn("templates.watch_failed", map[string]any{"dir": a.Templates.Dir(), "err": err})
	}
}

// Close releases provider connections.
func (a *App) Close() {
	for _, fn := range a.closers {
		fn()
	}
	if err := a.Templates.Close(); err != nil {
		log.Printf("bootstrap: close template watcher: %v", err)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.OutputDir), nil
	}
}

// buildGenerator picks the configured provider. Without an API key, dev-like
// environments get a generator that fails every call so the rest of the API still serves.
func buildGenerator(ctx context.Context, cfg config.Config) (llm.Generator, func(), error) {
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second

	var (
		gen     llm.Generator
		closeFn func()
		err     error
	)
	switch cfg.LLMProvider {
	case "openai":
		gen, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, timeout)
	default:
		var client *gemini.Client
		client, err = gemini.New(ctx, cfg.GeminiAPIKey, cfg.LLMModel, timeout)
		if err == nil {
			gen, closeFn = client, client.Close
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: %s client unavailable; section parsing will fail: %v", cfg.LLMProvider, err)
			return unconfigured{}, nil, nil
		}
		return nil, nil, err
	}
	return gen, closeFn, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

type unconfigured struct{}

func (unconfigured) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", errors.New("llm client not configured")
}
