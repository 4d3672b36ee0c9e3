package server

import (
	"github.com/gin-gonic/gin"

	"voice-resume-backend/internal/generatedresumes"
	"voice-resume-backend/internal/sections"
	"voice-resume-backend/internal/services/health"
	"voice-resume-backend/internal/shared/config"
	"voice-resume-backend/internal/shared/metrics"
	"voice-resume-backend/internal/shared/server/middleware"
	"voice-resume-backend/internal/transcription"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupHeavy   = "HEAVY"
)

// heavyRoutes call remote models or run document conversion.
var heavyRoutes = map[string]struct{}{
	"/audio_to_text":   {},
	"/parse_resume":    {},
	"/generate_resume": {},
}

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config               config.Config
	HealthHandler        *health.Handler
	TranscriptionHandler *transcription.Handler
	SectionsHandler      *sections.Handler
	ResumesHandler       *generatedresumes.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)
	if rules := rateLimitRules(cfg); rules != nil {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: rateGroupDefault,
			GroupFor: func(c *gin.Context) string {
				if _, ok := heavyRoutes[c.FullPath()]; ok {
					return rateGroupHeavy
				}
				return rateGroupDefault
			},
		}))
	}

	r.GET("/metrics", metrics.Handler())
	if deps.HealthHandler != nil {
		deps.HealthHandler.RegisterRoutes(r)
	}
	if deps.TranscriptionHandler != nil {
		deps.TranscriptionHandler.RegisterRoutes(r)
	}
	if deps.SectionsHandler != nil {
		deps.SectionsHandler.RegisterRoutes(r)
	}
	if deps.ResumesHandler != nil {
		deps.ResumesHandler.RegisterRoutes(r)
		deps.ResumesHandler.RegisterDownloadRoutes(r)
	}

	return r
}

// rateLimitRules returns nil when RATE_LIMIT_RPS is unset. Heavy routes get a
// quarter of the default budget.
func rateLimitRules(cfg config.Config) map[string]middleware.RateLimitRule {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	heavyBurst := burst / 4
	if heavyBurst < 1 {
		heavyBurst = 1
	}
	return map[string]middleware.RateLimitRule{
		rateGroupDefault: {Rate: cfg.RateLimitRPS, Burst: burst},
		rateGroupHeavy:   {Rate: cfg.RateLimitRPS / 4, Burst: heavyBurst},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":5000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
