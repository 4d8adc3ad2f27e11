package router

import (
	"github.com/gin-gonic/gin"
	"github.com/solarfin/backend/internal/infrastructure/config"
	"github.com/solarfin/backend/internal/infrastructure/logger"
	"github.com/solarfin/backend/internal/interfaces/http/handler"
	"github.com/solarfin/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP surface is built from
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Validator   middleware.TokenValidator
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Loans       *handler.LoanHandler
	Quotes      *handler.QuoteHandler
	Health      *handler.HealthHandler
}

// NewEngine builds the gin engine with the global middleware chain, the
// probes, the scrape endpoint and the authenticated /api/v1 routes.
// RateLimiter and Metrics are optional.
func NewEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(
		logger.Recovery(deps.Logger),
		middleware.RequestID(),
		logger.GinMiddleware(deps.Logger),
	)
	if cfg.Telemetry.Enabled {
		tracing := middleware.DefaultTracingConfig(cfg.Telemetry.ServiceName)
		tracing.SkipPaths = append(tracing.SkipPaths, cfg.HTTP.MetricsPath)
		engine.Use(middleware.Tracing(tracing), middleware.SpanErrorMarker())
	}
	if deps.Metrics != nil {
		engine.Use(deps.Metrics.Middleware())
	}
	engine.Use(
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/health", deps.Health.Live)
	engine.GET("/ready", deps.Health.Ready)
	if deps.Metrics != nil {
		engine.GET(cfg.HTTP.MetricsPath, gin.WrapH(deps.Metrics.Handler()))
	}

	jwt := middleware.DefaultJWTConfig(deps.Validator)
	jwt.Logger = deps.Logger

	api := NewRouter(engine).Use(
		middleware.JWTAuthWithConfig(jwt),
		middleware.TracingAttributeInjector(),
	)
	if deps.RateLimiter != nil {
		api.Use(middleware.RateLimit(deps.RateLimiter))
	}
	if cfg.Profiling.Enabled {
		api.Use(middleware.Profiling())
	}
	api.Register(LoanRoutes(deps.Loans)).
		Register(QuoteRoutes(deps.Quotes)).
		Setup()

	return engine
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}
