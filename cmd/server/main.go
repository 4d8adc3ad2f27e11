package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/solarfin/backend/internal/application/negotiation"
	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/infrastructure/auth"
	"github.com/solarfin/backend/internal/infrastructure/backend"
	"github.com/solarfin/backend/internal/infrastructure/cache"
	"github.com/solarfin/backend/internal/infrastructure/config"
	"github.com/solarfin/backend/internal/infrastructure/logger"
	"github.com/solarfin/backend/internal/infrastructure/migration"
	"github.com/solarfin/backend/internal/infrastructure/persistence"
	"github.com/solarfin/backend/internal/infrastructure/scheduler"
	"github.com/solarfin/backend/internal/infrastructure/telemetry"
	"github.com/solarfin/backend/internal/interfaces/http/handler"
	"github.com/solarfin/backend/internal/interfaces/http/middleware"
	"github.com/solarfin/backend/internal/interfaces/http/router"
	"github.com/solarfin/backend/migrations"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Solar Negotiation API
//	@version		1.0
//	@description	Loan and quote request actions for the solar financing portal

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize OTEL logs", zap.Error(err))
	}
	if logsProvider.IsEnabled() {
		level, lerr := zapcore.ParseLevel(cfg.Log.Level)
		if lerr != nil {
			level = zapcore.InfoLevel
		}
		if log, err = logger.New(logCfg, logger.WithTee(logsProvider.ZapCore(level))); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting solar negotiation service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	metrics, err := telemetry.NewNegotiationMetrics(meterProvider.Meter("solar.negotiation"))
	if err != nil {
		log.Fatal("Failed to register negotiation metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	store, err := cache.NewStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithKeyPrefix(cfg.Cache.KeyPrefix),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	loader := cache.NewLoader(store, metrics, log, cache.WithFlightScope(backend.BearerToken))

	client := backend.NewClient(cfg.Upstream, log, backend.WithMetrics(metrics))
	policy := backend.CachePolicy{EntityTTL: cfg.Cache.EntityTTL, ListTTL: cfg.Cache.ListTTL}
	loanGateway := backend.NewLoans(client, cfg.Upstream.Paths, loader, policy)
	quoteGateway := backend.NewQuotes(client, cfg.Upstream.Paths, loader, policy)

	serviceOpts := []negotiation.Option{
		negotiation.WithMetrics(metrics),
		negotiation.WithConfirmationTTL(cfg.Confirmation.TTL),
	}

	checks := map[string]handler.Pinger{"cache": store}

	if cfg.Database.Enabled {
		db, err := openAuditStore(cfg, log)
		if err != nil {
			log.Fatal("Failed to open audit store", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		serviceOpts = append(serviceOpts, negotiation.WithTransitionRepository(persistence.NewGormTransitionRepository(db.DB)))
		checks["database"] = db
	} else {
		log.Info("Audit store disabled, transitions are not recorded")
	}

	var poller *scheduler.Poller
	if cfg.Cache.PollEnabled {
		poller, err = newPoller(cfg, loanGateway, quoteGateway, metrics, log)
		if err != nil {
			log.Fatal("Failed to create poller", zap.Error(err))
		}
		if err := poller.Start(ctx); err != nil {
			log.Fatal("Failed to start poller", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, negotiation.WithWatcher(poller))
	}

	service := negotiation.NewService(loanGateway, quoteGateway, loader, store, log, serviceOpts...)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		defer limiter.Stop()
	}

	engine := router.NewEngine(router.Dependencies{
		Config:      cfg,
		Logger:      log,
		Validator:   auth.NewJWTService(cfg.JWT),
		RateLimiter: limiter,
		Metrics:     middleware.NewHTTPMetrics(cfg.HTTP.MetricsNamespace),
		Loans:       handler.NewLoanHandler(service),
		Quotes:      handler.NewQuoteHandler(service),
		Health:      handler.NewHealthHandler(checks),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if poller != nil {
		if err := poller.Stop(shutdownCtx); err != nil {
			log.Warn("Poller did not stop cleanly", zap.Error(err))
		}
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn("Error closing cache store", zap.Error(err))
		}
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openAuditStore connects to PostgreSQL, applies the embedded migrations and
// instruments GORM
func openAuditStore(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	migrator, err := migration.New(sqlDB, migration.Source{FS: migrations.FS}, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("Audit store ready", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.DBName))
	return db, nil
}

// newPoller wires the bounded refresher to the gateways' Refresh calls
func newPoller(cfg *config.Config, loans *backend.Loans, quotes *backend.Quotes, metrics *telemetry.NegotiationMetrics, log *zap.Logger) (*scheduler.Poller, error) {
	executor := scheduler.NewRefreshExecutor(cfg.Upstream.ServiceToken, map[audit.EntityKind]scheduler.RefreshFunc{
		audit.EntityKindLoan: func(ctx context.Context, id string) error {
			_, err := loans.Refresh(ctx, id)
			return err
		},
		audit.EntityKindQuote: func(ctx context.Context, id string) error {
			_, err := quotes.Refresh(ctx, id)
			return err
		},
	})

	schedCfg := scheduler.DefaultSchedulerConfig()
	if cfg.Cache.PollWorkers > 0 {
		schedCfg.Workers = cfg.Cache.PollWorkers
	}
	if cfg.Cache.MaxWatched > schedCfg.QueueSize {
		schedCfg.QueueSize = cfg.Cache.MaxWatched
	}
	sched, err := scheduler.NewScheduler(schedCfg, executor, log)
	if err != nil {
		return nil, err
	}
	return scheduler.NewPoller(scheduler.PollerConfig{
		Interval:   cfg.Cache.PollInterval,
		MaxWatched: cfg.Cache.MaxWatched,
		WatchTTL:   cfg.Cache.WatchTTL,
	}, sched, metrics, log)
}
