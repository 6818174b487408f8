package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/escola/backend/internal/application/billing"
	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/infrastructure/cache"
	"github.com/escola/backend/internal/infrastructure/config"
	"github.com/escola/backend/internal/infrastructure/event"
	"github.com/escola/backend/internal/infrastructure/logger"
	"github.com/escola/backend/internal/infrastructure/persistence"
	"github.com/escola/backend/internal/infrastructure/telemetry"
	"github.com/escola/backend/internal/interfaces/http/handler"
	"github.com/escola/backend/internal/interfaces/http/middleware"
	"github.com/escola/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = baseLog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, baseLog); err != nil {
		baseLog.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, baseLog *zap.Logger) error {
	// Telemetry providers come first so every later component is instrumented.
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		return err
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		return err
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		return err
	}
	log := lp.Bridge(baseLog, zapcore.InfoLevel)
	defer shutdownTelemetry(log, tp, mp, lp)

	log.Info("Starting escola billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", cfg.Billing.Timezone),
	)

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	idemStore := cache.NewIdempotencyStore(ctx, cfg.Redis, log)
	defer func() { _ = idemStore.Close() }()
	idemConfig := shared.IdempotencyConfig{
		Enabled: cfg.Billing.IdempotencyEnabled,
		TTL:     cfg.Billing.IdempotencyTTL,
	}

	bus := event.NewInMemoryEventBus(log)
	notifications := billingapp.NewPaymentNotificationHandler(billingapp.NewLogNotifier(log), log)
	bus.Subscribe(event.NewIdempotentHandler(notifications, idemStore, idemConfig, log), notifications.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bus.Stop(stopCtx); err != nil {
			log.Warn("Event bus did not drain", zap.Error(err))
		}
	}()

	students := persistence.NewGormStudentRepository(db.DB)
	settings := persistence.NewGormSettingsRepository(db.DB)
	years := persistence.NewGormAcademicYearRepository(db.DB)
	engine := billing.NewEngine()
	loc := cfg.Billing.Location()

	opts := []billingapp.ServiceOption{
		billingapp.WithClock(billing.SystemClock{Location: loc}),
		billingapp.WithTolerances(billing.Tolerances{
			PaidEpsilon:   cfg.Billing.PaidEpsilon,
			DebtTolerance: cfg.Billing.DebtTolerance,
		}),
		billingapp.WithEventPublisher(bus),
		billingapp.WithIdempotencyStore(idemStore, idemConfig),
		billingapp.WithLogger(log),
	}

	accounts := billingapp.NewAccountService(students, settings, years, opts...)
	statements := billingapp.NewStatementService(students, settings, years, engine, opts...)

	var meter metric.Meter
	if mp.IsEnabled() {
		meter = mp.Meter("escola-backend")
		billingMetrics, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
			Meter:   meter,
			Logger:  log,
			Overdue: statements,
		})
		if err != nil {
			return err
		}
		billingMetrics.StartPeriodicCollection(ctx, cfg.Billing.OverdueCollectInterval)
		defer billingMetrics.Stop()
		opts = append(opts, billingapp.WithMetrics(billingMetrics))
	}
	recorder := billingapp.NewPaymentRecorder(students, settings, years, engine, opts...)

	checks := map[string]handler.HealthChecker{"database": handler.HealthCheckFunc(db.Ping)}
	if cfg.Redis.Enabled {
		checks["idempotency_store"] = handler.HealthCheckFunc(func(ctx context.Context) error {
			_, err := idemStore.IsProcessed(ctx, "health:probe")
			return err
		})
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.HSTSEnabled = cfg.App.Env == "production"

	api, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tp.IsEnabled(),
		Meter:          meter,
		CORS:           corsCfg,
		Security:       securityCfg,
		MaxBodyBytes:   cfg.HTTP.MaxBodySize,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Logger:         log,
	}, router.Handlers{
		Students:   handler.NewStudentHandler(accounts, loc),
		Payments:   handler.NewPaymentHandler(recorder, loc),
		Statements: handler.NewStatementHandler(statements),
		Settings:   handler.NewSettingsHandler(accounts),
		System:     handler.NewSystemHandler(cfg.App.Name, version, checks),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        api,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

// openDatabase connects with the zap-backed GORM logger and the tracing
// plugin. SQLite databases are created from the models; PostgreSQL schemas
// are owned by cmd/migrate.
func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		return nil, err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		tracingCfg := telemetry.DefaultDBTracingConfig()
		tracingCfg.Enabled = true
		tracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			tracingCfg.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		}
		if db.Driver == "sqlite" {
			tracingCfg.DBSystem = "sqlite"
		}
		if err := telemetry.NewDBTracingPlugin(tracingCfg, log).Register(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if db.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver))
	return db, nil
}

func shutdownTelemetry(log *zap.Logger, tp *telemetry.TracerProvider, mp *telemetry.MeterProvider, lp *telemetry.LoggerProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mp.Shutdown(ctx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	// The log provider goes last so the messages above are still exported.
	if err := lp.Shutdown(ctx); err != nil {
		log.Warn("Logger provider shutdown failed", zap.Error(err))
	}
}
