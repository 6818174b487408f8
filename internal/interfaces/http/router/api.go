package router

import (
	"github.com/escola/backend/internal/infrastructure/logger"
	"github.com/escola/backend/internal/interfaces/http/handler"
	"github.com/escola/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the endpoints mounted by NewEngine
type Handlers struct {
	Students   *handler.StudentHandler
	Payments   *handler.PaymentHandler
	Statements *handler.StatementHandler
	Settings   *handler.SettingsHandler
	System     *handler.SystemHandler
}

// EngineConfig configures the middleware chain
type EngineConfig struct {
	ServiceName    string
	APIVersion     string
	TracingEnabled bool
	Meter          metric.Meter // nil disables HTTP metrics
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	MaxBodyBytes   int64
	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
	TrustedProxies []string
	Logger         *zap.Logger
}

// NewEngine builds the gin engine with the middleware chain and every route.
// Order matters: recovery first, then tracing so the span covers the rest,
// then request logging which assigns the request ID the span enricher reads.
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(logger.GinMiddleware(cfg.Logger, uuid.NewString))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.SecureWithConfig(cfg.Security))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}
	if cfg.RateLimitRPS > 0 {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	}
	engine.Use(middleware.IdempotencyKey())
	engine.Use(middleware.HTTPMetrics(cfg.Meter, cfg.Logger))

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	opts := []RouterOption{}
	if cfg.APIVersion != "" {
		opts = append(opts, WithAPIVersion(cfg.APIVersion))
	}
	r := NewRouter(engine, opts...).Register(BillingRoutes(h)...)
	r.Setup()
	for _, rt := range r.Routes() {
		cfg.Logger.Debug("route mounted",
			zap.String("group", rt.Group),
			zap.String("method", rt.Method),
			zap.String("path", rt.Path),
		)
	}
	return engine, nil
}

// BillingRoutes returns the route groups of the billing API
func BillingRoutes(h Handlers) []RouteRegistrar {
	var groups []RouteRegistrar

	if h.Students != nil || h.Payments != nil || h.Statements != nil {
		students := NewDomainGroup("students", "/students")
		if s := h.Students; s != nil {
			students.
				POST("", s.Register).
				GET("", s.List).
				GET("/:id", s.Get).
				PUT("/:id/profile", s.UpdateProfile).
				POST("/:id/suspend", s.Suspend).
				POST("/:id/reactivate", s.Reactivate).
				POST("/:id/extra-charges", s.AddExtraCharge)
		}
		if p := h.Payments; p != nil {
			students.
				POST("/:id/payments", p.Record).
				PUT("/:id/payments/:paymentId", p.Edit).
				DELETE("/:id/payments/:paymentId", p.Delete)
		}
		if st := h.Statements; st != nil {
			students.
				GET("/:id/monthly-status", st.MonthlyStatus).
				GET("/:id/overview", st.YearOverview).
				GET("/:id/debt-audit", st.DebtAudit).
				GET("/:id/ledger", st.Ledger)
		}
		groups = append(groups, students)
	}

	if s := h.Settings; s != nil {
		groups = append(groups,
			NewDomainGroup("settings", "/settings").
				GET("", s.Get).
				PUT("", s.Save),
			NewDomainGroup("academic-years", "/academic-years").
				GET("", s.ListAcademicYears).
				PUT("/:year", s.SaveAcademicYear),
		)
	}

	if s := h.System; s != nil {
		groups = append(groups,
			NewDomainGroup("system", "/system").
				GET("/info", s.GetSystemInfo).
				GET("/ping", s.Ping),
		)
	}
	return groups
}
