package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sgi/backend/internal/infrastructure/auth"
	"github.com/sgi/backend/internal/infrastructure/config"
	"github.com/sgi/backend/internal/infrastructure/logger"
	"github.com/sgi/backend/internal/infrastructure/telemetry"
	"github.com/sgi/backend/internal/interfaces/http/middleware"
	"github.com/sgi/backend/internal/interfaces/http/views"
)

// Options are the dependencies of the HTTP engine
type Options struct {
	Config     *config.Config
	Logger     *zap.Logger
	JWTService *auth.JWTService
	Blacklist  auth.TokenBlacklist
	Handlers   Handlers
	// Views is optional; without it /app is not mounted
	Views         *views.Handler
	Prometheus    *middleware.PrometheusMetrics
	Performance   *middleware.PerformanceMonitor
	MeterProvider *telemetry.MeterProvider
}

// Engine is the configured gin engine plus the limiters it owns
type Engine struct {
	*gin.Engine
	limiters []*middleware.RateLimiter
}

// Close stops the background work of the rate limiters
func (e *Engine) Close() {
	for _, l := range e.limiters {
		l.Stop()
	}
}

// NewEngine builds the engine with the full middleware stack and every route:
// /health, /metrics/*, /api/v1/* (JWT) and /app/* (HTTP Basic).
func NewEngine(opts Options) *Engine {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	production := cfg.App.Env == "production"

	middleware.SetupValidator()

	engine := gin.New()
	e := &Engine{Engine: engine}

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request ID must exist before anything logs, and
	// recovery must wrap every later handler.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if opts.Performance != nil {
		engine.Use(opts.Performance.Middleware())
	}
	if opts.Prometheus != nil {
		engine.Use(opts.Prometheus.Middleware())
	}
	if opts.MeterProvider != nil && cfg.Telemetry.MetricsEnabled {
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: opts.MeterProvider,
			Enabled:       true,
		}))
	}
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		e.limiters = append(e.limiters, limiter)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	var loginLimit gin.HandlerFunc
	if cfg.HTTP.AuthRateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		e.limiters = append(e.limiters, limiter)
		loginLimit = middleware.AuthRateLimit(limiter)
	}

	h := opts.Handlers
	if h.System != nil {
		engine.GET("/health", h.System.Health)
		engine.GET("/health/live", h.System.Live)
		engine.GET("/api/v1/health", h.System.Health)
	}

	basic := middleware.BasicAuth(cfg.BasicAuth, !production, log)
	metrics := engine.Group("/metrics", basic)
	if opts.Performance != nil {
		metrics.GET("/performance", opts.Performance.Handler())
	}
	if opts.Prometheus != nil {
		metrics.GET("/prometheus", opts.Prometheus.Handler())
	}

	if opts.Views != nil {
		app := engine.Group("/app", basic)
		opts.Views.RegisterRoutes(app)
		engine.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/app/")
		})
	}

	jwtConfig := middleware.DefaultJWTConfig(opts.JWTService)
	jwtConfig.TokenBlacklist = opts.Blacklist
	jwtConfig.SkipPaths = append(jwtConfig.SkipPaths, "/api/v1/system/info")
	jwtConfig.Logger = log

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig), middleware.Sanitize())
	for _, g := range h.Groups(loginLimit, middleware.RequireRole("ADMIN")) {
		r.Register(g)
	}
	r.Setup()

	return e
}
