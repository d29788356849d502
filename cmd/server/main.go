package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	certificadoapp "github.com/sgi/backend/internal/application/certificado"
	clienteapp "github.com/sgi/backend/internal/application/cliente"
	dashboardapp "github.com/sgi/backend/internal/application/dashboard"
	facturaapp "github.com/sgi/backend/internal/application/factura"
	identityapp "github.com/sgi/backend/internal/application/identity"
	presupuestoapp "github.com/sgi/backend/internal/application/presupuesto"
	printingapp "github.com/sgi/backend/internal/application/printing"
	prospectoapp "github.com/sgi/backend/internal/application/prospecto"
	proyectoapp "github.com/sgi/backend/internal/application/proyecto"
	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/infrastructure/afip"
	"github.com/sgi/backend/internal/infrastructure/auth"
	"github.com/sgi/backend/internal/infrastructure/cache"
	"github.com/sgi/backend/internal/infrastructure/config"
	"github.com/sgi/backend/internal/infrastructure/logger"
	"github.com/sgi/backend/internal/infrastructure/persistence"
	"github.com/sgi/backend/internal/infrastructure/printing"
	"github.com/sgi/backend/internal/infrastructure/scheduler"
	"github.com/sgi/backend/internal/infrastructure/storage"
	"github.com/sgi/backend/internal/infrastructure/telemetry"
	"github.com/sgi/backend/internal/interfaces/http/handler"
	"github.com/sgi/backend/internal/interfaces/http/middleware"
	"github.com/sgi/backend/internal/interfaces/http/router"
	"github.com/sgi/backend/internal/interfaces/http/views"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		TimeFormat:  "2006-01-02T15:04:05.000Z07:00",
		ServiceName: cfg.Telemetry.ServiceName,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	telemetry.ServiceVersion = version

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(rootCtx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown finished with errors", zap.Error(err))
		}
	}()

	// Mirror every log entry to the OTLP collector once the bridge is up
	if providers.Logs.IsEnabled() {
		bridged, err := logger.New(logCfg, providers.Logs.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
		if err != nil {
			log.Fatal("Failed to attach OpenTelemetry log bridge", zap.Error(err))
		}
		log = bridged
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting SGI Backend",
		zap.String("app", cfg.App.Name),
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithIgnoreRecordNotFoundError(true))

	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Repositories
	clienteRepo := persistence.NewGormClienteRepository(db.DB)
	presupuestoRepo := persistence.NewGormPresupuestoRepository(db.DB)
	facturaRepo := persistence.NewGormFacturaRepository(db.DB)
	proyectoRepo := persistence.NewGormProyectoRepository(db.DB)
	certificadoRepo := persistence.NewGormCertificadoRepository(db.DB)
	prospectoRepo := persistence.NewGormProspectoRepository(db.DB)
	dashboardRepo := persistence.NewGormDashboardRepository(db.DB)
	usuarioRepo := persistence.NewGormUsuarioRepository(db.DB)

	// Cache: Redis when configured and reachable, in-memory otherwise
	sharedCache, err := cache.NewFactory(cfg.Redis, cfg.Cache, cache.WithLogger(log)).Create()
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer func() {
		_ = sharedCache.Close()
	}()
	cacheBackend := "memory"
	if _, ok := sharedCache.(*cache.RedisCache); ok {
		cacheBackend = "redis"
	}
	loader := cache.NewLoader(sharedCache, log)

	// AFIP authorizer: WSAA + WSFEv1, or the mock in development
	authorizer, err := afip.New(&cfg.AFIP, log)
	if err != nil {
		log.Fatal("Failed to initialize AFIP client", zap.Error(err))
	}

	// Application services
	clienteService := clienteapp.NewService(clienteRepo, facturaRepo, proyectoRepo)
	importService := clienteapp.NewImportService(clienteRepo, log)
	presupuestoService := presupuestoapp.NewService(presupuestoRepo, clienteRepo, proyectoRepo,
		decimal.NewFromFloat(cfg.Company.DefaultIVARate), log)
	facturaService := facturaapp.NewService(facturaRepo, clienteRepo, authorizer, facturaapp.Emitter{
		IVACondition:   cliente.IVACondition(cfg.Company.IVACondition),
		PointOfSale:    cfg.AFIP.PointOfSale,
		DefaultIVARate: decimal.NewFromFloat(cfg.Company.DefaultIVARate),
	}, log)
	facturaService.SetSources(presupuestoRepo, certificadoRepo)
	facturaService.SetCache(loader)
	proyectoService := proyectoapp.NewService(proyectoRepo, clienteRepo, certificadoRepo)
	certificadoService := certificadoapp.NewService(certificadoRepo, proyectoRepo, certificadoRepo, log)
	prospectoService := prospectoapp.NewService(prospectoRepo, clienteService, log)
	dashboardService := dashboardapp.NewService(dashboardRepo, loader, cfg.Cache.DashboardTTL, log)

	if providers.Meter.IsEnabled() {
		businessMetrics, err := telemetry.NewBusinessMetrics(providers.Meter.Meter("sgi"), facturaService, log)
		if err != nil {
			log.Warn("Business metrics unavailable", zap.Error(err))
		} else {
			facturaService.SetMetrics(businessMetrics)
			presupuestoService.SetMetrics(businessMetrics)
			prospectoService.SetMetrics(businessMetrics)
		}
	}

	documentService, closeDocuments := newDocumentService(rootCtx, cfg, facturaRepo, presupuestoRepo, clienteRepo, log)
	defer closeDocuments()

	// Authentication
	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist := auth.NewCacheTokenBlacklist(sharedCache)
	authService := identityapp.NewAuthService(usuarioRepo, jwtService, blacklist, identityapp.DefaultAuthServiceConfig(), log)

	created, err := authService.EnsureAdmin(rootCtx, identityapp.AdminSeed{
		Username: cfg.App.AdminUser,
		Email:    cfg.App.AdminEmail,
		Password: cfg.App.AdminPassword,
	})
	if err != nil {
		log.Warn("Initial administrator not created", zap.Error(err))
	} else if created {
		log.Info("Initial administrator seeded", zap.String("username", cfg.App.AdminUser))
	}

	// Background jobs: CAE retries and presupuesto expiration
	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(cfg.Scheduler, scheduler.NewExecutor(facturaService, presupuestoService), log)
		if err := sched.Start(rootCtx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		trigger := scheduler.NewTrigger(cfg.Scheduler, sched, facturaService, log)
		if err := trigger.Start(rootCtx); err != nil {
			log.Fatal("Failed to start scheduler trigger", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := trigger.Stop(ctx); err != nil {
				log.Warn("Scheduler trigger stop", zap.Error(err))
			}
			if err := sched.Stop(ctx); err != nil {
				log.Warn("Scheduler stop", zap.Error(err))
			}
		}()
	}

	// HTML back office
	renderer, err := views.NewRenderer(printing.NewFormatter(printing.Locale, nil))
	if err != nil {
		log.Fatal("Failed to parse view templates", zap.Error(err))
	}
	viewHandler := views.NewHandler(renderer, views.Services{
		Clientes:     clienteService,
		Presupuestos: presupuestoService,
		Facturas:     facturaService,
		Proyectos:    proyectoService,
		Certificados: certificadoService,
		Prospectos:   prospectoService,
		Dashboard:    dashboardService,
	})

	engine := router.NewEngine(router.Options{
		Config:     cfg,
		Logger:     log,
		JWTService: jwtService,
		Blacklist:  blacklist,
		Handlers: router.Handlers{
			Auth:         handler.NewAuthHandler(authService),
			Clientes:     handler.NewClienteHandler(clienteService, importService),
			Presupuestos: handler.NewPresupuestoHandler(presupuestoService, documentService),
			Facturas:     handler.NewFacturaHandler(facturaService, documentService),
			Proyectos:    handler.NewProyectoHandler(proyectoService),
			Certificados: handler.NewCertificadoHandler(certificadoService),
			Prospectos:   handler.NewProspectoHandler(prospectoService),
			Dashboard:    handler.NewDashboardHandler(dashboardService),
			System: handler.NewSystemHandler(handler.SystemInfo{
				Name:         cfg.App.Name,
				Version:      version,
				Environment:  cfg.App.Env,
				AFIPMode:     authorizer.Mode(),
				CacheBackend: cacheBackend,
			}, db),
		},
		Views:         viewHandler,
		Prometheus:    middleware.NewPrometheusMetrics("sgi"),
		Performance:   middleware.NewPerformanceMonitor(cfg.HTTP.SlowRequestThreshold, log),
		MeterProvider: providers.Meter,
	})
	defer engine.Close()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// newDocumentService builds the HTML/PDF document service. PDF output needs
// printing enabled; archiving authorized facturas needs storage enabled.
// Neither is fatal: the service degrades to HTML-only output.
func newDocumentService(
	ctx context.Context,
	cfg *config.Config,
	facturas printingapp.FacturaStore,
	presupuestos printingapp.PresupuestoFinder,
	clientes printingapp.ClienteFinder,
	log *zap.Logger,
) (*printingapp.DocumentService, func()) {
	engine, err := printing.NewTemplateEngine()
	if err != nil {
		log.Fatal("Failed to parse document templates", zap.Error(err))
	}

	closeFn := func() {}
	var renderer printing.PDFRenderer
	if cfg.Printing.Enabled {
		chrome, err := printing.NewChromedpRenderer(cfg.Printing, log)
		if err != nil {
			log.Warn("PDF rendering unavailable", zap.Error(err))
		} else {
			renderer = chrome
			closeFn = func() {
				if err := chrome.Close(); err != nil {
					log.Warn("Closing PDF renderer", zap.Error(err))
				}
			}
		}
	}

	svc := printingapp.NewDocumentService(facturas, presupuestos, clientes, engine, renderer, cfg.Company, log)
	svc.SetPaperSize(printing.ParsePaperSize(cfg.Printing.PaperSize))

	if cfg.Storage.Enabled {
		store, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration))
		if err != nil {
			log.Warn("Object storage unavailable, PDFs will not be archived", zap.Error(err))
			return svc, closeFn
		}
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := store.EnsureBucket(initCtx); err != nil {
			log.Warn("Object storage bucket check failed", zap.Error(err))
		}
		svc.SetArchive(store)
	}

	return svc, closeFn
}
