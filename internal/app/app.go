package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"sricli/internal/config"
	apperrors "sricli/internal/errors"
	"sricli/internal/dataprocessing"
	"sricli/internal/exporter"
	"sricli/internal/fetcher"
	"sricli/internal/files"
	"sricli/internal/infrastructure"
	customMiddleware "sricli/internal/middleware"
	"sricli/internal/operations"
	"sricli/internal/services"
	handlers "sricli/internal/transport/http"
	"sricli/internal/updater"
	ws "sricli/internal/websocket"
	"sricli/pkg/contracts"
	"sricli/pkg/contracts/events"
)

// How often the server compares the portal against the raw directory.
const datasetCheckInterval = 12 * time.Hour

// Application is the dependency container of the SRI Pulse server.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	OTelProviders *infrastructure.OTelProviders

	Hub            *ws.Hub
	Manager        *operations.Manager
	UpdateChecker  *updater.AutoChecker
	DataService    *services.DataService
	OpsService     *services.OperationsService
	HealthService  *services.HealthService
	errorHandler   *apperrors.ErrorHandler
	metrics        *infrastructure.BusinessMetrics
	sysCollector   *infrastructure.SystemMetricsCollector
}

// NewApplication builds a fully wired application from configuration and
// environment. Nothing is started yet; call Run or Start.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", contracts.GetVersionString()),
		slog.String("version", contracts.Version))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.EnableTracing = cfg.Logging.Development
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		Paths:         paths,
		OTelProviders: providers,
		errorHandler:  apperrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := a.initializeServices(); err != nil {
		return nil, err
	}
	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices builds the processing stack and the service layer.
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.metrics = metrics

	collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, 30*time.Second)
	if err != nil {
		return fmt.Errorf("failed to create system metrics collector: %w", err)
	}
	a.sysCollector = collector

	a.Hub = ws.NewHub(a.Logger, metrics)

	loaderCfg := dataprocessing.DefaultLoaderConfig()
	if a.Config.Processing.Separator != "" {
		loaderCfg.Separator = rune(a.Config.Processing.Separator[0])
	}
	loaderCfg.StrictMode = a.Config.Processing.StrictMode
	loaderCfg.MaxWorkers = a.Config.Processing.MaxWorkers
	loader := dataprocessing.NewLoader(a.Logger, loaderCfg)
	summarizer := dataprocessing.NewSummarizer(a.Logger, dataprocessing.DefaultSummarizerConfig())

	discovery := files.NewDiscovery(a.Paths.RawDir)
	manager := files.NewManager(a.Paths)
	datasetExporter := exporter.NewDatasetExporter(a.Paths)

	portalFetcher := fetcher.NewFetcher(a.Logger, a.Config.Fetcher, a.Paths.RawDir)
	portalFetcher.SetMetrics(metrics)

	a.Manager = operations.NewManager(a.Logger, ws.NewOperationBroadcaster(a.Hub),
		operations.NewFetchStep(portalFetcher),
		operations.NewProcessStep(loader, datasetExporter, discovery, a.Paths, metrics),
		operations.NewSummarizeStep(summarizer, loader, a.Paths),
	)
	a.Manager.SetMetrics(metrics)

	a.DataService = services.NewDataService(a.Logger, a.Paths, loader, discovery)
	a.OpsService = services.NewOperationsService(a.Logger, a.Manager)
	a.HealthService = services.NewHealthService(
		contracts.Version, contracts.BuildTime,
		a.Paths, manager, discovery, a.OpsService, a.Hub, a.Logger)

	checker := updater.NewChecker(portalFetcher, discovery, a.Paths.RawDir, a.Logger)
	a.UpdateChecker = updater.NewAutoChecker(checker, datasetCheckInterval, func(info *updater.UpdateInfo) {
		a.Hub.Broadcast(events.Message{
			Type: events.MessageTypeSystemStatus,
			Data: events.SystemStatusData{
				Status:  "datasets_available",
				Message: fmt.Sprintf("%d new dataset periods published on the SRI portal", len(info.Missing)),
			},
			Timestamp: time.Now(),
		})
	}, a.Logger)

	return nil
}

// setupRouter builds the chi router. The websocket route stays outside
// the heavy middleware group because wrapped ResponseWriters break the
// upgrade; /metrics stays outside so scrapes are cheap.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.HandleFunc("/ws", ws.ServeWS(a.Hub, a.Logger))

	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		if a.OTelProviders != nil {
			if otelMW, err := customMiddleware.NewOTelMiddleware(a.OTelProviders); err != nil {
				a.Logger.Error("failed to create OTel middleware", slog.String("error", err.Error()))
			} else {
				r.Use(otelMW.Handler)
			}
		}
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.Compress(5))

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins:   a.Config.Security.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
				AllowCredentials: true,
				MaxAge:           300,
				Logger:           a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes mounts the versioned API.
func (a *Application) setupAPIRoutes(r chi.Router) {
	dataHandler := handlers.NewDataHandler(a.DataService, a.Logger, a.errorHandler)
	opsHandler := handlers.NewOperationsHandler(a.OpsService, a.Logger, a.errorHandler)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// Read path with the standard request timeout.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/stats", healthHandler.SystemStats)
			r.Get("/version", healthHandler.Version)

			r.Mount("/sales", dataHandler.Routes())
			r.Get("/datasets", dataHandler.GetDatasets)
			r.Get("/datasets/stats", dataHandler.GetStats)
		})

		// Operations run long; they get their own timeout.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.Logger))
			r.Mount("/operations", opsHandler.Routes())
		})
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the hub, the update checker and the HTTP listener. A
// listener failure cancels the passed context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	a.Hub.Start()
	a.UpdateChecker.Start()
	if a.sysCollector != nil {
		go a.sysCollector.Start(ctx)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "server started",
		slog.String("address", fmt.Sprintf("http://%s", a.Server.Addr)))
	return nil
}

// Stop drains the server and shuts the background services down.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.UpdateChecker.Stop()
	if a.sysCollector != nil {
		a.sysCollector.Stop()
	}

	if err := a.Manager.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "error shutting down operations",
			slog.String("error", err.Error()))
	}

	a.Hub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
