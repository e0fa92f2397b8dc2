package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"platepulse/internal/auth"
	"platepulse/internal/charts"
	"platepulse/internal/config"
	"platepulse/internal/dataset"
	apierrors "platepulse/internal/errors"
	"platepulse/internal/infrastructure"
	customMiddleware "platepulse/internal/middleware"
	"platepulse/internal/services"
	handlers "platepulse/internal/transport/http"
)

// BuildTime is set at link time with -ldflags "-X platepulse/internal/app.BuildTime=..."
var BuildTime string

// Application represents the main application container
type Application struct {
	Config        *config.Config
	ConfigPath    string
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DatasetMetrics
	Cache         *dataset.Cache
	Sessions      *auth.SessionStore
	Credentials   *auth.CredentialStore
	Services      *ServiceContainer

	watcher *config.Watcher
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Auth    *services.AuthService
	Dataset *services.DatasetService
	Health  *services.HealthService
}

// NewApplication loads configuration from configFile (or the usual
// locations when empty), sets up the process logger and builds the
// application. The config file, when one is found, is watched for changes.
func NewApplication(configFile string) (*Application, error) {
	path := config.ResolvePath(configFile)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.ConfigPath = path
	return app, nil
}

// New builds the application from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("addr", cfg.Server.Addr()))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	app.createServer()

	return app, nil
}

// initializeServices wires the stores and services. Ending a session, for
// any reason, releases the dataset it referenced.
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.NewDatasetMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	a.Metrics = metrics

	a.Cache = dataset.NewCache(a.Logger)
	a.Sessions = auth.NewSessionStore(
		a.Config.Auth.MaxSessions,
		a.Config.Auth.SessionTTL,
		services.SessionEvictHook(a.Cache, metrics, a.Logger),
		a.Logger,
	)

	credentials, err := auth.NewCredentialStore(a.Config.Auth.Users, a.Config.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	a.Credentials = credentials

	throttle := auth.NewThrottle(a.Config.Security.LoginThrottle.PerMinute, a.Config.Security.LoginThrottle.Burst)

	a.Services = &ServiceContainer{
		Auth:    services.NewAuthService(credentials, a.Sessions, throttle, metrics, a.Logger),
		Dataset: services.NewDatasetService(a.Cache, a.Sessions, metrics, services.DatasetOptionsFromConfig(a.Config), a.Logger),
		Health:  services.NewHealthService(config.AppVersion, BuildTime, a.Cache, a.Sessions, credentials, a.Logger),
	}
	return nil
}

// setupRouter configures the HTTP router with all routes.
// Middleware order: RequestID → RealIP → OTel → Logger → Recoverer →
// SecurityHeaders → Compress → CORS → RateLimit → Timeout → SessionGate
func (a *Application) setupRouter() error {
	templates, err := handlers.NewTemplates()
	if err != nil {
		return err
	}
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders(a.Config.Dashboard.ChartAssetsHost))
	r.Use(customMiddleware.Compress(5))
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.corsConfig()))
	}
	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

	gate := customMiddleware.NewSessionGate(a.Services.Auth, a.Config.Auth.CookieName, a.Logger)
	gate.AddExcludePath("/metrics")
	r.Use(gate.Handler)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	cookie := handlers.CookieConfig{
		Name:   a.Config.Auth.CookieName,
		Secure: a.Config.Security.SecureCookies,
		TTL:    a.Config.Auth.SessionTTL,
	}
	authHandler := handlers.NewAuthHandler(a.Services.Auth, cookie, templates, errorHandler, a.Logger)
	datasetHandler := handlers.NewDatasetHandler(a.Services.Dataset, errorHandler, a.Logger)
	chartHandler := handlers.NewChartHandler(a.Services.Dataset, charts.NewBuilder(a.Config.Dashboard.ChartAssetsHost), templates, errorHandler, a.Logger)
	pageHandler := handlers.NewPageHandler(a.Services.Dataset, templates, errorHandler, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)

	// HTML dashboard
	r.Get("/login", authHandler.LoginPage)
	r.Post("/login", authHandler.LoginForm)
	r.Post("/logout", authHandler.LogoutForm)
	r.Get("/", pageHandler.Index)
	r.Get("/pages/{page}", pageHandler.Page)
	r.Post("/upload", pageHandler.Upload)
	r.Get("/charts/{name}", chartHandler.RenderChart)

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())
		r.Mount("/dataset", datasetHandler.Routes())
		r.Mount("/charts", chartHandler.Routes())

		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Mount("/client-log", handlers.NewClientLogHandler(errorHandler, a.Logger).Routes())
	})

	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, errorHandler))

	a.Router = r
	return nil
}

// corsConfig allows the configured origins to call the JSON API with the
// session cookie.
func (a *Application) corsConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// applyConfig takes over the settings that can change without a restart:
// log level, users and dataset view options. Server and session settings
// keep their startup values.
func (a *Application) applyConfig(cfg *config.Config) {
	infrastructure.SetLevel(cfg.Logging.Level)

	if err := a.Credentials.Replace(cfg.Auth.Users); err != nil {
		a.Logger.Warn("Keeping previous users", slog.String("error", err.Error()))
	}
	a.Services.Dataset.SetOptions(services.DatasetOptionsFromConfig(cfg))

	a.Logger.Info("Configuration applied",
		slog.String("log_level", cfg.Logging.Level),
		slog.Int("users", len(a.Credentials.Usernames())),
		slog.Int("preview_rows", cfg.Dashboard.PreviewRows),
		slog.Int("top_types", cfg.Dashboard.TopTypes))
}

// Run listens on the configured address and serves until ctx is cancelled
// or the process receives SIGINT or SIGTERM.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.ConfigPath != "" {
		watcher, err := config.NewWatcher(a.ConfigPath, a.applyConfig, a.Logger)
		if err != nil {
			a.Logger.Warn("Config hot reload disabled", slog.String("error", err.Error()))
		} else if err := watcher.Start(gctx); err != nil {
			a.Logger.Warn("Config hot reload disabled", slog.String("error", err.Error()))
			_ = watcher.Stop()
		} else {
			a.watcher = watcher
		}
	}

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Application started",
			slog.String("address", "http://"+ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(gctx, "Shutdown requested")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.Logger.ErrorContext(ctx, "Error stopping config watcher", slog.String("error", err.Error()))
		}
	}

	// Ends every session, which releases every cached dataset.
	a.Sessions.Purge()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Int("cached_datasets", a.Cache.Len()))
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("closing log file: %w", err))
	}
	return errors.Join(errs...)
}
