package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"scholarship-portal/internal/config"
	"scholarship-portal/internal/health"
	"scholarship-portal/internal/kafka"
	"scholarship-portal/internal/landing"
	"scholarship-portal/internal/logger"
	"scholarship-portal/internal/messaging"
	"scholarship-portal/internal/metrics"
	"scholarship-portal/internal/middleware"
	"scholarship-portal/internal/signup"
	"scholarship-portal/internal/telemetry"
	"scholarship-portal/internal/web"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const sweepInterval = time.Minute

type App struct {
	config *config.Config
	router chi.Router
	server *http.Server
	logger *slog.Logger

	store        *signup.Store
	stopSweeper  context.CancelFunc
	sweeperDone  chan struct{}
	backend      string
	closeBackend func() error
	gauges       metric.Registration
	telemetry    telemetry.ShutdownFunc
}

// New loads configuration and wires the application, exiting on failure.
func New() *App {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	slogLogger := logger.NewWithServiceContext(ServiceName, Version, logger.Options{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	})

	// Set as default logger so slog.Info() uses the same handler
	slog.SetDefault(slogLogger)

	slogLogger.Info("config loaded", "env", cfg.Env, "commit", GitCommit, "built", BuildTime)

	shutdownTelemetry, err := telemetry.Setup(context.Background(), telemetry.Options{
		ServiceName:     ServiceName,
		ServiceVersion:  Version,
		Environment:     cfg.Env,
		MetricsEndpoint: cfg.Telemetry.MetricsEndpoint,
		TracesEndpoint:  cfg.Telemetry.TracesEndpoint,
	}, slogLogger)
	if err != nil {
		slogLogger.Warn("failed to initialize telemetry", "error", err)
	}

	app, err := NewWithConfig(cfg, slogLogger)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	app.telemetry = shutdownTelemetry
	return app
}

// NewWithConfig wires routes and backends from an already loaded config.
func NewWithConfig(cfg *config.Config, slogLogger *slog.Logger) (*App, error) {
	slogLogger.Info("initializing application")

	app := &App{
		config: cfg,
		router: chi.NewRouter(),
		logger: slogLogger,
	}

	app.router.Use(chimiddleware.RequestID)
	app.router.Use(chimiddleware.RealIP)
	app.router.Use(middleware.Tracing(ServiceName))
	app.router.Use(middleware.RequestLogger(slogLogger))
	app.router.Use(chimiddleware.Recoverer)
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	meter := otel.Meter(ServiceName)
	m, err := metrics.New(meter)
	if err != nil {
		slogLogger.Warn("failed to initialize metrics", "error", err)
		m = nil
	}

	renderer, err := web.NewRenderer(slogLogger)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	healthHandler := health.NewHandler()

	dependencies := make(map[string]func() error)
	registrar, backend := app.newRegistrar(cfg.Registration, healthHandler, dependencies)
	app.backend = backend

	app.store = signup.NewStore(cfg.Signup.SessionTTL(), time.Now)
	signupService := signup.NewService(
		signup.NewValidator(cfg.Signup.MinAge),
		registrar,
		slogLogger,
		m,
		signup.WithBackendName(backend),
	)
	signupHandler := signup.NewHandler(signupService, app.store, renderer, signup.HandlerConfig{
		MaxPictureBytes: cfg.Signup.MaxPictureBytes,
		SubmitTimeout:   cfg.Signup.SubmitTimeout(),
		LoginPath:       cfg.Signup.LoginPath,
		RedirectDelay:   cfg.Signup.RedirectDelay(),
	}, slogLogger, m)

	app.gauges, err = metrics.RegisterGauges(meter, metrics.ServiceInfo{
		Name:        ServiceName,
		Version:     Version,
		Environment: cfg.Env,
	}, metrics.Gauges{
		Sessions:     app.store.Len,
		Dependencies: dependencies,
	})
	if err != nil {
		slogLogger.Warn("failed to register gauges", "error", err)
	}

	landingHandler := landing.NewHandler(renderer, landing.DefaultContent(), time.Now, slogLogger)

	healthHandler.RegisterRoutes(app.router)
	landingHandler.RegisterRoutes(app.router)
	signupHandler.RegisterRoutes(app.router)

	ctx, cancel := context.WithCancel(context.Background())
	app.stopSweeper = cancel
	app.sweeperDone = make(chan struct{})
	go func() {
		defer close(app.sweeperDone)
		app.store.Run(ctx, sweepInterval)
	}()

	slogLogger.Info("application initialized successfully", "registration_backend", backend)

	return app, nil
}

// newRegistrar picks the registration backend. A broker that cannot be
// reached at startup falls back to logging so the form keeps working.
func (a *App) newRegistrar(cfg config.RegistrationConfig, healthHandler *health.Handler, dependencies map[string]func() error) (signup.Registrar, string) {
	switch cfg.Backend {
	case "nats":
		producer, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, a.logger)
		if err != nil {
			a.logger.Warn("failed to initialize NATS producer, logging signups instead", "error", err)
			break
		}
		healthHandler.AddCheck("nats", producer.Ready)
		dependencies["nats"] = producer.Ready
		a.closeBackend = producer.Close
		return producer, "nats"

	case "kafka":
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, a.logger)
		if err != nil {
			a.logger.Warn("failed to initialize kafka producer, logging signups instead", "error", err)
			break
		}
		healthHandler.AddCheck("kafka", producer.Ready)
		dependencies["kafka"] = producer.Ready
		a.closeBackend = producer.Close
		return producer, "kafka"
	}

	return signup.NewLogRegistrar(a.logger), "log"
}

// Backend names the registration backend in use after any fallback.
func (a *App) Backend() string {
	return a.backend
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP traffic, stops background work and flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	a.stopSweeper()
	select {
	case <-a.sweeperDone:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}

	if a.gauges != nil {
		if err := a.gauges.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("gauges: %w", err))
		}
	}

	if a.closeBackend != nil {
		if err := a.closeBackend(); err != nil {
			errs = append(errs, fmt.Errorf("registration backend: %w", err))
		}
	}

	if a.telemetry != nil {
		if err := a.telemetry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
	}

	a.logger.Info("server stopped", "open_sessions", a.store.Len())
	return errors.Join(errs...)
}
