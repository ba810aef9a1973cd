package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/email-reminders/internal/app"
	"github.com/benvon/email-reminders/internal/config"
	"github.com/benvon/email-reminders/internal/handlers"
	"github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/middleware"
	"github.com/benvon/email-reminders/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("notifier", cfg.Notifier),
		zap.String("badge_renderer", cfg.BadgeRenderer),
		zap.String("mail_store", cfg.MailStore),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:  cfg.OTELEnabled,
		Endpoint: cfg.OTELEndpoint,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	a, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_initialize", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			zapLogger.Warn("failed_to_close_connections", zap.Error(err))
		}
	}()

	router, err := newRouter(cfg, a, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_build_router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   45 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error { return a.RunBackground(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("server_shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("server_stopped_with_error", zap.Error(err))
		return
	}
	zapLogger.Info("server_exited")
}

// newRouter wires middleware and routes. gorilla/mux runs middleware in
// registration order, so the first registered is the outermost.
func newRouter(cfg *config.Config, a *app.App, logger *zap.Logger) (*mux.Router, error) {
	rateStore, err := middleware.NewRateLimitStore(a.Redis)
	if err != nil {
		return nil, err
	}
	rateLimit, err := middleware.RateLimit(rateStore, cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.Logging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.ErrorHandler(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins(), logger))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize, logger))
	r.Use(middleware.ContentType(logger, "application/json", "application/yaml", "application/x-yaml"))
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))

	r.HandleFunc("/healthz", handlers.NewHealthChecker(a.HealthChecks()).HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(rateLimit)
	handlers.NewReminderHandler(a.Dispatcher, logger).RegisterRoutes(api)

	// Preflight requests are answered by the CORS middleware; this only
	// gives them a matching route.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r, nil
}
