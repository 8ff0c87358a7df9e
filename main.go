package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/s1natex/taskboard/internal/config"
	"github.com/s1natex/taskboard/internal/identity"
	"github.com/s1natex/taskboard/internal/middleware"
	"github.com/s1natex/taskboard/internal/tasks"
	"github.com/s1natex/taskboard/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger) // for third-party packages that use slog

	if err := run(cfg, logger); err != nil {
		logger.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.TraceExporter, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown_error", slog.String("error", err.Error()))
		}
	}()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Warn("store_close_error", slog.String("error", err.Error()))
		}
	}()
	logger.Info("store_ready", slog.String("driver", cfg.StoreDriver))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, repo, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server_stopped")
	return nil
}

type migrator interface {
	ApplyMigrations(ctx context.Context) error
}

// openRepository builds the store selected by cfg.StoreDriver and applies
// its schema.
func openRepository(ctx context.Context, cfg config.Config) (tasks.Repository, func() error, error) {
	var repo interface {
		tasks.Repository
		migrator
		Close() error
	}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		return tasks.NewInMemoryRepo(), func() error { return nil }, nil
	case config.DriverPostgres:
		pg, err := tasks.NewPostgresRepo(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo = pg
	default:
		dsn, err := tasks.SQLiteFileDSN(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite path: %w", err)
		}
		lite, err := tasks.NewSQLiteRepo(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		repo = lite
	}

	if err := repo.ApplyMigrations(ctx); err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, repo.Close, nil
}

// newRouter wires the health endpoint, task routes, and middleware stack
func newRouter(cfg config.Config, repo tasks.Repository, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", identity.HeaderName},
		ExposedHeaders:   []string{"X-Request-ID", "Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(logger))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireUserID())
		r.Use(middleware.RateLimitMiddleware(middleware.NewLimiters(cfg.RateLimitRPS, cfg.RateLimitBurst)))
		tasks.RegisterRoutes(r, repo, logger)
	})

	return r
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
