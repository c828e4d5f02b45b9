// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/vectorfox/internal/sse"
	"github.com/starford/vectorfox/internal/upstream"
	"github.com/starford/vectorfox/internal/watch"
	"github.com/starford/vectorfox/internal/web"
	pkgconfig "github.com/starford/vectorfox/pkg/config"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{stdout: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newBackend(cfg *Config, logger *slog.Logger) *upstream.Client {
	return upstream.NewClient(cfg.Backend.BaseURL,
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
		upstream.WithUserAgent(cfg.Backend.UserAgent),
		upstream.WithLogger(logger))
}

// Run starts the web console server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg := app.config

	// Initialize structured JSON logger. The level follows config reloads.
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := newLogger(os.Stdout, level)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend_url", cfg.Backend.BaseURL),
		slog.Duration("status_delay", cfg.UI.StatusDelay),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker and console sessions.
	broker := sse.NewBroker(cfg.App.HTTP.Keepalive)
	console := web.NewConsole(newBackend(cfg, logger), broker,
		web.WithLogger(logger),
		web.WithStatusDelay(cfg.UI.StatusDelay))

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Console page, session events and submissions.
	r.Mount("/", web.NewRouter(console, broker, cfg.App.HTTP.Token))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}
	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the config file and apply backend, pacing and log level changes.
	if app.configPath != "" {
		if _, statErr := os.Stat(app.configPath); statErr == nil {
			g.Go(func() error {
				applied := cfg
				err := watch.File(gCtx, app.configPath, watch.DefaultDebounce, logger, func() {
					applied = reload(app.configPath, applied, console, level, logger)
				})
				if err != nil {
					logger.Warn("config watcher disabled", slog.String("error", err.Error()))
				}
				return nil
			})
		}
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Event streams never finish on their own; end them so Shutdown
		// can drain.
		console.Close()
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown stops the errgroup once the server has shut down, so the
// config watcher exits too.
var errShutdown = errors.New("shutdown")

// reload re-reads the config file and returns the config now in effect.
// Settings that need a new listener are reported and left alone.
func reload(path string, current *Config, console *web.Console, level *slog.LevelVar, logger *slog.Logger) *Config {
	next := NewDefaultConfig()
	if err := pkgconfig.Load(path, next); err != nil {
		logger.Warn("config reload rejected", slog.String("error", err.Error()))
		return current
	}

	console.SetBackend(newBackend(next, logger))
	console.SetStatusDelay(next.UI.StatusDelay)
	level.Set(next.App.LogLevel)

	if next.App.HTTP != current.App.HTTP {
		logger.Warn("config reload: http settings change on restart only")
		next.App.HTTP = current.App.HTTP
	}

	logger.Info("Configuration reloaded",
		slog.String("backend_url", next.Backend.BaseURL),
		slog.Duration("status_delay", next.UI.StatusDelay),
		slog.String("log_level", next.App.LogLevel.String()))
	return next
}
