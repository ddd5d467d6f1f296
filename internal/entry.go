// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/outline/internal/api"
	"github.com/starford/outline/internal/mcpserver"
	"github.com/starford/outline/internal/nodeservice"
	"github.com/starford/outline/internal/sse"
	"github.com/starford/outline/internal/storage"
	"github.com/starford/outline/internal/store"
	"github.com/starford/outline/internal/watch"
)

// NewLogger builds a JSON logger writing to w at the configured level.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Open opens the node store and, when configured, the export vault, and
// returns a service over them. The caller closes the returned DB.
func Open(cfg *Config, logger *slog.Logger, opts ...nodeservice.Option) (*nodeservice.Service, *store.DB, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	base := []nodeservice.Option{
		nodeservice.WithLogger(logger),
		nodeservice.WithRankStep(cfg.Rank.Step),
	}
	if cfg.Vault.Enabled() {
		vault, err := storage.NewFS(cfg.Vault.Path, true)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("init vault: %w", err)
		}
		base = append(base, nodeservice.WithVault(vault))
	}
	return nodeservice.NewService(db, append(base, opts...)...), db, nil
}

func (a *application) init(opts []Option, w io.Writer) error {
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	if a.logger == nil {
		a.logger = NewLogger(a.config, w)
	}
	if a.version == "" {
		a.version = "dev"
	}
	return nil
}

// Run starts the HTTP server with the given options and blocks until ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	if err := app.init(opts, os.Stdout); err != nil {
		return err
	}
	cfg, logger := app.config, app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Events.ForestThrottle)
	defer broker.Close()

	svc, db, err := Open(cfg, logger, nodeservice.WithEventCallback(broker.PublishNodeEvent))
	if err != nil {
		return err
	}
	defer db.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Writes from other processes (CLI, MCP) reach subscribers as forest.updated.
	g.Go(func() error {
		err := watch.Database(gCtx, db.Path(), cfg.Events.WatchDebounce, logger, broker.PublishForestChanged)
		if err != nil {
			logger.Warn("database watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr since
// stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	if err := app.init(opts, os.Stderr); err != nil {
		return err
	}

	svc, db, err := Open(app.config, app.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	app.logger.Info("MCP server starting", slog.String("sqlite_path", app.config.SQLite.Path))
	return mcpserver.New(svc, app.version).ServeStdio()
}
