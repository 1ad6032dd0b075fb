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

	"golang.org/x/sync/errgroup"

	"github.com/starford/notes/internal/api"
	"github.com/starford/notes/internal/mcpserver"
	"github.com/starford/notes/internal/noteservice"
	"github.com/starford/notes/internal/store"
)

// Run starts the HTTP API with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := newLogger(cfg, app.logOutput)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("docs_path", cfg.Docs.MountPath()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	gw, err := store.Open(ctx, cfg.Store.Options(), logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer closeStore(gw, cfg, logger)

	svc := noteservice.NewService(gw)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: api.NewServer(svc, cfg.Docs.MountPath()),
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if path := cfg.Docs.MountPath(); path != "" {
			logger.Info("API documentation available",
				slog.String("url", fmt.Sprintf("http://localhost:%d%s", cfg.App.HTTP.Port, path)))
		}
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
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

// RunMCP serves the note tools over stdio until the client disconnects.
// Logs go to stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := newLogger(cfg, app.logOutput)

	gw, err := store.Open(ctx, cfg.Store.Options(), logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer closeStore(gw, cfg, logger)

	logger.Info("Starting MCP server", slog.String("store_driver", cfg.Store.Driver))

	srv := mcpserver.New(noteservice.NewService(gw), app.version)
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func newApplication(opts []Option) (*application, error) {
	app := &application{
		logOutput: os.Stdout,
		version:   "dev",
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func closeStore(gw store.Gateway, cfg *Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
	defer cancel()
	if err := gw.Close(ctx); err != nil {
		logger.Error("Store close error", slog.String("error", err.Error()))
	}
}
