package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/vectorfox/internal/answer"
	"github.com/starford/vectorfox/internal/markdown"
	"github.com/starford/vectorfox/internal/mcpserver"
	"github.com/starford/vectorfox/internal/printer"
	"github.com/starford/vectorfox/internal/tui"
)

// Ask answers one query on the configured output. Logs go to stderr.
func Ask(ctx context.Context, query string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	return printer.Ask(ctx, newBackend(cfg, logger), app.stdout, query,
		answer.WithStatusDelay(cfg.UI.StatusDelay),
		answer.WithLogger(logger))
}

// RunTUI starts the interactive terminal front end.
func RunTUI(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	w, closeLog, err := openLogFile(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(w, cfg.App.LogLevel)
	slog.SetDefault(logger)

	renderer, err := markdown.NewTerminal(cfg.UI.WrapWidth, cfg.UI.Style)
	if err != nil {
		return err
	}

	logger.Info("tui starting", slog.String("backend_url", cfg.Backend.BaseURL))
	return tui.Run(ctx, newBackend(cfg, logger), renderer,
		answer.WithStatusDelay(cfg.UI.StatusDelay),
		answer.WithLogger(logger))
}

// RunMCP serves the MCP tools on stdin/stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	w, closeLog, err := openLogFile(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(w, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("mcp server starting", slog.String("backend_url", cfg.Backend.BaseURL))
	srv := mcpserver.New(newBackend(cfg, logger), logger)
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}
