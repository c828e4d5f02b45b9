package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vectorfox/internal"
	pkgconfig "github.com/starford/vectorfox/pkg/config"
)

// loadConfig reads the --config file on top of the defaults. A missing
// file is not an error.
func loadConfig(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if backend := cmd.String("backend"); backend != "" {
		cfg.Backend.BaseURL = backend
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --backend: %w", err)
		}
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithConfigPath(configPath),
	}, nil
}

func ask(ctx context.Context, cmd *cli.Command) error {
	// The query is sent as given; an empty one is still a query.
	query := strings.Join(cmd.Args().Slice(), " ")
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Ask(ctx, query, opts...); err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	return nil
}

func interactive(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunTUI(ctx, opts...)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:  "vectorfox",
		Usage: "Ask questions about your documentation and stream the answers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "Answer service base URL (overrides backend.base_url)",
				Sources: cli.EnvVars("VECTORFOX_BACKEND_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer one query on stdout",
				ArgsUsage: "QUERY",
				Action:    ask,
			},
			{
				Name:   "tui",
				Usage:  "Interactive terminal interface",
				Action: interactive,
			},
			{
				Name:   "serve",
				Usage:  "Serve the web console",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
