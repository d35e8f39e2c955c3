// Command aisearchctl runs indexing jobs and ad-hoc queries against the aisearch backend.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/bootstrap"
	"github.com/kailas-cloud/aisearch/internal/config"
	logpkg "github.com/kailas-cloud/aisearch/internal/logger"
	"github.com/kailas-cloud/aisearch/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "aisearchctl",
		Usage:   "Index records and passages, inspect status and run test queries",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Config environment (local, dev, prod, docker)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file; overrides --env lookup",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: func(*cli.Context) error { return config.LoadDotEnv() },
		Commands: []*cli.Command{
			{
				Name:   "generate-embeddings",
				Usage:  "Embed records from a JSONL file into the table and/or the vector index",
				Action: generateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to records JSONL",
						Required: true,
					},
					&cli.BoolFlag{Name: "table-only", Usage: "Write only the brute-force table"},
					&cli.BoolFlag{Name: "index-only", Usage: "Write only the vector index"},
				},
			},
			{
				Name:   "index-passages",
				Usage:  "Embed and index passage chunks from a JSONL file",
				Action: indexPassagesCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to chunks JSONL",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks per batch (0 uses the configured size)",
					},
					&cli.IntFlag{Name: "offset", Usage: "Line to start from"},
					&cli.BoolFlag{Name: "resume", Usage: "Start from the saved checkpoint; ignores --offset"},
				},
			},
			{
				Name:   "status",
				Usage:  "Probe the backend, the model and the table",
				Action: statusCommand,
			},
			{
				Name:      "test-query",
				Usage:     "Parse and run a search query",
				ArgsUsage: "<query>",
				Action:    testQueryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 5},
					&cli.BoolFlag{Name: "summaries", Usage: "Request summaries for long descriptions"},
				},
			},
			{
				Name:      "similar",
				Usage:     "List records similar to a record",
				ArgsUsage: "<record_id>",
				Action:    similarCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10},
				},
			},
			{
				Name:      "explain",
				Usage:     "Compare the passages of two records",
				ArgsUsage: "<record_a> <record_b>",
				Action:    explainCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "top", Value: 10, Usage: "Number of passage pairs to show"},
					&cli.IntFlag{Name: "terms", Value: 15, Usage: "Number of shared themes to show"},
					&cli.BoolFlag{Name: "json", Usage: "Print the full report as JSON"},
				},
			},
		},
	}
}

// withApp loads config, builds the services, runs fn and releases everything.
func withApp(c *cli.Context, fn func(ctx context.Context, app *bootstrap.App) error) error {
	if p := c.String("config"); p != "" {
		if err := os.Setenv("CONFIG_PATH", p); err != nil {
			return err
		}
	}
	env := c.String("env")
	cfg, err := config.Load(env)
	if err != nil {
		return err
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{Level: c.String("log-level"), File: cfg.Logging.File})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := c.Context
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialise services", zap.Error(err))
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}
