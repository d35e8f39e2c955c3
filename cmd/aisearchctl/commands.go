package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/aisearch/internal/bootstrap"
	"github.com/kailas-cloud/aisearch/internal/domain/search/request"
	"github.com/kailas-cloud/aisearch/internal/domain/search/score"
	"github.com/kailas-cloud/aisearch/internal/usecase/explain"
	"github.com/kailas-cloud/aisearch/internal/usecase/indexing"
)

var errTargetConflict = errors.New("--table-only and --index-only are mutually exclusive")

func targetOf(c *cli.Context) (indexing.Target, error) {
	tableOnly, indexOnly := c.Bool("table-only"), c.Bool("index-only")
	switch {
	case tableOnly && indexOnly:
		return 0, errTargetConflict
	case tableOnly:
		return indexing.TargetTable, nil
	case indexOnly:
		return indexing.TargetIndex, nil
	}
	return indexing.TargetAll, nil
}

func generateCommand(c *cli.Context) error {
	target, err := targetOf(c)
	if err != nil {
		return err
	}
	input := c.String("input")

	return withApp(c, func(ctx context.Context, app *bootstrap.App) error {
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if target != indexing.TargetTable {
			if err := app.EnsureIndexes(ctx); err != nil {
				return err
			}
		}
		summary, err := app.Indexing.Generate(ctx, input, target)
		if err != nil {
			return err
		}
		printSummary(c.App.Writer, summary)
		return nil
	})
}

func indexPassagesCommand(c *cli.Context) error {
	input := c.String("input")
	if c.Int("offset") < 0 {
		return fmt.Errorf("--offset must not be negative")
	}

	return withApp(c, func(ctx context.Context, app *bootstrap.App) error {
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := app.EnsureIndexes(ctx); err != nil {
			return err
		}
		start := c.Int("offset")
		if c.Bool("resume") {
			start = app.Passages.ResumeOffset(input)
		}
		report, err := app.Passages.Run(ctx, input, c.Int("batch-size"), start)
		printJobReport(c.App.Writer, report)
		return err
	})
}

func statusCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, app *bootstrap.App) error {
		r := app.Health.Status(ctx)
		printStatus(c.App.Writer, r)
		if !r.Healthy() {
			return cli.Exit("", 1)
		}
		return nil
	})
}

func testQueryCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: aisearchctl test-query <query>")
	}
	q := c.Args().First()
	limit := c.Int("limit")

	return withApp(c, func(ctx context.Context, app *bootstrap.App) error {
		req, err := request.NewSearch(q, &limit, c.Bool("summaries"), nil, nil, weightsOf(app))
		if err != nil {
			return err
		}
		res, err := app.Search.Search(ctx, req)
		if err != nil {
			return err
		}
		printSearch(c.App.Writer, res)
		return nil
	})
}

func similarCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: aisearchctl similar <record_id>")
	}
	id := c.Args().First()
	limit := c.Int("limit")

	return withApp(c, func(ctx context.Context, app *bootstrap.App) error {
		req, err := request.NewSimilar(id, &limit, app.Search.Limits())
		if err != nil {
			return err
		}
		res, err := app.Search.Similar(ctx, req)
		if err != nil {
			return err
		}
		printSimilar(c.App.Writer, res)
		return nil
	})
}

func explainCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("usage: aisearchctl explain <record_a> <record_b>")
	}
	a, b := c.Args().Get(0), c.Args().Get(1)
	opts := explain.Options{TopN: c.Int("top"), TopTerms: c.Int("terms")}

	return withApp(c, func(ctx context.Context, app *bootstrap.App) error {
		report, err := app.Explain.Explain(ctx, a, b, opts)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printExplain(c.App.Writer, report)
		return nil
	})
}

func weightsOf(app *bootstrap.App) score.Weights {
	return score.Weights{
		Semantic: *app.Config.Search.SemanticWeight,
		Metadata: *app.Config.Search.MetadataWeight,
	}
}
