// Package bootstrap is the composition root shared by the server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/config"
	"github.com/kailas-cloud/aisearch/internal/domain"
	"github.com/kailas-cloud/aisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/aisearch/internal/domain/search/request"
	"github.com/kailas-cloud/aisearch/internal/domain/search/score"
	"github.com/kailas-cloud/aisearch/internal/metrics"
	"github.com/kailas-cloud/aisearch/internal/repository/checkpoint"
	"github.com/kailas-cloud/aisearch/internal/repository/embcache"
	"github.com/kailas-cloud/aisearch/internal/repository/summarycache"
	"github.com/kailas-cloud/aisearch/internal/repository/table"
	chiTransport "github.com/kailas-cloud/aisearch/internal/transport/chi"
	"github.com/kailas-cloud/aisearch/internal/transport/llm"
	openaiEmb "github.com/kailas-cloud/aisearch/internal/transport/openai"
	"github.com/kailas-cloud/aisearch/internal/usecase/embedding"
	"github.com/kailas-cloud/aisearch/internal/usecase/explain"
	"github.com/kailas-cloud/aisearch/internal/usecase/health"
	"github.com/kailas-cloud/aisearch/internal/usecase/indexing"
	"github.com/kailas-cloud/aisearch/internal/usecase/passage"
	"github.com/kailas-cloud/aisearch/internal/usecase/search"
)

// App holds every wired service. Build it once with New and release it with Close.
type App struct {
	Config config.Config
	Logger *zap.Logger

	Gateway  *embedding.Gateway
	Tables   *table.Holder
	Search   *search.Service
	Health   *health.Service
	Indexing *indexing.Service
	Passages *passage.Service
	Explain  *explain.Service

	backend *backend
	source  table.Source
	closers []func()
}

// New connects the backend and assembles the services. The table, when the
// source has one, is loaded eagerly; a missing table is logged and reported
// by the health check instead of failing startup.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Register metrics explicitly (no init())
	metrics.Register()

	app := &App{Config: cfg, Logger: logger}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.backend = be
	app.closers = append(app.closers, be.close)

	fsys := afero.NewOsFs()
	if err := app.openTable(ctx, fsys); err != nil {
		app.Close()
		return nil, err
	}

	app.Gateway = embedding.NewGateway(embedding.GatewayConfig{
		Dimension:      cfg.Embedding.Dimensions,
		Timeout:        config.Seconds(cfg.Embedding.TimeoutSec),
		SummaryTimeout: config.Seconds(cfg.Summarizer.TimeoutSec),
		LoadTimeout:    config.Seconds(cfg.Embedding.LoadTimeoutSec),
	}, app.loadEmbedder, app.summarizerLoader(), logger)

	var retriever search.Retriever
	switch mode.Mode(cfg.Search.Mode) {
	case mode.Table:
		retriever = search.NewTableRetriever(app.Tables, be.records, logger)
	default:
		retriever = search.NewANNRetriever(be.records, config.Seconds(cfg.Search.KNNTimeoutSec),
			cfg.Search.ANNBlendMetadata, logger)
	}

	var summarizer search.Summarizer
	if cfg.SummarizerEnabled() {
		summarizer = app.Gateway
	}
	var passages search.PassageIndex
	if cfg.PassagesEnabled() {
		passages = be.passages
	}
	app.Search = search.New(search.Config{
		Limits: request.Limits{Default: cfg.Search.DefaultLimit, Max: cfg.Search.MaxLimit},
		Summary: search.SummaryConfig{
			LongTextThreshold: cfg.Summarizer.LongTextThreshold,
			MaxLength:         cfg.Summarizer.MaxLength,
			MinLength:         cfg.Summarizer.MinLength,
		},
		PassagesEnabled: cfg.PassagesEnabled(),
		IncludePassages: cfg.Search.IncludePassages,
		KNNTimeout:      config.Seconds(cfg.Search.KNNTimeoutSec),
	}, retriever, app.Gateway, summarizer, passages, logger)

	var tables health.TableReader
	if mode.Mode(cfg.Search.Mode) == mode.Table {
		tables = app.Tables
	}
	app.Health = health.New(health.Config{Mode: mode.Mode(cfg.Search.Mode)},
		be.probe, app.Gateway, app.Gateway, tables, logger)

	app.Indexing = indexing.New(fsys, app.Gateway, be.records, app.source, app.Tables, logger).
		WithBatchSize(cfg.Embedding.BatchSize)

	tracker, err := checkpoint.Open(fsys, cfg.Passages.Checkpoint)
	if err != nil {
		app.Close()
		return nil, err
	}
	bus := passage.NewBus(watermill.NewStdLogger(false, false))
	app.closers = append(app.closers, func() { _ = bus.Close() })

	app.Passages, err = passage.New(passage.Config{
		BatchSize: cfg.Passages.BatchSize,
		Workers:   cfg.Passages.Workers,
	}, fsys, app.Gateway, be.passages, bus, tracker, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, app.Passages.Close)

	app.Explain = explain.New(explain.Config{
		MaxPassages: cfg.Explain.MaxPassages,
		TopN:        cfg.Explain.TopN,
		TopTerms:    cfg.Explain.TopTerms,
	}, be.passages, logger)

	return app, nil
}

// Router builds the HTTP handler over the search and health services.
func (a *App) Router() http.Handler {
	weights := score.Weights{
		Semantic: *a.Config.Search.SemanticWeight,
		Metadata: *a.Config.Search.MetadataWeight,
	}
	server := chiTransport.NewServer(a.Search, a.Health, weights, a.Logger)
	return chiTransport.NewRouter(server, a.Logger)
}

// EnsureIndexes creates the vector indexes (or postgres schema) if missing.
func (a *App) EnsureIndexes(ctx context.Context) error {
	if err := a.backend.ensure(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}

// RecordCount reports how many records the vector index holds.
func (a *App) RecordCount(ctx context.Context) (int, error) {
	return a.backend.records.Count(ctx)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openTable(ctx context.Context, fsys afero.Fs) error {
	switch a.Config.Table.Source {
	case "badger":
		src, err := table.OpenBadger(a.Config.Table.BadgerDir)
		if err != nil {
			return fmt.Errorf("open table store: %w", err)
		}
		a.source = src
		a.closers = append(a.closers, func() { _ = src.Close() })
	default:
		a.source = table.NewFileSource(fsys, a.Config.Table.Path)
	}

	a.Tables = table.NewHolder(nil)
	if mode.Mode(a.Config.Search.Mode) != mode.Table {
		return nil
	}
	t, err := a.source.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			a.Logger.Warn("Embedding table not loaded", zap.String("source", a.source.Name()), zap.Error(err))
			return nil
		}
		return fmt.Errorf("load table: %w", err)
	}
	if n := t.Unembedded(); n > 0 {
		a.Logger.Warn("Table entries without a usable embedding",
			zap.String("source", t.Source()),
			zap.Int("entries", n),
			zap.Int("dimension", t.Dim()),
		)
	}
	if want := a.Config.Embedding.Dimensions; want > 0 && t.Dim() != want {
		a.Logger.Warn("Table dimension differs from the embedding model",
			zap.Int("table", t.Dim()),
			zap.Int("model", want),
		)
	}
	a.Tables.Swap(t)
	a.Logger.Info("Embedding table loaded", zap.String("source", t.Source()), zap.Int("records", t.Len()))
	return nil
}

// loadEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func (a *App) loadEmbedder(ctx context.Context) (domain.Embedder, error) {
	cfg := a.Config.Embedding
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     a.Logger,
	})
	if err := base.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("embedding model %s: %w", cfg.Model, err)
	}

	cached := embcache.New(base, a.backend.kv, embcache.Options{
		Namespace: cfg.Model,
		TTL:       config.Seconds(cfg.CacheTTLSec),
		Lookups:   metrics.EmbeddingCacheTotal,
		Logger:    a.Logger,
	})
	return embedding.NewInstrumented(cached, cfg.Provider, cfg.Model, cfg.BatchSize, a.Logger), nil
}

func (a *App) summarizerLoader() embedding.SummarizerLoader {
	if !a.Config.SummarizerEnabled() {
		return nil
	}
	return func(context.Context) (domain.Summarizer, error) {
		cfg := a.Config.Summarizer
		s, err := llm.NewSummarizer(&llm.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			InputLimit: cfg.InputLimit,
			Logger:     a.Logger,
		})
		if err != nil {
			return nil, err
		}
		return summarycache.New(s, config.Seconds(a.Config.Search.SummaryCacheTTLSec)), nil
	}
}
