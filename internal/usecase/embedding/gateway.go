// Package embedding owns the process-wide access point to the embedding and
// summarization models.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// DefaultLoadTimeout bounds a model load, independent of the caller that triggered it.
const DefaultLoadTimeout = time.Minute

// EmbedderLoader builds the embedder on first use.
type EmbedderLoader func(ctx context.Context) (domain.Embedder, error)

// SummarizerLoader builds the summarizer on first use.
type SummarizerLoader func(ctx context.Context) (domain.Summarizer, error)

// GatewayConfig holds the gateway settings.
type GatewayConfig struct {
	Dimension      int
	Timeout        time.Duration // per embed call
	SummaryTimeout time.Duration // per summarize call
	LoadTimeout    time.Duration
}

// Gateway is constructed once and shared. Each model is loaded at most once;
// a failed load is permanent and every later call returns ErrModelUnavailable.
type Gateway struct {
	cfg GatewayConfig

	loadEmbedder   EmbedderLoader
	loadSummarizer SummarizerLoader

	embedOnce sync.Once
	embedder  domain.Embedder
	embedErr  error
	loaded    atomic.Bool
	failed    atomic.Bool

	sumOnce    sync.Once
	summarizer domain.Summarizer
	sumErr     error

	logger *zap.Logger
}

// NewGateway creates a gateway. loadSummarizer may be nil when summaries are disabled.
func NewGateway(cfg GatewayConfig, loadEmbedder EmbedderLoader, loadSummarizer SummarizerLoader, logger *zap.Logger) *Gateway {
	if cfg.Dimension <= 0 {
		cfg.Dimension = domain.Dimension
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		cfg:            cfg,
		loadEmbedder:   loadEmbedder,
		loadSummarizer: loadSummarizer,
		logger:         logger,
	}
}

// Static wraps ready instances into a gateway that never fails to load.
func Static(cfg GatewayConfig, e domain.Embedder, s domain.Summarizer, logger *zap.Logger) *Gateway {
	var ls SummarizerLoader
	if s != nil {
		ls = func(context.Context) (domain.Summarizer, error) { return s, nil }
	}
	return NewGateway(cfg, func(context.Context) (domain.Embedder, error) { return e, nil }, ls, logger)
}

func (g *Gateway) embedderInstance(ctx context.Context) (domain.Embedder, error) {
	g.embedOnce.Do(func() {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.LoadTimeout)
		defer cancel()

		start := time.Now()
		e, err := g.loadEmbedder(lctx)
		if err != nil {
			g.embedErr = fmt.Errorf("%w: embedder: %w", domain.ErrModelUnavailable, err)
			g.failed.Store(true)
			g.logger.Error("Embedding model failed to load", zap.Error(err))
			return
		}
		g.embedder = e
		g.loaded.Store(true)
		g.logger.Info("Embedding model loaded", zap.Duration("duration", time.Since(start)))
	})
	return g.embedder, g.embedErr
}

func (g *Gateway) summarizerInstance(ctx context.Context) (domain.Summarizer, error) {
	if g.loadSummarizer == nil {
		return nil, fmt.Errorf("%w: summarizer not configured", domain.ErrModelUnavailable)
	}
	g.sumOnce.Do(func() {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.LoadTimeout)
		defer cancel()

		s, err := g.loadSummarizer(lctx)
		if err != nil {
			g.sumErr = fmt.Errorf("%w: summarizer: %w", domain.ErrModelUnavailable, err)
			g.logger.Error("Summarization model failed to load", zap.Error(err))
			return
		}
		g.summarizer = s
		g.logger.Info("Summarization model loaded")
	})
	return g.summarizer, g.sumErr
}

// Embed vectorizes text. The result always has the configured dimension.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	e, err := g.embedderInstance(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	res, err := e.Embed(ctx, text)
	if err != nil {
		return nil, timeoutOr(err)
	}
	if err := domain.ValidateVector(res.Embedding, g.cfg.Dimension); err != nil {
		return nil, err
	}
	return res.Embedding, nil
}

// EmbedBatch vectorizes texts in input order.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	e, err := g.embedderInstance(ctx)
	if err != nil {
		return nil, err
	}

	res, err := domain.BatchEmbed(ctx, e, texts)
	if err != nil {
		return nil, timeoutOr(err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts: %w",
			len(res.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}
	for i, v := range res.Embeddings {
		if err := domain.ValidateVector(v, g.cfg.Dimension); err != nil {
			return nil, fmt.Errorf("embedding [%d]: %w", i, err)
		}
	}
	return res.Embeddings, nil
}

// Summarize condenses text within [minLen, maxLen] words.
func (g *Gateway) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	s, err := g.summarizerInstance(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, g.cfg.SummaryTimeout)
	defer cancel()

	out, err := s.Summarize(ctx, text, maxLen, minLen)
	if err != nil {
		return "", timeoutOr(err)
	}
	return strings.TrimSpace(out), nil
}

// Warmup loads both models up front so the first request does not pay for it.
func (g *Gateway) Warmup(ctx context.Context) error {
	if _, err := g.embedderInstance(ctx); err != nil {
		return err
	}
	if g.loadSummarizer != nil {
		if _, err := g.summarizerInstance(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ModelLoaded reports whether the embedder has loaded successfully. It never triggers a load.
func (g *Gateway) ModelLoaded() bool {
	return g.loaded.Load()
}

// ModelFailed reports a permanent embedder load failure.
func (g *Gateway) ModelFailed() bool {
	return g.failed.Load()
}

// HealthCheck loads the embedder if needed and probes it.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	e, err := g.embedderInstance(ctx)
	if err != nil {
		return err
	}
	if hc, ok := e.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health: %w", err)
		}
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func timeoutOr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}
