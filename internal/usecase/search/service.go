// Package search is the ranking orchestrator behind search, similar and passages.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain"
	"github.com/kailas-cloud/aisearch/internal/domain/query"
	"github.com/kailas-cloud/aisearch/internal/domain/search/request"
	"github.com/kailas-cloud/aisearch/internal/domain/search/result"
	"github.com/kailas-cloud/aisearch/internal/domain/search/score"
	"github.com/kailas-cloud/aisearch/internal/metrics"
)

// Config holds orchestrator settings.
type Config struct {
	Limits          request.Limits
	Summary         SummaryConfig
	PassagesEnabled bool
	// IncludePassages is the default when a search call does not say.
	IncludePassages bool
	KNNTimeout      time.Duration
}

// Service handles search, similar and passage queries.
type Service struct {
	cfg        Config
	retriever  Retriever
	embed      Embedder
	summarizer Summarizer
	passages   PassageIndex
	logger     *zap.Logger
}

// New creates a search service. summarizer and passages may be nil.
func New(
	cfg Config, retriever Retriever, embed Embedder,
	summarizer Summarizer, passages PassageIndex, logger *zap.Logger,
) *Service {
	if cfg.Limits.Default <= 0 || cfg.Limits.Max <= 0 {
		cfg.Limits = request.DefaultLimits()
	}
	cfg.Summary = cfg.Summary.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:        cfg,
		retriever:  retriever,
		embed:      embed,
		summarizer: summarizer,
		passages:   passages,
		logger:     logger,
	}
}

// Limits returns the effective result limits.
func (s *Service) Limits() request.Limits { return s.cfg.Limits }

// Search parses the query, embeds it, retrieves and ranks candidates,
// and optionally attaches summaries and passages.
func (s *Service) Search(ctx context.Context, req request.Search) (res *result.Search, err error) {
	defer s.observe("search", time.Now(), &err)

	parsed := query.Parse(req.Query())
	limit := s.cfg.Limits.Resolve(req.Limit(), parsed.Limit)

	text := parsed.SemanticQuery
	if text == "" {
		text = req.Query()
	}
	vec, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.retriever.Retrieve(ctx, Query{
		Vector:  vec,
		Terms:   parsed.SearchTerms,
		K:       limit,
		Weights: req.Weights(),
		Fuse:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	hits = truncate(hits, limit)

	if req.IncludeSummaries() {
		s.enrich(ctx, hits)
	}

	res = result.NewSearch(req.Query(), parsed, hits)
	if s.wantPassages(req) {
		res.WithPassages(s.passageHits(ctx, vec, limit))
	}

	s.logger.Debug("Search completed",
		zap.String("mode", string(s.retriever.Mode())),
		zap.String("intent", string(parsed.Intent)),
		zap.Int("limit", limit),
		zap.Int("results", res.Total),
	)
	return res, nil
}

// Similar finds records nearest to the stored embedding of req.RecordID.
// The source never appears in its own result.
func (s *Service) Similar(ctx context.Context, req request.Similar) (res *result.Similar, err error) {
	defer s.observe("similar", time.Now(), &err)

	rec, vec, err := s.retriever.Source(ctx, req.RecordID())
	if err != nil {
		return nil, fmt.Errorf("source record: %w", err)
	}

	// one extra for the source itself
	hits, err := s.retriever.Retrieve(ctx, Query{
		Vector:  vec,
		K:       req.Limit() + 1,
		Weights: score.Weights{Semantic: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	return result.NewSimilar(rec, hits, req.Limit()), nil
}

// Passages searches the passage index with the raw query.
func (s *Service) Passages(ctx context.Context, req request.Passages) (res *result.Passages, err error) {
	defer s.observe("passages", time.Now(), &err)

	if err := s.passagesReady(ctx); err != nil {
		return nil, err
	}

	vec, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.knnPassages(ctx, vec, req.Limit())
	if err != nil {
		return nil, err
	}
	return result.NewPassages(req.Query(), hits), nil
}

func (s *Service) passagesReady(ctx context.Context) error {
	if !s.cfg.PassagesEnabled || s.passages == nil {
		return fmt.Errorf("%w: passage search is disabled", domain.ErrServiceUnavailable)
	}
	ok, err := s.passages.IndexExists(ctx)
	if err != nil {
		return fmt.Errorf("%w: passage index: %w", domain.ErrServiceUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: passage index not created", domain.ErrServiceUnavailable)
	}
	return nil
}

func (s *Service) wantPassages(req request.Search) bool {
	want := s.cfg.IncludePassages
	if p := req.IncludePassages(); p != nil {
		want = *p
	}
	return want && s.cfg.PassagesEnabled && s.passages != nil
}

// passageHits attaches passages to a search. Any failure just leaves them out.
func (s *Service) passageHits(ctx context.Context, vec []float32, k int) []result.PassageHit {
	if err := s.passagesReady(ctx); err != nil {
		s.logger.Debug("Passages skipped", zap.Error(err))
		return nil
	}
	hits, err := s.knnPassages(ctx, vec, k)
	if err != nil {
		s.logger.Warn("Passages dropped from search", zap.Error(err))
		return nil
	}
	return hits
}

func (s *Service) knnPassages(ctx context.Context, vec []float32, k int) ([]result.PassageHit, error) {
	kctx, cancel := withTimeout(ctx, s.cfg.KNNTimeout)
	defer cancel()

	scored, err := s.passages.KNN(kctx, vec, k)
	if err != nil {
		if ferr := fatalIndexErr(ctx, err); ferr != nil {
			return nil, ferr
		}
		s.logger.Warn("Passage query failed, returning no passages", zap.Int("k", k), zap.Error(err))
		metrics.ANNDegradedTotal.WithLabelValues("passages").Inc()
		return []result.PassageHit{}, nil
	}

	hits := make([]result.PassageHit, 0, len(scored))
	for _, sc := range truncate(scored, k) {
		hits = append(hits, result.FromChunk(sc.Chunk, sc.Score))
	}
	return hits, nil
}

func (s *Service) observe(op string, start time.Time, err *error) {
	m := string(s.retriever.Mode())
	outcome := "ok"
	if *err != nil {
		outcome = domain.KindOf(*err).String()
	}
	metrics.SearchRequestsTotal.WithLabelValues(op, m, outcome).Inc()
	metrics.SearchDuration.WithLabelValues(op, m).Observe(time.Since(start).Seconds())
}
