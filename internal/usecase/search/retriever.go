package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
	"github.com/kailas-cloud/aisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/aisearch/internal/domain/search/result"
	"github.com/kailas-cloud/aisearch/internal/domain/search/score"
	"github.com/kailas-cloud/aisearch/internal/metrics"
)

// Query is one retrieval call.
type Query struct {
	Vector  []float32
	Terms   []string
	K       int
	Weights score.Weights
	// Fuse enables metadata scoring. Similar runs without it.
	Fuse bool
}

// Retriever produces ranked candidates for a query vector.
type Retriever interface {
	Mode() mode.Mode
	// Retrieve returns at most q.K hits, best first. Ties keep retrieval order.
	Retrieve(ctx context.Context, q Query) ([]result.Hit, error)
	// Source returns a record and its embedding, for similar.
	Source(ctx context.Context, id string) (domrec.Record, []float32, error)
}

// TableRetriever scans every entry of the preloaded table.
type TableRetriever struct {
	tables  TableReader
	records RecordIndex // optional, tells "unknown" from "not embedded"
	logger  *zap.Logger
}

// NewTableRetriever creates a brute-force retriever. records may be nil.
func NewTableRetriever(tables TableReader, records RecordIndex, logger *zap.Logger) *TableRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableRetriever{tables: tables, records: records, logger: logger}
}

// Mode implements Retriever.
func (r *TableRetriever) Mode() mode.Mode { return mode.Table }

// Retrieve implements Retriever.
func (r *TableRetriever) Retrieve(_ context.Context, q Query) ([]result.Hit, error) {
	t := r.tables.Load()
	if t.Len() == 0 {
		return nil, domain.ErrNotReady
	}

	hits := make([]result.Hit, 0, t.Len())
	skipped := 0
	for _, e := range t.Entries() {
		sem, err := score.Cosine(q.Vector, e.Vector)
		if err != nil {
			skipped++
			continue
		}
		h := result.FromRecord(e.Record, sem)
		if q.Fuse {
			meta := score.Metadata(q.Terms, e.Record.Title)
			h.SetFused(sem, meta, score.Hybrid(sem, meta, q.Weights))
		}
		hits = append(hits, h)
	}
	if skipped > 0 {
		r.logger.Warn("Table entries with wrong dimension skipped",
			zap.Int("skipped", skipped),
			zap.String("source", t.Source()),
		)
	}

	rank(hits)
	return truncate(hits, q.K), nil
}

// Source implements Retriever.
func (r *TableRetriever) Source(ctx context.Context, id string) (domrec.Record, []float32, error) {
	t := r.tables.Load()
	if t.Len() == 0 {
		return domrec.Record{}, nil, domain.ErrNotReady
	}
	if e, ok := t.Get(id); ok {
		if !t.Embedded(e) {
			return e.Record, nil, fmt.Errorf("record %s: %w", id, domain.ErrNotEmbedded)
		}
		return e.Record, e.Vector, nil
	}
	if r.records == nil {
		return domrec.Record{}, nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	rec, vec, err := r.records.Get(ctx, id)
	switch {
	case err == nil:
		return rec, vec, nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotEmbedded):
		return rec, nil, err
	default:
		// the table is authoritative here; a store outage is just a miss
		r.logger.Warn("Record store lookup failed", zap.String("record_id", id), zap.Error(err))
		return domrec.Record{}, nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
}

// ANNRetriever delegates to the vector index.
type ANNRetriever struct {
	records RecordIndex
	timeout time.Duration
	blend   bool
	logger  *zap.Logger
}

// NewANNRetriever creates a delegating retriever. With blend set, hits are
// re-ranked by the hybrid of index score and title term match.
func NewANNRetriever(records RecordIndex, timeout time.Duration, blend bool, logger *zap.Logger) *ANNRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ANNRetriever{records: records, timeout: timeout, blend: blend, logger: logger}
}

// Mode implements Retriever.
func (r *ANNRetriever) Mode() mode.Mode { return mode.ANN }

// Retrieve implements Retriever. Index errors degrade to an empty result;
// a timeout does not.
func (r *ANNRetriever) Retrieve(ctx context.Context, q Query) ([]result.Hit, error) {
	kctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	scored, err := r.records.KNN(kctx, q.Vector, q.K)
	if err != nil {
		if ferr := fatalIndexErr(ctx, err); ferr != nil {
			return nil, ferr
		}
		r.logger.Warn("ANN query failed, returning no results", zap.Int("k", q.K), zap.Error(err))
		metrics.ANNDegradedTotal.WithLabelValues("records").Inc()
		return []result.Hit{}, nil
	}

	hits := make([]result.Hit, 0, len(scored))
	for _, s := range scored {
		h := result.FromRecord(s.Record, s.Score)
		if r.blend && q.Fuse {
			meta := score.Metadata(q.Terms, s.Record.Title)
			h.SetFused(s.Score, meta, score.Hybrid(s.Score, meta, q.Weights))
		}
		hits = append(hits, h)
	}
	if r.blend && q.Fuse {
		rank(hits)
	}
	return truncate(hits, q.K), nil
}

// Source implements Retriever.
func (r *ANNRetriever) Source(ctx context.Context, id string) (domrec.Record, []float32, error) {
	kctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rec, vec, err := r.records.Get(kctx, id)
	if err == nil {
		return rec, vec, nil
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotEmbedded) {
		return rec, nil, err
	}
	if ferr := fatalIndexErr(ctx, err); ferr != nil {
		return domrec.Record{}, nil, ferr
	}
	return domrec.Record{}, nil, fmt.Errorf("%w: get record %s: %w", domain.ErrServiceUnavailable, id, err)
}

// fatalIndexErr picks out the index errors that must reach the caller:
// a deadline hit and the caller going away.
func fatalIndexErr(parent context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: knn: %w", domain.ErrTimeout, err)
	case parent.Err() != nil:
		return fmt.Errorf("knn: %w", parent.Err())
	}
	return nil
}

// rank sorts by score descending, keeping retrieval order on ties.
func rank(hits []result.Hit) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}

func truncate[T any](s []T, k int) []T {
	if k >= 0 && len(s) > k {
		return s[:k]
	}
	return s
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
