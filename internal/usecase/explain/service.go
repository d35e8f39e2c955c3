// Package explain compares two records passage by passage: the closest
// passage pairs, score aggregates, and the themes those pairs share.
package explain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain"
	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
	"github.com/kailas-cloud/aisearch/internal/domain/search/score"
)

// Defaults.
const (
	DefaultMaxPassages = 1000
	DefaultTopN        = 10
	DefaultTopTerms    = 15
)

// PassageLister reads the stored passages of a record with their embeddings.
type PassageLister interface {
	ListByRecord(ctx context.Context, recordID string, limit int) ([]chunk.Chunk, error)
}

// Config bounds the comparison.
type Config struct {
	MaxPassages int
	TopN        int
	TopTerms    int
}

func (c Config) withDefaults() Config {
	if c.MaxPassages <= 0 {
		c.MaxPassages = DefaultMaxPassages
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.TopTerms <= 0 {
		c.TopTerms = DefaultTopTerms
	}
	return c
}

// Options override the configured top_n and top_terms for one call.
type Options struct {
	TopN     int
	TopTerms int
}

// Passage identifies one side of a pair.
type Passage struct {
	ChunkID string `json:"chunk_id"`
	Index   int    `json:"chunk_index"`
	Text    string `json:"text"`
}

// Pair is a scored passage pair, A from the first record and B from the second.
type Pair struct {
	Score float64 `json:"similarity_score"`
	A     Passage `json:"a"`
	B     Passage `json:"b"`
}

// Aggregate summarises the pair scores. MeanTop covers the reported pairs,
// the rest cover every pair.
type Aggregate struct {
	MeanTop   float64 `json:"mean_top"`
	Median    float64 `json:"median"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	PairCount int     `json:"pair_count"`
}

// Report is the outcome of Explain.
type Report struct {
	RecordA   string    `json:"record_a"`
	RecordB   string    `json:"record_b"`
	PassagesA int       `json:"passages_a"`
	PassagesB int       `json:"passages_b"`
	TopPairs  []Pair    `json:"top_pairs"`
	Aggregate Aggregate `json:"aggregate"`
	Themes    []Theme   `json:"themes"`
}

// Service runs comparisons.
type Service struct {
	passages PassageLister
	cfg      Config
	logger   *zap.Logger
}

// New creates an explain service.
func New(cfg Config, passages PassageLister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{passages: passages, cfg: cfg.withDefaults(), logger: logger}
}

// Explain compares the passages of records a and b.
func (s *Service) Explain(ctx context.Context, a, b string, opts Options) (*Report, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return nil, domain.BadInput("two record ids are required")
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = s.cfg.TopN
	}
	topTerms := opts.TopTerms
	if topTerms <= 0 {
		topTerms = s.cfg.TopTerms
	}

	pa, err := s.load(ctx, a)
	if err != nil {
		return nil, err
	}
	pb, err := s.load(ctx, b)
	if err != nil {
		return nil, err
	}

	pairs := s.crossProduct(pa, pb)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no comparable passages between %s and %s", domain.ErrNotFound, a, b)
	}
	sortPairs(pairs)

	if topN > len(pairs) {
		topN = len(pairs)
	}
	top := pairs[:topN]

	docs := make([]string, len(top))
	for i, p := range top {
		docs[i] = p.A.Text + " " + p.B.Text
	}

	return &Report{
		RecordA:   a,
		RecordB:   b,
		PassagesA: len(pa),
		PassagesB: len(pb),
		TopPairs:  top,
		Aggregate: aggregate(pairs, topN),
		Themes:    ExtractThemes(docs, topTerms),
	}, nil
}

func (s *Service) load(ctx context.Context, recordID string) ([]chunk.Chunk, error) {
	cs, err := s.passages.ListByRecord(ctx, recordID, s.cfg.MaxPassages)
	if err != nil {
		return nil, fmt.Errorf("list passages of %s: %w", recordID, err)
	}
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: no passages for record %s", domain.ErrNotFound, recordID)
	}
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Index < cs[j].Index })
	return cs, nil
}

// crossProduct scores every pair. Pairs with mismatched dimensions are skipped.
func (s *Service) crossProduct(pa, pb []chunk.Chunk) []Pair {
	pairs := make([]Pair, 0, len(pa)*len(pb))
	skipped := 0
	for _, x := range pa {
		for _, y := range pb {
			sim, err := score.Cosine(x.Embedding, y.Embedding)
			if err != nil {
				skipped++
				continue
			}
			pairs = append(pairs, Pair{
				Score: sim,
				A:     Passage{ChunkID: x.ID, Index: x.Index, Text: x.Text},
				B:     Passage{ChunkID: y.ID, Index: y.Index, Text: y.Text},
			})
		}
	}
	if skipped > 0 {
		s.logger.Warn("Skipped passage pairs with mismatched dimensions", zap.Int("pairs", skipped))
	}
	return pairs
}

// sortPairs orders by score descending, then by chunk index of A and B.
func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		pi, pj := pairs[i], pairs[j]
		if pi.Score != pj.Score {
			return pi.Score > pj.Score
		}
		if pi.A.Index != pj.A.Index {
			return pi.A.Index < pj.A.Index
		}
		return pi.B.Index < pj.B.Index
	})
}

// aggregate expects pairs sorted descending and 0 < topN <= len(pairs).
func aggregate(pairs []Pair, topN int) Aggregate {
	n := len(pairs)
	var sumTop float64
	for _, p := range pairs[:topN] {
		sumTop += p.Score
	}

	// sorted descending, so the median is taken from the middle either way
	median := pairs[n/2].Score
	if n%2 == 0 {
		median = (pairs[n/2-1].Score + pairs[n/2].Score) / 2
	}

	return Aggregate{
		MeanTop:   sumTop / float64(topN),
		Median:    median,
		Min:       pairs[n-1].Score,
		Max:       pairs[0].Score,
		PairCount: n,
	}
}
