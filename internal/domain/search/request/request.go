package request

import (
	"strings"

	"github.com/kailas-cloud/aisearch/internal/domain"
	"github.com/kailas-cloud/aisearch/internal/domain/search/score"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 100
)

// Limits carries the configured default and ceiling for result counts.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns 10 / 100.
func DefaultLimits() Limits { return Limits{Default: DefaultLimit, Max: MaxLimit} }

// Resolve picks explicit > parsed > default, then caps at Max.
// Non-positive values count as absent.
func (l Limits) Resolve(explicit, parsed *int) int {
	n := l.Default
	switch {
	case explicit != nil && *explicit > 0:
		n = *explicit
	case parsed != nil && *parsed > 0:
		n = *parsed
	}
	if n <= 0 {
		n = DefaultLimit
	}
	if l.Max > 0 && n > l.Max {
		n = l.Max
	}
	return n
}

// Search is a validated search call.
type Search struct {
	query            string
	limit            *int
	includeSummaries bool
	includePassages  *bool
	weights          score.Weights
}

// NewSearch validates the caller's parameters. Nil weights fall back to defaults.
func NewSearch(q string, limit *int, includeSummaries bool, semantic, metadata *float64, defaults score.Weights) (Search, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Search{}, domain.BadInput("query is required")
	}
	if len(q) > MaxQueryLength {
		return Search{}, domain.BadInput("query too long (max %d chars)", MaxQueryLength)
	}
	if err := checkLimit(limit); err != nil {
		return Search{}, err
	}

	w := defaults
	if semantic != nil {
		w.Semantic = *semantic
	}
	if metadata != nil {
		w.Metadata = *metadata
	}
	if err := w.Validate(); err != nil {
		return Search{}, err
	}

	return Search{query: q, limit: limit, includeSummaries: includeSummaries, weights: w}, nil
}

// Query returns the trimmed query text.
func (r Search) Query() string { return r.query }

// Limit returns the explicit limit, nil when the caller gave none.
func (r Search) Limit() *int { return r.limit }

// IncludeSummaries reports whether summaries were requested.
func (r Search) IncludeSummaries() bool { return r.includeSummaries }

// WithPassages sets the per-call passage switch. Nil defers to configuration.
func (r Search) WithPassages(v *bool) Search {
	r.includePassages = v
	return r
}

// IncludePassages returns the per-call passage switch, nil when unset.
func (r Search) IncludePassages() *bool { return r.includePassages }

// Weights returns the effective fusion weights.
func (r Search) Weights() score.Weights { return r.weights }

func checkLimit(limit *int) error {
	if limit != nil && *limit < 1 {
		return domain.BadInput("limit must be at least 1")
	}
	return nil
}
