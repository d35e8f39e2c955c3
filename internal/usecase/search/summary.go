package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain/search/result"
	"github.com/kailas-cloud/aisearch/internal/metrics"
)

// Summary defaults.
const (
	DefaultLongTextThreshold = 500
	DefaultSummaryMaxLength  = 150
	DefaultSummaryMinLength  = 50
)

// SummaryConfig controls per-hit summaries. Threshold is in characters,
// the lengths in words.
type SummaryConfig struct {
	LongTextThreshold int
	MaxLength         int
	MinLength         int
}

func (c SummaryConfig) withDefaults() SummaryConfig {
	if c.LongTextThreshold <= 0 {
		c.LongTextThreshold = DefaultLongTextThreshold
	}
	if c.MaxLength <= 0 {
		c.MaxLength = DefaultSummaryMaxLength
	}
	if c.MinLength <= 0 {
		c.MinLength = DefaultSummaryMinLength
	}
	return c
}

// enrich sets Summary on every hit. A failed summary leaves that hit without one.
func (s *Service) enrich(ctx context.Context, hits []result.Hit) {
	for i := range hits {
		hits[i].Summary = s.summaryFor(ctx, hits[i])
	}
}

func (s *Service) summaryFor(ctx context.Context, h result.Hit) *string {
	desc := strings.TrimSpace(h.Description)
	if desc == "" {
		title := h.Title
		return &title
	}
	if utf8.RuneCountInString(desc) <= s.cfg.Summary.LongTextThreshold || s.summarizer == nil {
		return &desc
	}

	out, err := s.summarizer.Summarize(ctx, desc, s.cfg.Summary.MaxLength, s.cfg.Summary.MinLength)
	if err != nil {
		s.logger.Warn("Summary failed",
			zap.String("record_id", h.RecordID),
			zap.Error(err),
		)
		metrics.SummaryFailuresTotal.Inc()
		return nil
	}
	return &out
}
