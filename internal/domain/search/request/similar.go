package request

import (
	"strings"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// Similar is a validated "find similar" call.
type Similar struct {
	recordID string
	limit    int
}

// NewSimilar validates the record id; limit defaults to 10 and is capped by l.
func NewSimilar(recordID string, limit *int, l Limits) (Similar, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return Similar{}, domain.BadInput("record_id is required")
	}
	if err := checkLimit(limit); err != nil {
		return Similar{}, err
	}
	return Similar{recordID: recordID, limit: Limits{Default: DefaultLimit, Max: l.Max}.Resolve(limit, nil)}, nil
}

// RecordID returns the source record id.
func (r Similar) RecordID() string { return r.recordID }

// Limit returns the resolved limit.
func (r Similar) Limit() int { return r.limit }

// Passages is a validated passage search.
type Passages struct {
	query string
	limit int
}

// NewPassages validates the query; limit defaults to 10 and is capped by l.
func NewPassages(q string, limit *int, l Limits) (Passages, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Passages{}, domain.BadInput("query is required")
	}
	if len(q) > MaxQueryLength {
		return Passages{}, domain.BadInput("query too long (max %d chars)", MaxQueryLength)
	}
	if err := checkLimit(limit); err != nil {
		return Passages{}, err
	}
	return Passages{query: q, limit: Limits{Default: DefaultLimit, Max: l.Max}.Resolve(limit, nil)}, nil
}

// Query returns the trimmed query text.
func (r Passages) Query() string { return r.query }

// Limit returns the resolved limit.
func (r Passages) Limit() int { return r.limit }
