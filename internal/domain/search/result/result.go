// Package result holds the canonical response shapes of search, similar and passages.
package result

import (
	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
	"github.com/kailas-cloud/aisearch/internal/domain/query"
	"github.com/kailas-cloud/aisearch/internal/domain/record"
)

// Hit is one ranked record. Score is the ranking score: the hybrid score when
// fusion ran, otherwise the raw index similarity.
type Hit struct {
	RecordID        string   `json:"record_id"`
	Title           string   `json:"title"`
	Creators        []string `json:"creators"`
	PublicationDate string   `json:"publication_date"`
	ResourceType    string   `json:"resource_type"`
	License         *string  `json:"license,omitempty"`
	AccessStatus    string   `json:"access_status"`
	Score           float64  `json:"similarity_score"`
	SemanticScore   *float64 `json:"semantic_score,omitempty"`
	MetadataScore   *float64 `json:"metadata_score,omitempty"`
	Summary         *string  `json:"summary,omitempty"`

	// summary input, never serialized
	Description string `json:"-"`
}

// FromRecord builds a hit with display defaults applied.
func FromRecord(r record.Record, score float64) Hit {
	r = r.WithDefaults()
	return Hit{
		RecordID:        r.ID,
		Title:           r.Title,
		Creators:        r.Creators,
		PublicationDate: r.PublicationDate,
		ResourceType:    r.ResourceType,
		License:         r.License,
		AccessStatus:    r.AccessStatus,
		Score:           score,
		Description:     r.Description,
	}
}

// SetFused records the component scores and replaces Score with the fused value.
func (h *Hit) SetFused(semantic, metadata, hybrid float64) {
	h.SemanticScore = &semantic
	h.MetadataScore = &metadata
	h.Score = hybrid
}

// ParsedView is the wire form of a parsed query.
type ParsedView struct {
	query.Parsed
	Strategy query.Strategy `json:"strategy"`
}

// Search is the result of a search call. Total counts returned items, not corpus matches.
type Search struct {
	Query        string       `json:"query"`
	Parsed       ParsedView   `json:"parsed"`
	Results      []Hit        `json:"results"`
	Total        int          `json:"total"`
	Passages     []PassageHit `json:"passages,omitempty"`
	PassageTotal int          `json:"passage_total,omitempty"`
}

// NewSearch assembles a search result and derives Total.
func NewSearch(q string, parsed query.Parsed, hits []Hit) *Search {
	if hits == nil {
		hits = []Hit{}
	}
	return &Search{
		Query:   q,
		Parsed:  ParsedView{Parsed: parsed, Strategy: query.StrategyOf(parsed)},
		Results: hits,
		Total:   len(hits),
	}
}

// WithPassages attaches chunk-level hits. An empty list leaves both fields absent.
func (s *Search) WithPassages(p []PassageHit) *Search {
	if len(p) == 0 {
		return s
	}
	s.Passages = p
	s.PassageTotal = len(p)
	return s
}

// Similar is the result of a similar call. Similar never contains RecordID itself.
type Similar struct {
	RecordID       string   `json:"record_id"`
	Similar        []Hit    `json:"similar"`
	Total          int      `json:"total"`
	SourceTitle    string   `json:"source_title,omitempty"`
	SourceCreators []string `json:"source_creators,omitempty"`
}

// NewSimilar drops any hit equal to the source, truncates to limit and derives Total.
func NewSimilar(source record.Record, hits []Hit, limit int) *Similar {
	out := make([]Hit, 0, min(len(hits), max(limit, 0)))
	for _, h := range hits {
		if h.RecordID == source.ID {
			continue
		}
		if len(out) >= limit {
			break
		}
		out = append(out, h)
	}
	s := &Similar{RecordID: source.ID, Similar: out, Total: len(out)}
	if source.Title != "" || len(source.Creators) > 0 {
		src := source.WithDefaults()
		s.SourceTitle = src.Title
		s.SourceCreators = src.Creators
	}
	return s
}

// PassageHit is one ranked chunk.
type PassageHit struct {
	ChunkID    string  `json:"chunk_id"`
	RecordID   string  `json:"record_id"`
	Title      string  `json:"title"`
	Creators   string  `json:"creators"`
	Text       string  `json:"text"`
	ChunkIndex int     `json:"chunk_index"`
	ChunkCount int     `json:"chunk_count"`
	WordCount  int     `json:"word_count"`
	CharStart  int     `json:"char_start"`
	CharEnd    int     `json:"char_end"`
	Score      float64 `json:"similarity_score"`
}

// FromChunk builds a passage hit with display defaults applied.
func FromChunk(c chunk.Chunk, score float64) PassageHit {
	return PassageHit{
		ChunkID:    c.ID,
		RecordID:   c.RecordID,
		Title:      c.DisplayTitle(),
		Creators:   c.DisplayCreators(),
		Text:       c.Text,
		ChunkIndex: c.Index,
		ChunkCount: c.Count,
		WordCount:  c.WordCount,
		CharStart:  c.CharStart,
		CharEnd:    c.CharEnd,
		Score:      score,
	}
}

// Passages is the result of a passage search.
type Passages struct {
	Query    string       `json:"query"`
	Passages []PassageHit `json:"passages"`
	Total    int          `json:"total"`
}

// NewPassages derives Total from the hits.
func NewPassages(q string, hits []PassageHit) *Passages {
	if hits == nil {
		hits = []PassageHit{}
	}
	return &Passages{Query: q, Passages: hits, Total: len(hits)}
}
