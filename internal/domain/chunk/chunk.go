// Package chunk describes passage-level windows of a record's full text.
package chunk

import (
	"encoding/json"
	"strings"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// Chunk is one passage as produced by the external chunking pipeline.
type Chunk struct {
	ID        string    `json:"chunk_id" validate:"required,max=256"`
	RecordID  string    `json:"record_id" validate:"required,max=256"`
	Title     string    `json:"title"`
	Creators  string    `json:"creators"`
	Index     int       `json:"chunk_index" validate:"gte=0"`
	Count     int       `json:"chunk_count" validate:"gte=0"`
	Text      string    `json:"text" validate:"required"`
	CharStart int       `json:"char_start" validate:"gte=0"`
	CharEnd   int       `json:"char_end" validate:"gtefield=CharStart"`
	WordCount int       `json:"word_count" validate:"gte=0"`
	Embedding []float32 `json:"-"`
}

// Older exports name the display fields book_title and author.
type wireChunk struct {
	ID        string `json:"chunk_id"`
	RecordID  string `json:"record_id"`
	Title     string `json:"title"`
	BookTitle string `json:"book_title"`
	Creators  string `json:"creators"`
	Author    string `json:"author"`
	Index     int    `json:"chunk_index"`
	Count     int    `json:"chunk_count"`
	Text      string `json:"text"`
	CharStart int    `json:"char_start"`
	CharEnd   int    `json:"char_end"`
	WordCount int    `json:"word_count"`
}

// ParseLine decodes one JSONL line. book_title wins over title, author over creators.
func ParseLine(line []byte) (Chunk, error) {
	var w wireChunk
	if err := json.Unmarshal(line, &w); err != nil {
		return Chunk{}, domain.BadInput("malformed chunk line: %v", err)
	}
	c := Chunk{
		ID:        w.ID,
		RecordID:  w.RecordID,
		Title:     firstNonEmpty(w.BookTitle, w.Title),
		Creators:  firstNonEmpty(w.Author, w.Creators),
		Index:     w.Index,
		Count:     w.Count,
		Text:      w.Text,
		CharStart: w.CharStart,
		CharEnd:   w.CharEnd,
		WordCount: w.WordCount,
	}
	if err := domain.ValidateStruct(c); err != nil {
		return Chunk{}, err
	}
	return c, nil
}

// DisplayTitle returns the title or "Untitled".
func (c Chunk) DisplayTitle() string {
	if strings.TrimSpace(c.Title) == "" {
		return "Untitled"
	}
	return c.Title
}

// DisplayCreators returns the creators or "Unknown".
func (c Chunk) DisplayCreators() string {
	if strings.TrimSpace(c.Creators) == "" {
		return "Unknown"
	}
	return c.Creators
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Scored is a passage retrieval hit.
type Scored struct {
	Chunk Chunk
	Score float64
}
