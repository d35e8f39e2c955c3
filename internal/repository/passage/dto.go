package passage

import (
	"strconv"

	"github.com/kailas-cloud/aisearch/internal/db"
	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
)

const (
	vectorField = "__vector"
	vectorAlias = "vector"
)

var displayFields = []string{
	"chunk_id", "record_id", "title", "creators", "text",
	"chunk_index", "chunk_count", "word_count", "char_start", "char_end",
}

func chunkToHash(c *chunk.Chunk) map[string]string {
	return map[string]string{
		"chunk_id":    c.ID,
		"record_id":   c.RecordID,
		"title":       c.Title,
		"creators":    c.Creators,
		"text":        c.Text,
		"chunk_index": strconv.Itoa(c.Index),
		"chunk_count": strconv.Itoa(c.Count),
		"word_count":  strconv.Itoa(c.WordCount),
		"char_start":  strconv.Itoa(c.CharStart),
		"char_end":    strconv.Itoa(c.CharEnd),
		vectorField:   db.EncodeVector(c.Embedding),
	}
}

func chunkFromHash(m map[string]string) chunk.Chunk {
	return chunk.Chunk{
		ID:        m["chunk_id"],
		RecordID:  m["record_id"],
		Title:     m["title"],
		Creators:  m["creators"],
		Text:      m["text"],
		Index:     atoi(m["chunk_index"]),
		Count:     atoi(m["chunk_count"]),
		WordCount: atoi(m["word_count"]),
		CharStart: atoi(m["char_start"]),
		CharEnd:   atoi(m["char_end"]),
	}
}

// atoi treats missing or malformed numbers as zero.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
