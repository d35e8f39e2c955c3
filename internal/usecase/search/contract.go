package search

import (
	"context"

	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
	"github.com/kailas-cloud/aisearch/internal/repository/table"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer condenses long descriptions.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
}

// RecordIndex is the ANN index over whole records.
type RecordIndex interface {
	KNN(ctx context.Context, vec []float32, k int) ([]domrec.Scored, error)
	Get(ctx context.Context, id string) (domrec.Record, []float32, error)
}

// PassageIndex is the ANN index over passages.
type PassageIndex interface {
	IndexExists(ctx context.Context) (bool, error)
	KNN(ctx context.Context, vec []float32, k int) ([]chunk.Scored, error)
}

// TableReader publishes the current brute-force table.
type TableReader interface {
	Load() *table.Table
}
