package indexing

import (
	"context"

	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
	"github.com/kailas-cloud/aisearch/internal/repository/table"
)

// Embedder vectorizes texts in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RecordWriter stores records with their vectors in the ANN backend.
type RecordWriter interface {
	UpsertMulti(ctx context.Context, items []domrec.Embedded) error
}

// TableSwapper publishes a freshly written table to the running service.
type TableSwapper interface {
	Swap(t *table.Table)
}
