package passage

import (
	"context"

	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
)

// Embedder vectorizes a single passage text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkWriter stores embedded chunks keyed by chunk_id.
type ChunkWriter interface {
	UpsertMulti(ctx context.Context, chunks []chunk.Chunk) error
}

// Checkpoint records job progress so an interrupted run can resume.
type Checkpoint interface {
	ResumeOffset(file string) int
	Start(runID, file string, offset int) error
	Advance(nextOffset, processed, indexed, failed int, complete bool) error
}
