package health

import (
	"context"

	"github.com/kailas-cloud/aisearch/internal/db"
	"github.com/kailas-cloud/aisearch/internal/repository/table"
)

// Backend is the vector store as seen by the probe.
type Backend interface {
	Ping(ctx context.Context) error
	ServerInfo(ctx context.Context) (*db.ServerInfo, error)
}

// ModelState reports the embedding gateway's load state without triggering a load.
type ModelState interface {
	ModelLoaded() bool
	ModelFailed() bool
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// TableReader publishes the brute-force table.
type TableReader interface {
	Load() *table.Table
}
