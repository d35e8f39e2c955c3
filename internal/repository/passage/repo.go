// Package passage stores passage chunks with their embeddings and serves
// chunk-level KNN and per-record listing.
package passage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/aisearch/internal/db"
	"github.com/kailas-cloud/aisearch/internal/domain"
	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
)

// store is the consumer interface for passages (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, schema *db.Schema) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

// Config names the index and key prefix and carries the HNSW parameters.
type Config struct {
	Index     string
	Prefix    string
	VectorDim int
	Algorithm db.VectorAlgorithm
	HNSW      HNSWConfig
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements the passage index on Valkey/Redis.
type Repo struct {
	store store
	cfg   Config
}

// New creates a passage repository.
func New(s store, cfg Config) *Repo {
	if cfg.Index == "" {
		cfg.Index = "idx:passages"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "chunk:"
	}
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = domain.Dimension
	}
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the passages index if missing.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	sc := db.NewSchema(r.cfg.Index, r.cfg.Prefix).
		Tag("record_id").
		Numeric("chunk_index").
		Embedding(vectorField, vectorAlias, db.VectorSpec{
			Algorithm:      r.cfg.Algorithm,
			Dim:            r.cfg.VectorDim,
			M:              r.cfg.HNSW.M,
			EFConstruction: r.cfg.HNSW.EFConstruct,
		})
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("passages schema: %w", err)
	}
	if err := r.store.CreateIndex(ctx, sc); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.cfg.Index, err)
	}
	return nil
}

// IndexExists reports whether the passages index is present.
func (r *Repo) IndexExists(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.cfg.Index)
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", r.cfg.Index, err)
	}
	return ok, nil
}

// UpsertMulti writes chunks keyed by chunk_id; re-indexing overwrites.
// Every chunk must carry an embedding of the configured dimension.
func (r *Repo) UpsertMulti(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Embedding) != r.cfg.VectorDim {
			return fmt.Errorf("chunk %s: %w: got %d, want %d",
				c.ID, domain.ErrVectorDimMismatch, len(c.Embedding), r.cfg.VectorDim)
		}
		items = append(items, db.HashSetItem{Key: r.cfg.Prefix + c.ID, Fields: chunkToHash(c)})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset chunks: %w", err)
	}
	return nil
}

// KNN returns up to k chunks nearest to vec, nearest first.
func (r *Repo) KNN(ctx context.Context, vec []float32, k int) ([]chunk.Scored, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.Index,
		Vector:       vec,
		K:            k,
		ReturnFields: displayFields,
		VectorField:  vectorAlias,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.Index, err)
	}
	if sr == nil {
		return nil, nil
	}
	out := make([]chunk.Scored, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, chunk.Scored{Chunk: r.chunkFromEntry(e), Score: e.Score})
	}
	return out, nil
}

// ListByRecord returns up to limit chunks of a record with their embeddings.
func (r *Repo) ListByRecord(ctx context.Context, recordID string, limit int) ([]chunk.Chunk, error) {
	fields := append(append([]string{}, displayFields...), vectorField)
	sr, err := r.store.SearchList(ctx, r.cfg.Index, db.TagEquals("record_id", recordID), 0, limit, fields)
	if err != nil {
		return nil, fmt.Errorf("list chunks of %s: %w", recordID, err)
	}
	if sr == nil {
		return nil, nil
	}
	out := make([]chunk.Chunk, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		c := r.chunkFromEntry(e)
		c.Embedding = db.DecodeVector(e.Fields[vectorField])
		if c.Embedding == nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Repo) chunkFromEntry(e db.SearchEntry) chunk.Chunk {
	c := chunkFromHash(e.Fields)
	if c.ID == "" {
		c.ID = strings.TrimPrefix(e.Key, r.cfg.Prefix)
	}
	return c
}
