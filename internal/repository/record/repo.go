// Package record stores catalogue records with their embeddings as hashes
// and serves KNN over the records FT index.
package record

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/aisearch/internal/db"
	"github.com/kailas-cloud/aisearch/internal/domain"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
)

// store is the consumer interface for records (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, schema *db.Schema) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
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

// Repo implements the ANN record index on Valkey/Redis.
type Repo struct {
	store store
	cfg   Config
}

// New creates a record repository.
func New(s store, cfg Config) *Repo {
	if cfg.Index == "" {
		cfg.Index = "idx:records"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rec:"
	}
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = domain.Dimension
	}
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the records index if missing. The schema is declared here,
// once, at creation time.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	sc, err := schema(r.cfg)
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, sc); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.cfg.Index, err)
	}
	return nil
}

// IndexExists reports whether the records index is present.
func (r *Repo) IndexExists(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.cfg.Index)
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", r.cfg.Index, err)
	}
	return ok, nil
}

// UpsertMulti writes records with their vectors in one round-trip. Existing keys are overwritten.
func (r *Repo) UpsertMulti(ctx context.Context, items []domrec.Embedded) error {
	if len(items) == 0 {
		return nil
	}
	batch := make([]db.HashSetItem, 0, len(items))
	for _, it := range items {
		if len(it.Vector) != r.cfg.VectorDim {
			return fmt.Errorf("record %s: %w: got %d, want %d",
				it.Record.ID, domain.ErrVectorDimMismatch, len(it.Vector), r.cfg.VectorDim)
		}
		fields, err := recordToHash(it.Record, it.Vector)
		if err != nil {
			return err
		}
		batch = append(batch, db.HashSetItem{Key: r.key(it.Record.ID), Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, batch); err != nil {
		return fmt.Errorf("hset records: %w", err)
	}
	return nil
}

// Get returns a record and its stored embedding.
// An absent key gives ErrNotFound; a record without a vector gives ErrNotEmbedded
// together with the record itself.
func (r *Repo) Get(ctx context.Context, id string) (domrec.Record, []float32, error) {
	m, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		return domrec.Record{}, nil, fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(m) == 0 {
		return domrec.Record{}, nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	rec := recordFromHash(id, m)
	vec := db.DecodeVector(m[vectorField])
	if vec == nil {
		return rec, nil, fmt.Errorf("record %s: %w", id, domain.ErrNotEmbedded)
	}
	return rec, vec, nil
}

// KNN returns up to k records nearest to vec, nearest first.
func (r *Repo) KNN(ctx context.Context, vec []float32, k int) ([]domrec.Scored, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.Index,
		Vector:       vec,
		K:            k,
		ReturnFields: returnFields,
		VectorField:  vectorAlias,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.Index, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	out := make([]domrec.Scored, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id := strings.TrimPrefix(e.Key, r.cfg.Prefix)
		out = append(out, domrec.Scored{Record: recordFromHash(id, e.Fields), Score: e.Score})
	}
	return out, nil
}

// Count returns the number of indexed records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.cfg.Index, "*")
	if err != nil {
		return 0, fmt.Errorf("search count %s: %w", r.cfg.Index, err)
	}
	return n, nil
}

func (r *Repo) key(id string) string {
	return r.cfg.Prefix + id
}
