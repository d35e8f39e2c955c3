package record

import (
	"fmt"

	"github.com/kailas-cloud/aisearch/internal/db"
)

// schema declares the records index: record_id as TAG for exact lookups,
// the vector as HNSW (or FLAT) with cosine distance.
func schema(cfg Config) (*db.Schema, error) {
	s := db.NewSchema(cfg.Index, cfg.Prefix).
		Tag("record_id", "resource_type").
		Embedding(vectorField, vectorAlias, db.VectorSpec{
			Algorithm:      cfg.Algorithm,
			Dim:            cfg.VectorDim,
			M:              cfg.HNSW.M,
			EFConstruction: cfg.HNSW.EFConstruct,
		})
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("records schema: %w", err)
	}
	return s, nil
}
