package pgstore

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
)

// Passages is the passages table viewed as an ANN index.
type Passages struct {
	s *Store
}

// Passages returns the passage repository.
func (s *Store) Passages() *Passages { return &Passages{s: s} }

// IndexExists reports whether the HNSW index on passages is present.
func (p *Passages) IndexExists(ctx context.Context) (bool, error) {
	return p.s.indexExists(ctx, passagesIndex)
}

// UpsertMulti inserts or overwrites chunks by chunk_id.
func (p *Passages) UpsertMulti(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]passageRow, 0, len(chunks))
	for _, c := range chunks {
		if err := checkDim(c.ID, c.Embedding); err != nil {
			return err
		}
		rows = append(rows, toPassageRow(c))
	}
	err := p.s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert passages: %w", err)
	}
	return nil
}

type scoredPassageRow struct {
	passageRow
	Similarity float64
}

// KNN returns up to k passages nearest to vec.
func (p *Passages) KNN(ctx context.Context, vec []float32, k int) ([]chunk.Scored, error) {
	var rows []scoredPassageRow
	err := knnPassages(p.s.db.WithContext(ctx), vec, k).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("knn passages: %w", err)
	}
	out := make([]chunk.Scored, len(rows))
	for i, row := range rows {
		c := row.chunk()
		c.Embedding = nil
		out[i] = chunk.Scored{Chunk: c, Score: row.Similarity}
	}
	return out, nil
}

func knnPassages(tx *gorm.DB, vec []float32, k int) *gorm.DB {
	q := pgvector.NewVector(vec)
	return tx.Table("passages").
		Select("passages.*, 1 - (embedding <=> ?) AS similarity", q).
		Order(gorm.Expr("embedding <=> ?", q)).
		Order("chunk_id").
		Limit(k)
}

// ListByRecord returns up to limit chunks of a record, ordered by chunk_index, with embeddings.
func (p *Passages) ListByRecord(ctx context.Context, recordID string, limit int) ([]chunk.Chunk, error) {
	var rows []passageRow
	err := p.s.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("chunk_index").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list passages of %s: %w", recordID, err)
	}
	out := make([]chunk.Chunk, len(rows))
	for i, row := range rows {
		out[i] = row.chunk()
	}
	return out, nil
}
