package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kailas-cloud/aisearch/internal/domain"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
)

// Records is the records table viewed as an ANN index.
type Records struct {
	s *Store
}

// Records returns the record repository.
func (s *Store) Records() *Records { return &Records{s: s} }

// IndexExists reports whether the HNSW index on records is present.
func (r *Records) IndexExists(ctx context.Context) (bool, error) {
	return r.s.indexExists(ctx, recordsIndex)
}

// UpsertMulti inserts or overwrites records by record_id.
func (r *Records) UpsertMulti(ctx context.Context, items []domrec.Embedded) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]recordRow, 0, len(items))
	for _, it := range items {
		if err := checkDim(it.Record.ID, it.Vector); err != nil {
			return err
		}
		rows = append(rows, toRecordRow(it))
	}
	err := r.s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert records: %w", err)
	}
	return nil
}

// Get returns a record and its embedding. ErrNotEmbedded comes with the record.
func (r *Records) Get(ctx context.Context, id string) (domrec.Record, []float32, error) {
	var row recordRow
	err := r.s.db.WithContext(ctx).Where("record_id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domrec.Record{}, nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
		}
		return domrec.Record{}, nil, fmt.Errorf("get record %s: %w", id, err)
	}
	if row.Embedding == nil || len(row.Embedding.Slice()) == 0 {
		return row.record(), nil, fmt.Errorf("record %s: %w", id, domain.ErrNotEmbedded)
	}
	return row.record(), row.Embedding.Slice(), nil
}

type scoredRecordRow struct {
	recordRow
	Similarity float64
}

// KNN orders by cosine distance; the score is 1 - distance.
func (r *Records) KNN(ctx context.Context, vec []float32, k int) ([]domrec.Scored, error) {
	var rows []scoredRecordRow
	err := knnRecords(r.s.db.WithContext(ctx), vec, k).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("knn records: %w", err)
	}
	out := make([]domrec.Scored, len(rows))
	for i, row := range rows {
		out[i] = domrec.Scored{Record: row.record(), Score: row.Similarity}
	}
	return out, nil
}

// knnRecords breaks distance ties by record_id so equal scores keep a stable order.
func knnRecords(tx *gorm.DB, vec []float32, k int) *gorm.DB {
	q := pgvector.NewVector(vec)
	return tx.Table("records").
		Select("records.*, 1 - (embedding <=> ?) AS similarity", q).
		Where("embedding IS NOT NULL").
		Order(gorm.Expr("embedding <=> ?", q)).
		Order("record_id").
		Limit(k)
}

// Count returns the number of embedded records.
func (r *Records) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.s.db.WithContext(ctx).Model(&recordRow{}).Where("embedding IS NOT NULL").Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return int(n), nil
}
