package pgstore

import (
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
)

// The column type is fixed at the model dimension; config validation rejects other values.
type recordRow struct {
	RecordID        string           `gorm:"primaryKey;type:varchar(256)"`
	Title           string           `gorm:"type:text"`
	Creators        []string         `gorm:"serializer:json;type:jsonb"`
	PublicationDate string           `gorm:"type:varchar(64)"`
	ResourceType    string           `gorm:"type:varchar(128)"`
	License         *string          `gorm:"type:varchar(256)"`
	AccessStatus    string           `gorm:"type:varchar(32)"`
	Description     string           `gorm:"type:text"`
	Embedding       *pgvector.Vector `gorm:"type:vector(384)"`
}

func (recordRow) TableName() string { return "records" }

type passageRow struct {
	ChunkID    string          `gorm:"primaryKey;type:varchar(256)"`
	RecordID   string          `gorm:"type:varchar(256);not null;index"`
	Title      string          `gorm:"type:text"`
	Creators   string          `gorm:"type:text"`
	Text       string          `gorm:"type:text"`
	ChunkIndex int             `gorm:"default:0"`
	ChunkCount int             `gorm:"default:0"`
	WordCount  int             `gorm:"default:0"`
	CharStart  int             `gorm:"default:0"`
	CharEnd    int             `gorm:"default:0"`
	Embedding  pgvector.Vector `gorm:"type:vector(384)"`
}

func (passageRow) TableName() string { return "passages" }

func toRecordRow(e domrec.Embedded) recordRow {
	r := e.Record
	row := recordRow{
		RecordID:        r.ID,
		Title:           r.Title,
		Creators:        r.Creators,
		PublicationDate: r.PublicationDate,
		ResourceType:    r.ResourceType,
		License:         r.License,
		AccessStatus:    r.AccessStatus,
		Description:     r.Description,
	}
	if len(e.Vector) > 0 {
		v := pgvector.NewVector(e.Vector)
		row.Embedding = &v
	}
	return row
}

func (row recordRow) record() domrec.Record {
	return domrec.Record{
		ID:              row.RecordID,
		Title:           row.Title,
		Creators:        row.Creators,
		PublicationDate: row.PublicationDate,
		ResourceType:    row.ResourceType,
		License:         row.License,
		AccessStatus:    row.AccessStatus,
		Description:     row.Description,
	}
}

func toPassageRow(c chunk.Chunk) passageRow {
	return passageRow{
		ChunkID:    c.ID,
		RecordID:   c.RecordID,
		Title:      c.Title,
		Creators:   c.Creators,
		Text:       c.Text,
		ChunkIndex: c.Index,
		ChunkCount: c.Count,
		WordCount:  c.WordCount,
		CharStart:  c.CharStart,
		CharEnd:    c.CharEnd,
		Embedding:  pgvector.NewVector(c.Embedding),
	}
}

func (row passageRow) chunk() chunk.Chunk {
	return chunk.Chunk{
		ID:        row.ChunkID,
		RecordID:  row.RecordID,
		Title:     row.Title,
		Creators:  row.Creators,
		Text:      row.Text,
		Index:     row.ChunkIndex,
		Count:     row.ChunkCount,
		WordCount: row.WordCount,
		CharStart: row.CharStart,
		CharEnd:   row.CharEnd,
		Embedding: row.Embedding.Slice(),
	}
}
