package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/aisearch/internal/db"
)

// CreateIndex runs FT.CREATE for schema. An existing index yields db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, schema *db.Schema) error {
	if err := schema.Validate(); err != nil {
		return opError(db.OpCreateIndex, schema.Index, err)
	}
	err := s.command(ctx, db.OpCreateIndex, createArgs(schema)...).Error()
	switch {
	case err == nil:
		return nil
	case serverSaid(err, "already exists"):
		return db.ErrIndexExists
	default:
		return opError(db.OpCreateIndex, schema.Index, err)
	}
}

// IndexExists probes with FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.command(ctx, db.OpIndexInfo, name).Error()
	switch {
	case err == nil:
		return true, nil
	case serverSaid(err, "unknown index name"), serverSaid(err, "not found"):
		return false, nil
	default:
		return false, opError(db.OpIndexInfo, name, err)
	}
}

func createArgs(s *db.Schema) []string {
	args := []string{s.Index, "ON", "HASH"}
	if s.Prefix != "" {
		args = append(args, "PREFIX", "1", s.Prefix)
	}
	args = append(args, "SCHEMA")
	for _, f := range s.Fields {
		args = append(args, f.Name)
		if f.Alias != "" {
			args = append(args, "AS", f.Alias)
		}
		if f.Kind != db.FieldVector {
			args = append(args, string(f.Kind))
			continue
		}
		args = append(args, vectorArgs(f.Vector)...)
	}
	return args
}

// vectorArgs renders VECTOR <algo> <nargs> <attrs...>.
func vectorArgs(v *db.VectorSpec) []string {
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", string(v.Distance),
	}
	if v.Algorithm == db.VectorHNSW {
		if v.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(v.M))
		}
		if v.EFConstruction > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(v.EFConstruction))
		}
	}
	return append([]string{"VECTOR", string(v.Algorithm), fmt.Sprint(len(attrs))}, attrs...)
}
