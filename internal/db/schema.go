package db

import (
	"errors"
	"fmt"
	"strings"
)

// FieldKind is the FT attribute type.
type FieldKind string

// Attribute types used by the record and passage indexes.
const (
	FieldTag     FieldKind = "TAG"
	FieldNumeric FieldKind = "NUMERIC"
	FieldVector  FieldKind = "VECTOR"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

// DistanceCosine is cosine distance; FT.SEARCH reports 1 - cosine similarity.
const DistanceCosine DistanceMetric = "COSINE"

// VectorAlgorithm selects the indexing algorithm for vector fields in FT.CREATE.
type VectorAlgorithm string

const (
	// VectorHNSW uses the HNSW algorithm.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat uses the FLAT (brute-force) algorithm.
	VectorFlat VectorAlgorithm = "FLAT"
)

// VectorSpec describes the embedding attribute. M and EFConstruction apply to HNSW only;
// zero leaves the server default.
type VectorSpec struct {
	Algorithm      VectorAlgorithm
	Dim            int
	Distance       DistanceMetric
	M              int
	EFConstruction int
}

// Field is one schema attribute. Alias, when set, is the name queries use.
type Field struct {
	Name   string
	Alias  string
	Kind   FieldKind
	Vector *VectorSpec
}

// QueryName is the name FT queries refer to.
func (f Field) QueryName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Schema is an FT index over hashes under one key prefix. Schemas are declared
// once at creation; there is no ALTER path.
type Schema struct {
	Index  string
	Prefix string
	Fields []Field
}

// NewSchema starts a schema for index over keys with prefix.
func NewSchema(index, prefix string) *Schema {
	return &Schema{Index: index, Prefix: prefix}
}

// Tag adds TAG attributes.
func (s *Schema) Tag(names ...string) *Schema { return s.add(FieldTag, names) }

// Numeric adds NUMERIC attributes.
func (s *Schema) Numeric(names ...string) *Schema { return s.add(FieldNumeric, names) }

// Embedding adds the vector attribute stored under name and queried as alias.
// Distance defaults to cosine.
func (s *Schema) Embedding(name, alias string, vs VectorSpec) *Schema {
	if vs.Distance == "" {
		vs.Distance = DistanceCosine
	}
	if vs.Algorithm == "" {
		vs.Algorithm = VectorHNSW
	}
	s.Fields = append(s.Fields, Field{Name: name, Alias: alias, Kind: FieldVector, Vector: &vs})
	return s
}

func (s *Schema) add(kind FieldKind, names []string) *Schema {
	for _, n := range names {
		s.Fields = append(s.Fields, Field{Name: n, Kind: kind})
	}
	return s
}

// Validate checks that the schema can be sent to FT.CREATE.
func (s *Schema) Validate() error {
	if !IsValidIdentifier(s.Index) {
		return fmt.Errorf("invalid index name %q", s.Index)
	}
	if len(s.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("index %s: empty field name", s.Index)
		}
		name := f.QueryName()
		if seen[name] {
			return fmt.Errorf("index %s: duplicate field %q", s.Index, name)
		}
		seen[name] = true

		if f.Kind == FieldVector && (f.Vector == nil || f.Vector.Dim <= 0) {
			return fmt.Errorf("index %s: vector field %q requires a positive dimension", s.Index, name)
		}
	}
	return nil
}

// String renders the schema roughly as FT.CREATE would receive it.
func (s *Schema) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "FT.CREATE %s ON HASH", s.Index)
	if s.Prefix != "" {
		fmt.Fprintf(&b, " PREFIX 1 %s", s.Prefix)
	}
	b.WriteString(" SCHEMA")
	for _, f := range s.Fields {
		b.WriteString(" " + f.Name)
		if f.Alias != "" {
			b.WriteString(" AS " + f.Alias)
		}
		b.WriteString(" " + string(f.Kind))
		if f.Vector != nil {
			fmt.Fprintf(&b, " %s DIM %d %s", f.Vector.Algorithm, f.Vector.Dim, f.Vector.Distance)
		}
	}
	return b.String()
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
