// Package record describes a searchable catalogue record.
package record

import (
	"encoding/json"
	"strings"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// Display defaults for missing metadata.
const (
	DefaultTitle        = "Untitled"
	DefaultCreator      = "Unknown"
	DefaultResourceType = "Unknown"
	DefaultAccess       = "restricted"
)

// Record is the metadata of one indexed record. ID is the public identifier, never a storage key.
type Record struct {
	ID              string   `json:"record_id" validate:"required,max=256"`
	Title           string   `json:"title" validate:"max=2048"`
	Creators        []string `json:"creators,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty"`
	ResourceType    string   `json:"resource_type,omitempty"`
	License         *string  `json:"license,omitempty"`
	AccessStatus    string   `json:"access_status,omitempty" validate:"omitempty,oneof=public restricted embargoed metadata-only"`
	Description     string   `json:"description,omitempty"`
}

// Validate checks the record before indexing.
func (r Record) Validate() error {
	if err := domain.ValidateStruct(r); err != nil {
		return err
	}
	// tag filters and key names break on whitespace and braces
	if strings.ContainsAny(r.ID, " \t\n{}") {
		return domain.BadInput("record_id contains whitespace or braces")
	}
	return nil
}

// WithDefaults fills display defaults. Creators with empty names become "Unknown".
func (r Record) WithDefaults() Record {
	if strings.TrimSpace(r.Title) == "" {
		r.Title = DefaultTitle
	}
	if r.ResourceType == "" {
		r.ResourceType = DefaultResourceType
	}
	if r.AccessStatus == "" {
		r.AccessStatus = DefaultAccess
	}
	creators := make([]string, len(r.Creators))
	for i, c := range r.Creators {
		if strings.TrimSpace(c) == "" {
			c = DefaultCreator
		}
		creators[i] = c
	}
	r.Creators = creators
	if r.License != nil && *r.License == "" {
		r.License = nil
	}
	return r
}

// EmbeddingText is the text embedded at index time: "title. description", or just the title.
func (r Record) EmbeddingText() string {
	title := strings.TrimSpace(r.Title)
	desc := strings.TrimSpace(r.Description)
	switch {
	case desc == "":
		return title
	case title == "":
		return desc
	default:
		return title + ". " + desc
	}
}

// ParseLine decodes one JSONL export line and validates it.
func ParseLine(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return Record{}, domain.BadInput("malformed record line: %v", err)
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Scored is a retrieval hit: the record plus the backend similarity.
type Scored struct {
	Record Record
	Score  float64
}

// Embedded pairs a record with its index-time embedding.
type Embedded struct {
	Record Record
	Vector []float32
}
