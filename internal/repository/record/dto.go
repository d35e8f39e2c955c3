package record

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/aisearch/internal/db"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
)

const (
	vectorField = "__vector"
	vectorAlias = "vector"
)

// returned by KNN; the raw vector stays in the store
var returnFields = []string{
	"record_id", "title", "creators", "publication_date",
	"resource_type", "license", "access_status", "description",
}

// recordToHash flattens a record for HSET. Creators are stored as a JSON array.
func recordToHash(r domrec.Record, vec []float32) (map[string]string, error) {
	creators, err := json.Marshal(r.Creators)
	if err != nil {
		return nil, fmt.Errorf("marshal creators: %w", err)
	}
	m := map[string]string{
		"record_id":        r.ID,
		"title":            r.Title,
		"creators":         string(creators),
		"publication_date": r.PublicationDate,
		"resource_type":    r.ResourceType,
		"access_status":    r.AccessStatus,
		"description":      r.Description,
		vectorField:        db.EncodeVector(vec),
	}
	if r.License != nil {
		m["license"] = *r.License
	}
	return m, nil
}

// recordFromHash hydrates a record from HGETALL or FT.SEARCH fields.
// Unparseable creators degrade to a single raw string.
func recordFromHash(id string, m map[string]string) domrec.Record {
	r := domrec.Record{
		ID:              id,
		Title:           m["title"],
		PublicationDate: m["publication_date"],
		ResourceType:    m["resource_type"],
		AccessStatus:    m["access_status"],
		Description:     m["description"],
	}
	if v := m["record_id"]; v != "" {
		r.ID = v
	}
	if raw := m["creators"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.Creators); err != nil {
			r.Creators = []string{raw}
		}
	}
	if lic, ok := m["license"]; ok && lic != "" {
		r.License = &lic
	}
	return r
}
