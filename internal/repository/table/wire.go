package table

import domrec "github.com/kailas-cloud/aisearch/internal/domain/record"

// fileEntry is the serialized form of one entry, shared by the JSON file and badger values.
type fileEntry struct {
	Embedding       []float32 `json:"embedding"`
	Title           string    `json:"title"`
	Creators        []string  `json:"creators,omitempty"`
	PublicationDate string    `json:"publication_date,omitempty"`
	ResourceType    string    `json:"resource_type,omitempty"`
	License         *string   `json:"license,omitempty"`
	AccessStatus    string    `json:"access_status,omitempty"`
	Description     string    `json:"description,omitempty"`
}

func toFileEntry(e Entry) fileEntry {
	r := e.Record
	return fileEntry{
		Embedding:       e.Vector,
		Title:           r.Title,
		Creators:        r.Creators,
		PublicationDate: r.PublicationDate,
		ResourceType:    r.ResourceType,
		License:         r.License,
		AccessStatus:    r.AccessStatus,
		Description:     r.Description,
	}
}

func (f fileEntry) entry(id string) Entry {
	return Entry{
		Record: domrec.Record{
			ID:              id,
			Title:           f.Title,
			Creators:        f.Creators,
			PublicationDate: f.PublicationDate,
			ResourceType:    f.ResourceType,
			License:         f.License,
			AccessStatus:    f.AccessStatus,
			Description:     f.Description,
		},
		Vector: f.Embedding,
	}
}
