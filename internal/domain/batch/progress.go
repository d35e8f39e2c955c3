package batch

// Progress reports one passage batch. NextOffset is the line to resume from.
type Progress struct {
	Processed  int  `json:"processed"`
	Indexed    int  `json:"indexed"`
	Errors     int  `json:"errors"`
	NextOffset int  `json:"next_offset"`
	TotalLines int  `json:"total_lines"`
	Complete   bool `json:"complete"`

	Failures []Failure `json:"failures,omitempty"`
}

// NewProgress derives NextOffset and Complete from the batch position.
func NewProgress(start, processed, indexed, errs, totalLines int) Progress {
	next := start + processed
	return Progress{
		Processed:  processed,
		Indexed:    indexed,
		Errors:     errs,
		NextOffset: next,
		TotalLines: totalLines,
		Complete:   next >= totalLines,
	}
}

// Summary reports a full record embedding run.
type Summary struct {
	TotalRecords int     `json:"total_records"`
	Generated    int     `json:"embeddings_generated"`
	Errors       int     `json:"errors"`
	FilePath     string  `json:"file_path,omitempty"`
	FileSizeMB   float64 `json:"file_size_mb,omitempty"`

	Failures []Failure `json:"failures,omitempty"`
}
