// Package status describes the readiness report of the search service.
package status

// Status is the aggregated readiness.
type Status string

const (
	// Ready means the backend answers and k-NN is usable.
	Ready Status = "ready"
	// Degraded means the backend answers but search cannot run at full capability.
	Degraded Status = "degraded"
	// Error means the probe failed.
	Error Status = "error"
)

// CheckResult is an individual component outcome.
type CheckResult string

const (
	// CheckOK indicates a passing check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing check.
	CheckError CheckResult = "error"
	// CheckSkipped indicates a component that is not configured.
	CheckSkipped CheckResult = "skipped"
)

// BackendInfo is what the vector backend reports about itself.
type BackendInfo struct {
	Name    string
	Version string
	KNN     bool
}

// TableInfo describes the brute-force embedding table.
type TableInfo struct {
	Loaded bool
	Count  int
	Source string
}

// Report is the status payload. Table fields are set only in table mode.
type Report struct {
	Status           Status                 `json:"status"`
	ModelLoaded      bool                   `json:"model_loaded"`
	Backend          string                 `json:"backend,omitempty"`
	BackendVersion   string                 `json:"backend_version,omitempty"`
	KNNAvailable     bool                   `json:"knn_available"`
	Mode             string                 `json:"mode"`
	Error            string                 `json:"error,omitempty"`
	EmbeddingsLoaded *bool                  `json:"embeddings_loaded,omitempty"`
	EmbeddingsCount  *int                   `json:"embeddings_count,omitempty"`
	EmbeddingsFile   string                 `json:"embeddings_file,omitempty"`
	Checks           map[string]CheckResult `json:"checks"`
}

// SetTable fills the table-mode fields.
func (r *Report) SetTable(t TableInfo) {
	loaded, count := t.Loaded, t.Count
	r.EmbeddingsLoaded = &loaded
	r.EmbeddingsCount = &count
	r.EmbeddingsFile = t.Source
}

// Healthy reports whether the service can serve requests, possibly degraded.
func (r Report) Healthy() bool { return r.Status != Error }
