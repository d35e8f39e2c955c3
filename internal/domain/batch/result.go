// Package batch holds the outcomes of bulk embedding jobs.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of embedding and storing one record or chunk.
type Result struct {
	id  string
	err error
}

// NewOK creates a successful batch result.
func NewOK(id string) Result { return Result{id: id} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, err: err} }

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus {
	if r.err != nil {
		return StatusError
	}
	return StatusOK
}

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Count splits results into succeeded and failed.
func Count(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.err != nil {
			failed++
			continue
		}
		ok++
	}
	return ok, failed
}

// Failure is the reported shape of a failed item.
type Failure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Failures lists the failed results in order.
func Failures(results []Result) []Failure {
	var out []Failure
	for _, r := range results {
		if r.err != nil {
			out = append(out, Failure{ID: r.id, Error: r.err.Error()})
		}
	}
	return out
}
