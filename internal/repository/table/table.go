// Package table holds the preloaded record_id -> embedding mapping scanned by
// the brute-force strategy, and the sources it is loaded from.
package table

import (
	"context"
	"sort"
	"sync/atomic"

	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
)

// Entry is one row of the table.
type Entry = domrec.Embedded

// Table is an immutable snapshot. Entries are sorted by record_id so a scan
// visits them in a deterministic order.
type Table struct {
	entries []Entry
	byID    map[string]int
	source  string
	dim     int
}

// New builds a snapshot from entries. Later duplicates of a record_id win.
func New(entries []Entry, source string) *Table {
	byID := make(map[string]int, len(entries))
	uniq := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if i, ok := byID[e.Record.ID]; ok {
			uniq[i] = e
			continue
		}
		byID[e.Record.ID] = len(uniq)
		uniq = append(uniq, e)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].Record.ID < uniq[j].Record.ID })
	for i, e := range uniq {
		byID[e.Record.ID] = i
	}
	return &Table{entries: uniq, byID: byID, source: source, dim: commonDim(uniq)}
}

// commonDim is the most frequent non-zero vector length, the smaller one on a tie.
func commonDim(entries []Entry) int {
	counts := make(map[int]int)
	for _, e := range entries {
		if n := len(e.Vector); n > 0 {
			counts[n]++
		}
	}
	dim, best := 0, 0
	for n, c := range counts {
		if c > best || (c == best && n < dim) {
			dim, best = n, c
		}
	}
	return dim
}

// Len is the number of entries. A nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the sorted entries. Callers must not modify them.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return t.entries
}

// Get looks up an entry by record_id.
func (t *Table) Get(id string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	i, ok := t.byID[id]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Dim is the embedding length shared by the table. Entries of any other
// length, including none, count as not embedded.
func (t *Table) Dim() int {
	if t == nil {
		return 0
	}
	return t.dim
}

// Embedded reports whether e carries a vector of the table's dimension.
func (t *Table) Embedded(e Entry) bool {
	return len(e.Vector) > 0 && len(e.Vector) == t.Dim()
}

// Unembedded counts entries that Embedded rejects.
func (t *Table) Unembedded() int {
	n := 0
	for _, e := range t.Entries() {
		if !t.Embedded(e) {
			n++
		}
	}
	return n
}

// Source describes where the snapshot was loaded from.
func (t *Table) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

// Source persists a table. Save returns the number of bytes written.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Table, error)
	Save(ctx context.Context, entries []Entry) (int64, error)
}

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*BadgerSource)(nil)
)

// Holder publishes the current table. Regeneration swaps in a new snapshot;
// readers never see a partially built one.
type Holder struct {
	p atomic.Pointer[Table]
}

// NewHolder returns a holder with an optional initial table.
func NewHolder(t *Table) *Holder {
	h := &Holder{}
	if t != nil {
		h.p.Store(t)
	}
	return h
}

// Load returns the current table, possibly nil.
func (h *Holder) Load() *Table {
	return h.p.Load()
}

// Swap replaces the current table wholesale.
func (h *Holder) Swap(t *Table) {
	h.p.Store(t)
}
