// Package checkpoint persists the resume position of batch jobs.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Cursor is the position of a batch job in its input file.
type Cursor struct {
	RunID          string    `json:"run_id"`
	File           string    `json:"file"`
	Offset         int       `json:"offset"`
	TotalProcessed int       `json:"total_processed"`
	TotalIndexed   int       `json:"total_indexed"`
	TotalFailed    int       `json:"total_failed"`
	Complete       bool      `json:"complete"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Tracker keeps the cursor in memory and writes it through to a JSON file.
type Tracker struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	cursor Cursor
}

// Open loads an existing cursor file; a missing file starts from zero.
func Open(fs afero.Fs, path string) (*Tracker, error) {
	t := &Tracker{fs: fs, path: filepath.Clean(path)}

	data, err := afero.ReadFile(fs, t.path)
	if err == nil {
		if err := json.Unmarshal(data, &t.cursor); err != nil {
			return nil, fmt.Errorf("parse cursor %s: %w", t.path, err)
		}
		return t, nil
	}
	exists, statErr := afero.Exists(fs, t.path)
	if statErr != nil || exists {
		return nil, fmt.Errorf("read cursor %s: %w", t.path, err)
	}
	return t, nil
}

// Get returns a copy of the current cursor.
func (t *Tracker) Get() Cursor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor
}

// ResumeOffset returns where a run over file should start: the saved offset
// when the cursor belongs to the same file and is not complete, otherwise 0.
func (t *Tracker) ResumeOffset(file string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cursor.File != file || t.cursor.Complete {
		return 0
	}
	return t.cursor.Offset
}

// Start binds the cursor to a new run and saves it.
func (t *Tracker) Start(runID, file string, offset int) error {
	t.mu.Lock()
	t.cursor = Cursor{RunID: runID, File: file, Offset: offset, UpdatedAt: time.Now().UTC()}
	t.mu.Unlock()
	return t.save()
}

// Advance records a finished batch and saves.
func (t *Tracker) Advance(nextOffset, processed, indexed, failed int, complete bool) error {
	t.mu.Lock()
	t.cursor.Offset = nextOffset
	t.cursor.TotalProcessed += processed
	t.cursor.TotalIndexed += indexed
	t.cursor.TotalFailed += failed
	t.cursor.Complete = complete
	t.cursor.UpdatedAt = time.Now().UTC()
	t.mu.Unlock()
	return t.save()
}

// save writes a temp file and renames it over the cursor.
func (t *Tracker) save() error {
	t.mu.Lock()
	data, err := json.MarshalIndent(t.cursor, "", "  ")
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}

	if dir := filepath.Dir(t.path); dir != "." {
		if err := t.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	tmp := t.path + ".tmp"
	if err := afero.WriteFile(t.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	if err := t.fs.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("rename cursor: %w", err)
	}
	return nil
}
