package table

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// FileSource reads and writes the table as a JSON object keyed by record_id.
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource creates a file source. Use afero.NewOsFs() outside tests.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

// Name returns the file path.
func (s *FileSource) Name() string { return s.path }

// Load reads the whole file. A missing file gives ErrNotReady.
func (s *FileSource) Load(_ context.Context) (*Table, error) {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s does not exist", domain.ErrNotReady, s.path)
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var raw map[string]fileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	entries := make([]Entry, 0, len(raw))
	for id, fe := range raw {
		entries = append(entries, fe.entry(id))
	}
	return New(entries, s.path), nil
}

// Save writes entries to a temp file and renames it over the target.
func (s *FileSource) Save(_ context.Context, entries []Entry) (int64, error) {
	raw := make(map[string]fileEntry, len(entries))
	for _, e := range entries {
		raw[e.Record.ID] = toFileEntry(e)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return 0, fmt.Errorf("marshal table: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return 0, fmt.Errorf("rename %s: %w", tmp, err)
	}
	return int64(len(data)), nil
}
