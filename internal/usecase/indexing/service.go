// Package indexing generates record embeddings from a JSONL export and writes
// them to the ANN backend and the brute-force table.
package indexing

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain"
	dombatch "github.com/kailas-cloud/aisearch/internal/domain/batch"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
	"github.com/kailas-cloud/aisearch/internal/repository/table"
)

// DefaultBatchSize is the number of records embedded per provider call.
const DefaultBatchSize = 64

// records can carry long descriptions
const maxLineSize = 4 << 20

// Target selects where generated embeddings go.
type Target int

// Targets.
const (
	TargetAll Target = iota
	TargetIndex
	TargetTable
)

func (t Target) index() bool { return t == TargetAll || t == TargetIndex }
func (t Target) table() bool { return t == TargetAll || t == TargetTable }

// Service runs record embedding generation.
type Service struct {
	fs        afero.Fs
	embed     Embedder
	records   RecordWriter
	tables    table.Source
	holder    TableSwapper
	batchSize int
	logger    *zap.Logger
}

// New creates the service. records, tables and holder may be nil when the
// matching target is not used.
func New(
	fsys afero.Fs, embed Embedder,
	records RecordWriter, tables table.Source, holder TableSwapper,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fs: fsys, embed: embed,
		records: records, tables: tables, holder: holder,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
}

// WithBatchSize configures the embedding batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// run is the state of one Generate call.
type run struct {
	target  Target
	pending []domrec.Record
	results []dombatch.Result
	entries []table.Entry
	total   int
}

// Generate reads the export at path, embeds every valid record and writes the
// vectors to target. Malformed or empty records are reported per item; an
// embedding or backend failure aborts the job and returns what was done so far.
func (s *Service) Generate(ctx context.Context, path string, target Target) (dombatch.Summary, error) {
	if target.index() && s.records == nil {
		return dombatch.Summary{}, fmt.Errorf("%w: no ANN backend configured", domain.ErrServiceUnavailable)
	}
	if target.table() && s.tables == nil {
		return dombatch.Summary{}, fmt.Errorf("%w: no table source configured", domain.ErrServiceUnavailable)
	}

	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dombatch.Summary{}, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return dombatch.Summary{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	start := time.Now()
	r := &run{target: target}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		r.total++

		rec, err := domrec.ParseLine(line)
		if err == nil && rec.EmbeddingText() == "" {
			err = domain.BadInput("record %s has neither title nor description", rec.ID)
		}
		if err != nil {
			id := fmt.Sprintf("line %d", lineNo)
			if rec.ID != "" {
				id = rec.ID
			}
			s.logger.Warn("Skipping record", zap.String("item", id), zap.Error(err))
			r.results = append(r.results, dombatch.NewError(id, err))
			continue
		}

		r.pending = append(r.pending, rec)
		if len(r.pending) >= s.batchSize {
			if err := s.flush(ctx, r); err != nil {
				return s.summary(r, 0), err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return s.summary(r, 0), fmt.Errorf("read %s: %w", path, err)
	}
	if err := s.flush(ctx, r); err != nil {
		return s.summary(r, 0), err
	}

	var size int64
	if target.table() {
		if size, err = s.writeTable(ctx, r.entries); err != nil {
			return s.summary(r, 0), err
		}
	}

	sum := s.summary(r, size)
	s.logger.Info("Embedding generation finished",
		zap.Int("total", sum.TotalRecords),
		zap.Int("generated", sum.Generated),
		zap.Int("errors", sum.Errors),
		zap.Duration("took", time.Since(start)),
	)
	return sum, nil
}

// flush embeds and stores the pending records. On failure every pending
// record is marked failed.
func (s *Service) flush(ctx context.Context, r *run) error {
	if len(r.pending) == 0 {
		return nil
	}
	batch := r.pending
	r.pending = nil

	fail := func(err error) error {
		for _, rec := range batch {
			r.results = append(r.results, dombatch.NewError(rec.ID, err))
		}
		return err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	texts := make([]string, len(batch))
	for i, rec := range batch {
		texts[i] = rec.EmbeddingText()
	}
	vecs, err := s.embed.EmbedBatch(ctx, texts)
	if err != nil {
		s.logger.Error("Embedding batch failed", zap.Int("size", len(batch)), zap.Error(err))
		return fail(fmt.Errorf("embed batch: %w", err))
	}

	items := make([]domrec.Embedded, len(batch))
	for i, rec := range batch {
		items[i] = domrec.Embedded{Record: rec, Vector: vecs[i]}
	}

	if r.target.index() {
		if err := s.records.UpsertMulti(ctx, items); err != nil {
			s.logger.Error("Record upsert failed", zap.Int("size", len(items)), zap.Error(err))
			return fail(fmt.Errorf("upsert records: %w", err))
		}
	}
	if r.target.table() {
		r.entries = append(r.entries, items...)
	}
	for _, rec := range batch {
		r.results = append(r.results, dombatch.NewOK(rec.ID))
	}

	s.logger.Info("Embedded batch", zap.Int("size", len(batch)), zap.Int("done", len(r.results)))
	return nil
}

// writeTable persists the table and swaps it into the running holder.
func (s *Service) writeTable(ctx context.Context, entries []table.Entry) (int64, error) {
	size, err := s.tables.Save(ctx, entries)
	if err != nil {
		s.logger.Error("Table write failed", zap.String("source", s.tables.Name()), zap.Error(err))
		return 0, fmt.Errorf("save table: %w", err)
	}
	if s.holder != nil {
		s.holder.Swap(table.New(entries, s.tables.Name()))
	}
	return size, nil
}

func (s *Service) summary(r *run, size int64) dombatch.Summary {
	ok, failed := dombatch.Count(r.results)
	sum := dombatch.Summary{
		TotalRecords: r.total,
		Generated:    ok,
		Errors:       failed,
		Failures:     dombatch.Failures(r.results),
	}
	if r.target.table() && s.tables != nil {
		sum.FilePath = s.tables.Name()
		sum.FileSizeMB = math.Round(float64(size)/(1024*1024)*100) / 100
	}
	return sum
}
