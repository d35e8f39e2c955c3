// Package passage indexes passage chunks from a JSONL file in resumable batches.
package passage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain"
	dombatch "github.com/kailas-cloud/aisearch/internal/domain/batch"
	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
	"github.com/kailas-cloud/aisearch/internal/metrics"
)

// Defaults.
const (
	DefaultBatchSize = 100
	DefaultWorkers   = 4
)

const maxLineSize = 1 << 20

// Config controls batch sizing and embedding concurrency.
type Config struct {
	BatchSize int
	Workers   int
}

// Service runs passage batches and chains them into jobs.
type Service struct {
	fs         afero.Fs
	embed      Embedder
	chunks     ChunkWriter
	bus        Bus
	checkpoint Checkpoint
	pool       *ants.Pool
	batchSize  int
	logger     *zap.Logger
}

// New creates the service with its embedding pool. Call Close to release it.
// bus and checkpoint may be nil; Run then fails and resumes from zero.
func New(
	cfg Config, fsys afero.Fs, embed Embedder, chunks ChunkWriter,
	bus Bus, checkpoint Checkpoint, logger *zap.Logger,
) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	return &Service{
		fs: fsys, embed: embed, chunks: chunks,
		bus: bus, checkpoint: checkpoint,
		pool:      pool,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}, nil
}

// Close releases the worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// ResumeOffset is where a run over file should start, per the checkpoint.
func (s *Service) ResumeOffset(file string) int {
	if s.checkpoint == nil {
		return 0
	}
	return s.checkpoint.ResumeOffset(file)
}

// RunBatch indexes at most batchSize lines of file starting at line start.
// A malformed line or a failed chunk write counts as an error; an embedding
// failure aborts the batch so the caller can retry it.
func (s *Service) RunBatch(ctx context.Context, file string, batchSize, start int) (dombatch.Progress, error) {
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	if start < 0 {
		return dombatch.Progress{}, domain.BadInput("offset must be >= 0")
	}

	lines, total, err := s.readWindow(file, start, batchSize)
	if err != nil {
		return dombatch.Progress{}, err
	}
	if len(lines) == 0 {
		return dombatch.NewProgress(start, 0, 0, 0, total), nil
	}

	var results []dombatch.Result
	chunks := make([]chunk.Chunk, 0, len(lines))
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		c, err := chunk.ParseLine(line)
		if err != nil {
			id := fmt.Sprintf("line %d", start+i+1)
			s.logger.Warn("Skipping chunk", zap.String("item", id), zap.Error(err))
			results = append(results, dombatch.NewError(id, err))
			continue
		}
		chunks = append(chunks, c)
	}

	if err := s.embedAll(ctx, chunks); err != nil {
		s.logger.Error("Passage embedding failed",
			zap.String("file", file), zap.Int("offset", start), zap.Error(err))
		return dombatch.Progress{}, err
	}
	results = append(results, s.store(ctx, chunks)...)

	indexed, failed := dombatch.Count(results)
	metrics.PassageBatchTotal.WithLabelValues("indexed").Add(float64(indexed))
	metrics.PassageBatchTotal.WithLabelValues("error").Add(float64(failed))

	p := dombatch.NewProgress(start, len(lines), indexed, failed, total)
	p.Failures = dombatch.Failures(results)
	return p, nil
}

// readWindow returns lines [start, start+n) and the total line count.
func (s *Service) readWindow(file string, start, n int) ([][]byte, int, error) {
	f, err := s.fs.Open(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", domain.ErrNotFound, file)
		}
		return nil, 0, fmt.Errorf("open %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	var window [][]byte
	total := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if total >= start && total < start+n {
			window = append(window, bytes.Clone(bytes.TrimSpace(scanner.Bytes())))
		}
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", file, err)
	}
	return window, total, nil
}

// embedAll fills chunk embeddings through the pool. The first error cancels
// the remaining work.
func (s *Service) embedAll(ctx context.Context, chunks []chunk.Chunk) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := range chunks {
		c := &chunks[i]
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			vec, err := s.embed.Embed(ctx, c.Text)
			if err != nil {
				fail(fmt.Errorf("embed chunk %s: %w", c.ID, err))
				return
			}
			c.Embedding = vec
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit chunk %s: %w", c.ID, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	// parent cancelled: skipped tasks left chunks without embeddings
	return ctx.Err()
}

// store writes the batch in one call and falls back to per-chunk writes on failure.
func (s *Service) store(ctx context.Context, chunks []chunk.Chunk) []dombatch.Result {
	results := make([]dombatch.Result, 0, len(chunks))
	if len(chunks) == 0 {
		return results
	}
	err := s.chunks.UpsertMulti(ctx, chunks)
	if err == nil {
		for _, c := range chunks {
			results = append(results, dombatch.NewOK(c.ID))
		}
		return results
	}
	s.logger.Warn("Bulk chunk write failed, retrying one by one", zap.Error(err))

	for _, c := range chunks {
		if err := s.chunks.UpsertMulti(ctx, []chunk.Chunk{c}); err != nil {
			results = append(results, dombatch.NewError(c.ID, err))
			continue
		}
		results = append(results, dombatch.NewOK(c.ID))
	}
	return results
}
