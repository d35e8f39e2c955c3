package search

import (
	"context"
	"errors"
	"sync"

	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
	"github.com/kailas-cloud/aisearch/internal/domain/search/result"
	"github.com/kailas-cloud/aisearch/internal/repository/table"
)

// --- Mocks ---

type mockEmbedder struct {
	vec   []float32
	err   error
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.texts = append(m.texts, text)
	return m.vec, m.err
}

type mockRecords struct {
	knn      []domrec.Scored
	knnErr   error
	blockKNN bool
	lastK    int

	rec    domrec.Record
	vec    []float32
	getErr error
}

func (m *mockRecords) KNN(ctx context.Context, _ []float32, k int) ([]domrec.Scored, error) {
	m.lastK = k
	if m.blockKNN {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.knn, m.knnErr
}

func (m *mockRecords) Get(_ context.Context, _ string) (domrec.Record, []float32, error) {
	return m.rec, m.vec, m.getErr
}

type mockPassages struct {
	exists    bool
	existsErr error
	knn       []chunk.Scored
	knnErr    error
	calls     int
}

func (m *mockPassages) IndexExists(_ context.Context) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockPassages) KNN(_ context.Context, _ []float32, _ int) ([]chunk.Scored, error) {
	m.calls++
	return m.knn, m.knnErr
}

type mockSummarizer struct {
	mu     sync.Mutex
	out    string
	failOn map[string]bool
	calls  []string
}

func (m *mockSummarizer) Summarize(_ context.Context, text string, _, _ int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, text)
	if m.failOn[text] {
		return "", errors.New("summarizer crashed")
	}
	return m.out, nil
}

// --- Helpers ---

func ptr[T any](v T) *T { return &v }

func entry(id, title string, vec ...float32) table.Entry {
	return table.Entry{Record: domrec.Record{ID: id, Title: title}, Vector: vec}
}

func holder(entries ...table.Entry) *table.Holder {
	if len(entries) == 0 {
		return table.NewHolder(nil)
	}
	return table.NewHolder(table.New(entries, "test.json"))
}

func scored(id, title string, s float64) domrec.Scored {
	return domrec.Scored{Record: domrec.Record{ID: id, Title: title}, Score: s}
}

func hitIDs(hits []result.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.RecordID
	}
	return out
}

var errBoom = errors.New("boom")
