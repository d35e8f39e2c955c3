package explain

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/aisearch/internal/domain"
	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
)

type mockLister struct {
	byRecord  map[string][]chunk.Chunk
	err       error
	lastLimit int
}

func (m *mockLister) ListByRecord(_ context.Context, recordID string, limit int) ([]chunk.Chunk, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	cs := m.byRecord[recordID]
	if len(cs) > limit {
		cs = cs[:limit]
	}
	return cs, nil
}

func passage(id string, idx int, text string, vec ...float32) chunk.Chunk {
	return chunk.Chunk{ID: id, RecordID: "r", Index: idx, Text: text, Embedding: vec}
}

func fixture() *mockLister {
	return &mockLister{byRecord: map[string][]chunk.Chunk{
		// returned out of index order on purpose
		"a": {
			passage("a1", 1, "the whale hunt at sea", 0, 1),
			passage("a0", 0, "the whale hunt began", 1, 0),
		},
		"b": {
			passage("b0", 0, "a whale hunt story", 1, 0),
			passage("b1", 1, "quiet morning at home", 1, 1),
			passage("b2", 2, "stormy sea voyage", 0, 1),
		},
	}}
}

func TestExplain_PairsAndAggregate(t *testing.T) {
	svc := New(Config{TopN: 2}, fixture(), nil)

	rep, err := svc.Explain(context.Background(), "a", "b", Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.PassagesA)
	assert.Equal(t, 3, rep.PassagesB)
	require.Len(t, rep.TopPairs, 2)

	// a0·b0 and a1·b2 are both 1.0; a0 has the lower chunk index
	assert.Equal(t, "a0", rep.TopPairs[0].A.ChunkID)
	assert.Equal(t, "b0", rep.TopPairs[0].B.ChunkID)
	assert.Equal(t, "a1", rep.TopPairs[1].A.ChunkID)
	assert.Equal(t, "b2", rep.TopPairs[1].B.ChunkID)
	assert.InDelta(t, 1.0, rep.TopPairs[0].Score, 1e-9)

	// scores: 1, 1, 0.7071, 0.7071, 0, 0
	agg := rep.Aggregate
	assert.Equal(t, 6, agg.PairCount)
	assert.InDelta(t, 1.0, agg.MeanTop, 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, agg.Median, 1e-6)
	assert.InDelta(t, 0.0, agg.Min, 1e-9)
	assert.InDelta(t, 1.0, agg.Max, 1e-9)
}

func TestExplain_OddMedian(t *testing.T) {
	lister := &mockLister{byRecord: map[string][]chunk.Chunk{
		"a": {passage("a0", 0, "x", 1, 0)},
		"b": {passage("b0", 0, "x", 1, 0), passage("b1", 1, "x", 1, 1), passage("b2", 2, "x", 0, 1)},
	}}
	rep, err := New(Config{}, lister, nil).Explain(context.Background(), "a", "b", Options{})
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt2, rep.Aggregate.Median, 1e-6)
}

func TestExplain_TopNClamped(t *testing.T) {
	svc := New(Config{}, fixture(), nil)

	rep, err := svc.Explain(context.Background(), "a", "b", Options{TopN: 50})
	require.NoError(t, err)
	assert.Len(t, rep.TopPairs, 6)
	assert.InDelta(t, (1+1+2/math.Sqrt2)/6, rep.Aggregate.MeanTop, 1e-6)
}

func TestExplain_MaxPassagesPassedDown(t *testing.T) {
	lister := fixture()
	svc := New(Config{MaxPassages: 2}, lister, nil)

	rep, err := svc.Explain(context.Background(), "a", "b", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, lister.lastLimit)
	assert.Equal(t, 2, rep.PassagesB)
}

func TestExplain_Errors(t *testing.T) {
	t.Run("blank id", func(t *testing.T) {
		_, err := New(Config{}, fixture(), nil).Explain(context.Background(), "a", " ", Options{})
		assert.True(t, errors.Is(err, domain.ErrBadInput))
	})
	t.Run("no passages", func(t *testing.T) {
		_, err := New(Config{}, fixture(), nil).Explain(context.Background(), "a", "zzz", Options{})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
	t.Run("backend error", func(t *testing.T) {
		lister := fixture()
		lister.err = domain.ErrServiceUnavailable
		_, err := New(Config{}, lister, nil).Explain(context.Background(), "a", "b", Options{})
		assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	})
	t.Run("dimension mismatch only", func(t *testing.T) {
		lister := &mockLister{byRecord: map[string][]chunk.Chunk{
			"a": {passage("a0", 0, "x", 1, 0)},
			"b": {passage("b0", 0, "x", 1, 0, 0)},
		}}
		_, err := New(Config{}, lister, nil).Explain(context.Background(), "a", "b", Options{})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestExplain_Themes(t *testing.T) {
	svc := New(Config{TopN: 2}, fixture(), nil)

	rep, err := svc.Explain(context.Background(), "a", "b", Options{TopTerms: 3})
	require.NoError(t, err)

	terms := make([]string, len(rep.Themes))
	for i, th := range rep.Themes {
		terms[i] = th.Term
	}
	assert.Equal(t, []string{"hunt", "whale", "whale hunt"}, terms)
}
