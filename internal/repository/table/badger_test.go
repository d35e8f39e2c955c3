package table

import (
	"context"
	"math"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

func openMem(t *testing.T) *BadgerSource {
	t.Helper()
	src, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestBadgerSource_Empty(t *testing.T) {
	src := openMem(t)
	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.Equal(t, "badger:memory", src.Name())
}

func TestBadgerSource_SaveReplaces(t *testing.T) {
	src := openMem(t)
	ctx := context.Background()

	_, err := src.Save(ctx, []Entry{entry("old", "Gone", 1, 1)})
	require.NoError(t, err)

	_, err = src.Save(ctx, []Entry{entry("b", "B", 0, 1), entry("a", "A", 1, 0)})
	require.NoError(t, err)

	tbl, err := src.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	_, ok := tbl.Get("old")
	assert.False(t, ok)
	a, ok := tbl.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, a.Vector)
}

func TestBadgerSource_FailedSaveKeepsTable(t *testing.T) {
	src := openMem(t)
	ctx := context.Background()

	_, err := src.Save(ctx, []Entry{entry("a", "A", 1, 0), entry("b", "B", 0, 1)})
	require.NoError(t, err)

	// NaN does not encode as JSON
	_, err = src.Save(ctx, []Entry{entry("c", "C", 1, 0), entry("d", "D", float32(math.NaN()), 0)})
	require.Error(t, err)

	tbl, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	_, ok := tbl.Get("c")
	assert.False(t, ok, "staged entries must not become visible")

	// the next good save still goes through
	_, err = src.Save(ctx, []Entry{entry("e", "E", 1, 1)})
	require.NoError(t, err)
	tbl, err = src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, 1, countKeys(t, src), "only the live generation stays on disk")
}

func countKeys(t *testing.T, src *BadgerSource) int {
	t.Helper()
	n := 0
	err := src.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerKeyPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}
