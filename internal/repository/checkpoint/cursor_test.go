package checkpoint

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_PersistsAcrossOpen(t *testing.T) {
	fs := afero.NewMemMapFs()

	tr, err := Open(fs, "data/passages.cursor")
	require.NoError(t, err)
	assert.Equal(t, 0, tr.ResumeOffset("chunks.jsonl"))

	require.NoError(t, tr.Start("run-1", "chunks.jsonl", 0))
	require.NoError(t, tr.Advance(100, 100, 98, 2, false))
	require.NoError(t, tr.Advance(200, 100, 100, 0, false))

	again, err := Open(fs, "data/passages.cursor")
	require.NoError(t, err)
	c := again.Get()
	assert.Equal(t, "run-1", c.RunID)
	assert.Equal(t, 200, c.Offset)
	assert.Equal(t, 200, c.TotalProcessed)
	assert.Equal(t, 198, c.TotalIndexed)
	assert.Equal(t, 2, c.TotalFailed)
	assert.Equal(t, 200, again.ResumeOffset("chunks.jsonl"))
	assert.Equal(t, 0, again.ResumeOffset("other.jsonl"))
}

func TestTracker_CompleteResumesFromZero(t *testing.T) {
	fs := afero.NewMemMapFs()
	tr, err := Open(fs, "c.json")
	require.NoError(t, err)
	require.NoError(t, tr.Start("r", "f", 0))
	require.NoError(t, tr.Advance(10, 10, 10, 0, true))
	assert.Equal(t, 0, tr.ResumeOffset("f"))
}

func TestOpen_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "c.json", []byte("{"), 0o600))
	_, err := Open(fs, "c.json")
	assert.Error(t, err)
}
