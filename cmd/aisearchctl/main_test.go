package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dombatch "github.com/kailas-cloud/aisearch/internal/domain/batch"
	"github.com/kailas-cloud/aisearch/internal/domain/query"
	"github.com/kailas-cloud/aisearch/internal/domain/search/result"
	"github.com/kailas-cloud/aisearch/internal/domain/status"
	"github.com/kailas-cloud/aisearch/internal/usecase/explain"
	"github.com/kailas-cloud/aisearch/internal/usecase/passage"
)

func init() {
	color.NoColor = true
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}
	return app.Run(append([]string{"aisearchctl"}, args...))
}

func TestCommandFlags(t *testing.T) {
	t.Run("input is required", func(t *testing.T) {
		err := run(t, "generate-embeddings")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input")
	})

	t.Run("table-only and index-only conflict", func(t *testing.T) {
		err := run(t, "generate-embeddings", "--input", "records.jsonl", "--table-only", "--index-only")
		assert.ErrorIs(t, err, errTargetConflict)
	})

	t.Run("negative offset", func(t *testing.T) {
		err := run(t, "index-passages", "--input", "chunks.jsonl", "--offset", "-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "offset")
	})

	t.Run("test-query needs a query", func(t *testing.T) {
		err := run(t, "test-query")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "usage")
	})

	t.Run("explain needs two records", func(t *testing.T) {
		err := run(t, "explain", "rec-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "usage")
	})
}

func TestPrintStatus(t *testing.T) {
	loaded, count := true, 42
	var buf bytes.Buffer
	printStatus(&buf, status.Report{
		Status:           status.Degraded,
		Mode:             "table",
		ModelLoaded:      true,
		EmbeddingsLoaded: &loaded,
		EmbeddingsCount:  &count,
		EmbeddingsFile:   "data/embeddings.json",
		Checks:           map[string]status.CheckResult{"table": status.CheckOK, "backend": status.CheckError},
	})

	out := buf.String()
	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "count=42")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("backend")), bytes.Index(buf.Bytes(), []byte("check table")))
}

func TestPrintSearch(t *testing.T) {
	sem, meta := 0.8, 0.5
	res := result.NewSearch("old maps", query.Parse("old maps"), []result.Hit{{
		RecordID:      "rec-1",
		Title:         "Atlas of the World",
		Creators:      []string{"Mercator"},
		Score:         0.71,
		SemanticScore: &sem,
		MetadataScore: &meta,
	}})

	var buf bytes.Buffer
	printSearch(&buf, res)

	out := buf.String()
	assert.Contains(t, out, `Query: "old maps"`)
	assert.Contains(t, out, "Atlas of the World [rec-1]")
	assert.Contains(t, out, "semantic 0.8000, metadata 0.5000")
}

func TestPrintSearch_Empty(t *testing.T) {
	var buf bytes.Buffer
	printSearch(&buf, result.NewSearch("nothing", query.Parse("nothing"), nil))
	assert.Contains(t, buf.String(), "No results")
}

func TestPrintExplain(t *testing.T) {
	var buf bytes.Buffer
	printExplain(&buf, &explain.Report{
		RecordA: "a", RecordB: "b", PassagesA: 2, PassagesB: 3,
		TopPairs: []explain.Pair{{
			Score: 0.9,
			A:     explain.Passage{ChunkID: "a_0", Index: 0, Text: "the whale"},
			B:     explain.Passage{ChunkID: "b_1", Index: 1, Text: "a whale hunt"},
		}},
		Aggregate: explain.Aggregate{MeanTop: 0.9, Median: 0.5, Min: 0.1, Max: 0.9, PairCount: 6},
		Themes:    []explain.Theme{{Term: "whale", Weight: 0.7}},
	})

	out := buf.String()
	assert.Contains(t, out, "a vs b")
	assert.Contains(t, out, "2 x 3, 6 pairs")
	assert.Contains(t, out, "a#0 / b#1")
	assert.Contains(t, out, "themes: whale (0.700)")
}

func TestPrintSummary_Failures(t *testing.T) {
	failures := make([]dombatch.Failure, 25)
	for i := range failures {
		failures[i] = dombatch.Failure{ID: "line", Error: "bad input"}
	}
	var buf bytes.Buffer
	printSummary(&buf, dombatch.Summary{TotalRecords: 30, Generated: 5, Errors: 25, Failures: failures})

	out := buf.String()
	assert.Contains(t, out, "Embedded 5 of 30 records (25 errors)")
	assert.Contains(t, out, "... and 5 more")
}

func TestPrintJobReport(t *testing.T) {
	var buf bytes.Buffer
	printJobReport(&buf, passage.Report{Batches: 2, Processed: 8, Indexed: 8, NextOffset: 8, TotalLines: 12})
	assert.Contains(t, buf.String(), "--offset 8")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "абв…", clip("абвгд", 3))
}
