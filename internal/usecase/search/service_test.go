package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/aisearch/internal/domain"
	"github.com/kailas-cloud/aisearch/internal/domain/chunk"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
	"github.com/kailas-cloud/aisearch/internal/domain/search/request"
	"github.com/kailas-cloud/aisearch/internal/domain/search/score"
	"github.com/kailas-cloud/aisearch/internal/repository/table"
)

func searchReq(t *testing.T, q string, limit *int, summaries bool) request.Search {
	t.Helper()
	r, err := request.NewSearch(q, limit, summaries, nil, nil, score.DefaultWeights())
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	return r
}

func tableService(h *table.Holder, emb *mockEmbedder) *Service {
	return New(Config{}, NewTableRetriever(h, nil, nil), emb, nil, nil, nil)
}

// "a tragic tale" -> terms {tragedy, tragic}
func tragicTable() *table.Holder {
	return holder(
		entry("r1", "Comedy Hour", 1, 0),
		entry("r2", "A Tragic Tragedy", 0.6, 0.8),
		entry("r3", "Neutral", 0, 1),
	)
}

func TestSearch_TableHybridRanking(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc := tableService(tragicTable(), emb)

	res, err := svc.Search(context.Background(), searchReq(t, "a tragic tale", nil, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := hitIDs(res.Results); !reflect.DeepEqual(got, []string{"r2", "r1", "r3"}) {
		t.Fatalf("order = %v, want [r2 r1 r3]", got)
	}
	if res.Total != 3 {
		t.Errorf("Total = %d, want 3", res.Total)
	}

	top := res.Results[0]
	if top.SemanticScore == nil || top.MetadataScore == nil {
		t.Fatal("table mode must report component scores")
	}
	if math.Abs(*top.SemanticScore-0.6) > 1e-6 || *top.MetadataScore != 1 {
		t.Errorf("components = %v / %v", *top.SemanticScore, *top.MetadataScore)
	}
	if math.Abs(top.Score-0.72) > 1e-6 {
		t.Errorf("hybrid = %v, want 0.72", top.Score)
	}
	if res.Parsed.Strategy != "hybrid" {
		t.Errorf("strategy = %q", res.Parsed.Strategy)
	}
}

func TestSearch_TableWeightsOverride(t *testing.T) {
	svc := tableService(tragicTable(), &mockEmbedder{vec: []float32{1, 0}})

	req, err := request.NewSearch("a tragic tale", nil, false, ptr(1.0), ptr(0.0), score.DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	res, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Results[0].RecordID != "r1" {
		t.Errorf("pure semantic weights should rank r1 first, got %v", hitIDs(res.Results))
	}
}

func TestSearch_TableTiesKeepIDOrder(t *testing.T) {
	h := holder(
		entry("c", "Same", 1, 0),
		entry("a", "Same", 1, 0),
		entry("b", "Same", 1, 0),
	)
	svc := tableService(h, &mockEmbedder{vec: []float32{1, 0}})

	for range 3 {
		res, err := svc.Search(context.Background(), searchReq(t, "anything", nil, false))
		if err != nil {
			t.Fatal(err)
		}
		if got := hitIDs(res.Results); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
			t.Fatalf("order = %v, want [a b c]", got)
		}
	}
}

func TestSearch_TableNotReady(t *testing.T) {
	svc := tableService(holder(), &mockEmbedder{vec: []float32{1, 0}})

	res, err := svc.Search(context.Background(), searchReq(t, "whales", nil, false))
	if !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if domain.KindOf(err) != domain.KindServiceUnavailable {
		t.Errorf("kind = %v", domain.KindOf(err))
	}
	if res != nil {
		t.Errorf("expected nil result")
	}
}

func TestSearch_TableSkipsWrongDimension(t *testing.T) {
	h := holder(entry("ok", "Fine", 1, 0), entry("bad", "Broken", 1, 0, 0))
	svc := tableService(h, &mockEmbedder{vec: []float32{1, 0}})

	res, err := svc.Search(context.Background(), searchReq(t, "x", nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if got := hitIDs(res.Results); !reflect.DeepEqual(got, []string{"ok"}) {
		t.Errorf("got %v", got)
	}
}

func TestSearch_LimitResolution(t *testing.T) {
	var entries []table.Entry
	for i := range 12 {
		entries = append(entries, entry(fmt.Sprintf("r%02d", i), "T", 1, float32(i)/10))
	}
	svc := tableService(holder(entries...), &mockEmbedder{vec: []float32{1, 0}})

	tests := []struct {
		name  string
		q     string
		limit *int
		want  int
	}{
		{"default", "books", nil, 10},
		{"parsed", "show me 3 books", nil, 3},
		{"explicit beats parsed", "show me 3 books", ptr(5), 5},
		{"number word", "two novels please", nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Search(context.Background(), searchReq(t, tt.q, tt.limit, false))
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Results) != tt.want || res.Total != tt.want {
				t.Errorf("len = %d total = %d, want %d", len(res.Results), res.Total, tt.want)
			}
		})
	}
}

func TestSearch_LimitCappedByMax(t *testing.T) {
	var entries []table.Entry
	for i := range 8 {
		entries = append(entries, entry(fmt.Sprintf("r%d", i), "T", 1, 0))
	}
	svc := New(Config{Limits: request.Limits{Default: 10, Max: 4}},
		NewTableRetriever(holder(entries...), nil, nil), &mockEmbedder{vec: []float32{1, 0}}, nil, nil, nil)

	res, err := svc.Search(context.Background(), searchReq(t, "show me 7 books", ptr(6), false))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 4 {
		t.Errorf("len = %d, want 4", len(res.Results))
	}
}

func TestSearch_EmbedsSemanticQuery(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc := tableService(tragicTable(), emb)

	_, _ = svc.Search(context.Background(), searchReq(t, "Show me 3 books with female protagonists", nil, false))
	_, _ = svc.Search(context.Background(), searchReq(t, "  show me  ", nil, false))

	want := []string{"books with female protagonists", "show me"}
	if !reflect.DeepEqual(emb.texts, want) {
		t.Errorf("embedded %q, want %q", emb.texts, want)
	}
}

func TestSearch_EmbedError(t *testing.T) {
	emb := &mockEmbedder{err: fmt.Errorf("%w: weights missing", domain.ErrModelUnavailable)}
	svc := tableService(tragicTable(), emb)

	_, err := svc.Search(context.Background(), searchReq(t, "q", nil, false))
	if domain.KindOf(err) != domain.KindModelUnavailable {
		t.Fatalf("expected model unavailable, got %v", err)
	}
}

func TestSearch_ANNUsesIndexScore(t *testing.T) {
	recs := &mockRecords{knn: []domrec.Scored{
		scored("a", "Plain", 0.9),
		scored("b", "A Tragic Story", 0.8),
	}}
	svc := New(Config{}, NewANNRetriever(recs, 0, false, nil), &mockEmbedder{vec: []float32{1, 0}}, nil, nil, nil)

	res, err := svc.Search(context.Background(), searchReq(t, "a tragic tale", ptr(2), false))
	if err != nil {
		t.Fatal(err)
	}
	if recs.lastK != 2 {
		t.Errorf("k = %d, want 2", recs.lastK)
	}
	if got := hitIDs(res.Results); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("order = %v", got)
	}
	if res.Results[0].Score != 0.9 || res.Results[0].SemanticScore != nil || res.Results[0].MetadataScore != nil {
		t.Errorf("ANN hit must carry the raw index score only: %+v", res.Results[0])
	}
}

func TestSearch_ANNBlend(t *testing.T) {
	recs := &mockRecords{knn: []domrec.Scored{
		scored("a", "Plain", 0.9),
		scored("b", "A Tragic Tragedy", 0.8),
	}}
	svc := New(Config{}, NewANNRetriever(recs, 0, true, nil), &mockEmbedder{vec: []float32{1, 0}}, nil, nil, nil)

	res, err := svc.Search(context.Background(), searchReq(t, "a tragic tale", nil, false))
	if err != nil {
		t.Fatal(err)
	}
	// a: 0.63, b: 0.56 + 0.3
	if got := hitIDs(res.Results); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("order = %v", got)
	}
	if res.Results[0].MetadataScore == nil || *res.Results[0].MetadataScore != 1 {
		t.Errorf("blended hit must report metadata score")
	}
}

func TestSearch_ANNErrorDegradesToEmpty(t *testing.T) {
	recs := &mockRecords{knnErr: errBoom}
	svc := New(Config{}, NewANNRetriever(recs, 0, false, nil), &mockEmbedder{vec: []float32{1, 0}}, nil, nil, nil)

	res, err := svc.Search(context.Background(), searchReq(t, "whales", nil, false))
	if err != nil {
		t.Fatalf("expected degrade, got %v", err)
	}
	if res.Results == nil || len(res.Results) != 0 || res.Total != 0 {
		t.Errorf("expected empty results, got %+v", res)
	}
}

func TestSearch_ANNEmptyIndex(t *testing.T) {
	svc := New(Config{}, NewANNRetriever(&mockRecords{}, 0, false, nil), &mockEmbedder{vec: []float32{1, 0}}, nil, nil, nil)

	res, err := svc.Search(context.Background(), searchReq(t, "whales", nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 || len(res.Results) != 0 {
		t.Errorf("expected empty results")
	}
}

func TestSearch_ANNTimeout(t *testing.T) {
	recs := &mockRecords{blockKNN: true}
	svc := New(Config{}, NewANNRetriever(recs, 10*time.Millisecond, false, nil),
		&mockEmbedder{vec: []float32{1, 0}}, nil, nil, nil)

	_, err := svc.Search(context.Background(), searchReq(t, "whales", nil, false))
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if domain.KindOf(err) != domain.KindTimeout {
		t.Errorf("kind = %v", domain.KindOf(err))
	}
}

func TestSearch_Summaries(t *testing.T) {
	long := strings.Repeat("word ", 120)
	failing := strings.Repeat("fail ", 120)
	h := table.NewHolder(table.New([]table.Entry{
		{Record: domrec.Record{ID: "a", Title: "Long", Description: long}, Vector: []float32{1, 0}},
		{Record: domrec.Record{ID: "b", Title: "Short", Description: "A brief blurb."}, Vector: []float32{1, 0}},
		{Record: domrec.Record{ID: "c", Title: "Bare"}, Vector: []float32{1, 0}},
		{Record: domrec.Record{ID: "d", Title: "Broken", Description: failing}, Vector: []float32{1, 0}},
	}, "t"))
	sum := &mockSummarizer{out: "summary", failOn: map[string]bool{strings.TrimSpace(failing): true}}
	svc := New(Config{}, NewTableRetriever(h, nil, nil), &mockEmbedder{vec: []float32{1, 0}}, sum, nil, nil)

	res, err := svc.Search(context.Background(), searchReq(t, "anything", nil, true))
	if err != nil {
		t.Fatalf("summary failure must not abort search: %v", err)
	}

	got := map[string]*string{}
	for _, hit := range res.Results {
		got[hit.RecordID] = hit.Summary
	}
	if got["a"] == nil || *got["a"] != "summary" {
		t.Errorf("a: expected generated summary")
	}
	if got["b"] == nil || *got["b"] != "A brief blurb." {
		t.Errorf("b: expected verbatim description")
	}
	if got["c"] == nil || *got["c"] != "Bare" {
		t.Errorf("c: expected title fallback")
	}
	if got["d"] != nil {
		t.Errorf("d: expected absent summary after failure, got %q", *got["d"])
	}
	if len(sum.calls) != 2 {
		t.Errorf("summarizer calls = %d, want 2", len(sum.calls))
	}
}

func TestSearch_NoSummariesUnlessAsked(t *testing.T) {
	sum := &mockSummarizer{out: "x"}
	svc := New(Config{}, NewTableRetriever(tragicTable(), nil, nil), &mockEmbedder{vec: []float32{1, 0}}, sum, nil, nil)

	res, err := svc.Search(context.Background(), searchReq(t, "q", nil, false))
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range res.Results {
		if h.Summary != nil {
			t.Errorf("unexpected summary on %s", h.RecordID)
		}
	}
	if len(sum.calls) != 0 {
		t.Errorf("summarizer must not be called")
	}
}

func TestSearch_AttachesPassages(t *testing.T) {
	ps := &mockPassages{exists: true, knn: []chunk.Scored{
		{Chunk: chunk.Chunk{ID: "c1", RecordID: "r1", Text: "Call me Ishmael."}, Score: 0.7},
	}}
	svc := New(Config{PassagesEnabled: true}, NewTableRetriever(tragicTable(), nil, nil),
		&mockEmbedder{vec: []float32{1, 0}}, nil, ps, nil)

	res, err := svc.Search(context.Background(), searchReq(t, "q", nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Passages) != 0 || ps.calls != 0 {
		t.Fatalf("passages must be off by default")
	}

	res, err = svc.Search(context.Background(), searchReq(t, "q", nil, false).WithPassages(ptr(true)))
	if err != nil {
		t.Fatal(err)
	}
	if res.PassageTotal != 1 || res.Passages[0].ChunkID != "c1" || res.Passages[0].Title != "Untitled" {
		t.Errorf("unexpected passages %+v", res.Passages)
	}

	ps.knnErr = errBoom
	res, err = svc.Search(context.Background(), searchReq(t, "q", nil, false).WithPassages(ptr(true)))
	if err != nil {
		t.Fatalf("passage failure must not abort search: %v", err)
	}
	if res.Passages != nil || res.Total != 3 {
		t.Errorf("expected records without passages, got %+v", res)
	}
}

func TestSimilar_TableExcludesSource(t *testing.T) {
	h := holder(
		entry("a", "A", 1, 0),
		entry("b", "B", 0.9, 0.1),
		entry("c", "C", 0, 1),
	)
	svc := tableService(h, &mockEmbedder{})

	req, _ := request.NewSimilar("a", ptr(1), request.DefaultLimits())
	res, err := svc.Similar(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if got := hitIDs(res.Similar); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("similar = %v, want [b]", got)
	}
	if res.SourceTitle != "A" || res.RecordID != "a" || res.Total != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Similar[0].MetadataScore != nil {
		t.Errorf("similar does not fuse metadata")
	}
}

func TestSimilar_TableMissing(t *testing.T) {
	h := holder(entry("a", "A", 1, 0))

	svc := tableService(h, &mockEmbedder{})
	req, _ := request.NewSimilar("zzz", nil, request.DefaultLimits())
	if _, err := svc.Similar(context.Background(), req); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	recs := &mockRecords{rec: domrec.Record{ID: "zzz"}, getErr: fmt.Errorf("record zzz: %w", domain.ErrNotEmbedded)}
	svc = New(Config{}, NewTableRetriever(h, recs, nil), &mockEmbedder{}, nil, nil, nil)
	_, err := svc.Similar(context.Background(), req)
	if !errors.Is(err, domain.ErrNotEmbedded) {
		t.Errorf("expected ErrNotEmbedded, got %v", err)
	}
	if domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("kind = %v", domain.KindOf(err))
	}
}

func TestSimilar_TableUnembedded(t *testing.T) {
	h := holder(
		entry("a", "A", 1, 0),
		entry("b", "B", 0.9, 0.1),
		entry("w", "Wrong dim", 1, 0, 0),
		entry("x", "X"),
	)
	svc := tableService(h, &mockEmbedder{})

	for _, id := range []string{"x", "w"} {
		req, _ := request.NewSimilar(id, nil, request.DefaultLimits())
		res, err := svc.Similar(context.Background(), req)
		if !errors.Is(err, domain.ErrNotEmbedded) {
			t.Errorf("%s: expected ErrNotEmbedded, got err=%v res=%+v", id, err, res)
		}
		if domain.KindOf(err) != domain.KindNotFound {
			t.Errorf("%s: kind = %v", id, domain.KindOf(err))
		}
	}
}

func TestSimilar_ANN(t *testing.T) {
	recs := &mockRecords{
		rec: domrec.Record{ID: "x", Title: "Source"},
		vec: []float32{1, 0},
		knn: []domrec.Scored{scored("x", "Source", 1), scored("y", "Y", 0.9), scored("z", "Z", 0.8)},
	}
	svc := New(Config{}, NewANNRetriever(recs, 0, true, nil), &mockEmbedder{}, nil, nil, nil)

	req, _ := request.NewSimilar("x", ptr(2), request.DefaultLimits())
	res, err := svc.Similar(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if recs.lastK != 3 {
		t.Errorf("k = %d, want limit+1", recs.lastK)
	}
	if got := hitIDs(res.Similar); !reflect.DeepEqual(got, []string{"y", "z"}) {
		t.Errorf("similar = %v", got)
	}
}

func TestSimilar_ANNErrors(t *testing.T) {
	tests := []struct {
		name   string
		getErr error
		want   error
	}{
		{"unknown", fmt.Errorf("record q: %w", domain.ErrNotFound), domain.ErrNotFound},
		{"not embedded", fmt.Errorf("record q: %w", domain.ErrNotEmbedded), domain.ErrNotEmbedded},
		{"store down", errBoom, domain.ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := &mockRecords{getErr: tt.getErr}
			svc := New(Config{}, NewANNRetriever(recs, 0, false, nil), &mockEmbedder{}, nil, nil, nil)
			req, _ := request.NewSimilar("q", ptr(5), request.DefaultLimits())
			if _, err := svc.Similar(context.Background(), req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPassages(t *testing.T) {
	hit := chunk.Scored{Chunk: chunk.Chunk{
		ID: "c1", RecordID: "r1", Title: "Moby Dick", Creators: "Melville",
		Text: "Call me Ishmael.", Index: 0, Count: 10, WordCount: 3, CharEnd: 16,
	}, Score: 0.8}

	t.Run("disabled", func(t *testing.T) {
		svc := New(Config{}, NewANNRetriever(&mockRecords{}, 0, false, nil), &mockEmbedder{}, nil, &mockPassages{exists: true}, nil)
		req, _ := request.NewPassages("q", nil, request.DefaultLimits())
		if _, err := svc.Passages(context.Background(), req); !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Errorf("expected ServiceUnavailable, got %v", err)
		}
	})

	t.Run("index missing", func(t *testing.T) {
		svc := New(Config{PassagesEnabled: true}, NewANNRetriever(&mockRecords{}, 0, false, nil),
			&mockEmbedder{}, nil, &mockPassages{exists: false}, nil)
		req, _ := request.NewPassages("q", nil, request.DefaultLimits())
		if _, err := svc.Passages(context.Background(), req); !errors.Is(err, domain.ErrServiceUnavailable) {
			t.Errorf("expected ServiceUnavailable, got %v", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		emb := &mockEmbedder{vec: []float32{1, 0}}
		svc := New(Config{PassagesEnabled: true}, NewANNRetriever(&mockRecords{}, 0, false, nil),
			emb, nil, &mockPassages{exists: true, knn: []chunk.Scored{hit}}, nil)
		req, _ := request.NewPassages("Show me 3 whales", nil, request.DefaultLimits())
		res, err := svc.Passages(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Total != 1 || res.Passages[0].Creators != "Melville" || res.Passages[0].Score != 0.8 {
			t.Errorf("unexpected result %+v", res)
		}
		if emb.texts[0] != "Show me 3 whales" {
			t.Errorf("passages embed the raw query, got %q", emb.texts[0])
		}
	})

	t.Run("degrade", func(t *testing.T) {
		svc := New(Config{PassagesEnabled: true}, NewANNRetriever(&mockRecords{}, 0, false, nil),
			&mockEmbedder{vec: []float32{1, 0}}, nil, &mockPassages{exists: true, knnErr: errBoom}, nil)
		req, _ := request.NewPassages("q", nil, request.DefaultLimits())
		res, err := svc.Passages(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if res.Total != 0 || res.Passages == nil {
			t.Errorf("expected empty passages, got %+v", res)
		}
	})
}
