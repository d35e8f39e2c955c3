package health

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/aisearch/internal/db"
	domrec "github.com/kailas-cloud/aisearch/internal/domain/record"
	"github.com/kailas-cloud/aisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/aisearch/internal/domain/status"
	"github.com/kailas-cloud/aisearch/internal/repository/table"
)

// --- Mocks ---

type mockBackend struct {
	pingErr error
	info    *db.ServerInfo
	infoErr error
	panics  bool
}

func (m *mockBackend) Ping(_ context.Context) error {
	if m.panics {
		panic("nil client")
	}
	return m.pingErr
}

func (m *mockBackend) ServerInfo(_ context.Context) (*db.ServerInfo, error) {
	return m.info, m.infoErr
}

type mockModel struct{ loaded, failed bool }

func (m mockModel) ModelLoaded() bool { return m.loaded }
func (m mockModel) ModelFailed() bool { return m.failed }

type mockEmbeddingChecker struct {
	err   error
	calls int
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error {
	m.calls++
	return m.err
}

func valkeyWithSearch() *mockBackend {
	return &mockBackend{info: &db.ServerInfo{Server: "valkey", Version: "8.1.1", Modules: []string{"search"}}}
}

// --- Tests ---

func TestStatus_AllHealthy(t *testing.T) {
	svc := New(Config{Mode: mode.ANN}, valkeyWithSearch(), mockModel{loaded: true}, &mockEmbeddingChecker{}, nil, nil)
	r := svc.Status(context.Background())

	if r.Status != status.Ready {
		t.Errorf("expected %q, got %q", status.Ready, r.Status)
	}
	if !r.ModelLoaded || !r.KNNAvailable {
		t.Errorf("expected model loaded and knn available: %+v", r)
	}
	if r.Backend != "valkey" || r.BackendVersion != "8.1.1" || r.Mode != "ann" {
		t.Errorf("unexpected backend fields: %+v", r)
	}
	for _, name := range []string{"database", "knn", "model", "embedding"} {
		if r.Checks[name] != status.CheckOK {
			t.Errorf("expected %s %q, got %q", name, status.CheckOK, r.Checks[name])
		}
	}
	if r.EmbeddingsLoaded != nil {
		t.Errorf("table fields must be absent in ann mode")
	}
}

func TestStatus_DBError(t *testing.T) {
	svc := New(Config{Mode: mode.ANN}, &mockBackend{pingErr: errors.New("conn refused")}, mockModel{loaded: true}, nil, nil, nil)
	r := svc.Status(context.Background())

	if r.Status != status.Error {
		t.Errorf("expected %q, got %q", status.Error, r.Status)
	}
	if r.Checks["database"] != status.CheckError {
		t.Errorf("expected database %q, got %q", status.CheckError, r.Checks["database"])
	}
	if r.Error == "" {
		t.Error("expected error message")
	}
	if r.Healthy() {
		t.Error("error status is not healthy")
	}
}

func TestStatus_InfoError(t *testing.T) {
	b := &mockBackend{infoErr: errors.New("NOPERM")}
	r := New(Config{Mode: mode.ANN}, b, mockModel{}, nil, nil, nil).Status(context.Background())

	if r.Status != status.Error || r.Checks["knn"] != status.CheckError {
		t.Errorf("unexpected report %+v", r)
	}
}

func TestStatus_NoSearchModuleIsDegraded(t *testing.T) {
	b := &mockBackend{info: &db.ServerInfo{Server: "redis", Version: "7.2.4"}}
	r := New(Config{Mode: mode.ANN}, b, mockModel{loaded: true}, nil, nil, nil).Status(context.Background())

	if r.Status != status.Degraded {
		t.Errorf("expected %q, got %q", status.Degraded, r.Status)
	}
	if r.KNNAvailable {
		t.Error("knn must be unavailable")
	}
	if !r.Healthy() {
		t.Error("degraded is still healthy")
	}
}

func TestStatus_ModelFailed(t *testing.T) {
	r := New(Config{Mode: mode.ANN}, valkeyWithSearch(), mockModel{failed: true}, nil, nil, nil).Status(context.Background())

	if r.Status != status.Error || r.Checks["model"] != status.CheckError {
		t.Errorf("unexpected report %+v", r)
	}
	if r.ModelLoaded {
		t.Error("model must not be reported loaded")
	}
}

func TestStatus_ModelNotYetLoaded(t *testing.T) {
	r := New(Config{Mode: mode.ANN}, valkeyWithSearch(), mockModel{}, nil, nil, nil).Status(context.Background())

	if r.Status != status.Ready {
		t.Errorf("lazy model must not block readiness, got %q", r.Status)
	}
	if r.Checks["model"] != status.CheckSkipped {
		t.Errorf("expected model %q, got %q", status.CheckSkipped, r.Checks["model"])
	}
}

func TestStatus_ColdModelSkipsProviderProbe(t *testing.T) {
	for name, model := range map[string]mockModel{
		"not loaded": {},
		"failed":     {failed: true},
	} {
		t.Run(name, func(t *testing.T) {
			emb := &mockEmbeddingChecker{}
			r := New(Config{Mode: mode.ANN}, valkeyWithSearch(), model, emb, nil, nil).Status(context.Background())

			if emb.calls != 0 {
				t.Errorf("provider probed %d times before the model loaded", emb.calls)
			}
			if r.Checks["embedding"] != status.CheckSkipped {
				t.Errorf("expected embedding %q, got %q", status.CheckSkipped, r.Checks["embedding"])
			}
			want := status.Ready
			if model.failed {
				want = status.Error
			}
			if r.Status != want {
				t.Errorf("expected %q, got %q", want, r.Status)
			}
		})
	}
}

func TestStatus_EmbeddingError(t *testing.T) {
	svc := New(Config{Mode: mode.ANN}, valkeyWithSearch(), mockModel{loaded: true}, &mockEmbeddingChecker{err: errors.New("timeout")}, nil, nil)
	r := svc.Status(context.Background())

	if r.Status != status.Degraded {
		t.Errorf("expected %q, got %q", status.Degraded, r.Status)
	}
	if r.Checks["database"] != status.CheckOK {
		t.Errorf("expected database %q, got %q", status.CheckOK, r.Checks["database"])
	}
	if r.Checks["embedding"] != status.CheckError {
		t.Errorf("expected embedding %q, got %q", status.CheckError, r.Checks["embedding"])
	}
}

func TestStatus_TableMode(t *testing.T) {
	h := table.NewHolder(nil)
	svc := New(Config{Mode: mode.Table}, nil, mockModel{loaded: true}, nil, h, nil)

	r := svc.Status(context.Background())
	if r.Status != status.Degraded {
		t.Errorf("empty table: expected %q, got %q", status.Degraded, r.Status)
	}
	if r.EmbeddingsLoaded == nil || *r.EmbeddingsLoaded || *r.EmbeddingsCount != 0 {
		t.Errorf("unexpected table fields %+v", r)
	}
	if r.Checks["database"] != status.CheckSkipped {
		t.Errorf("expected database %q, got %q", status.CheckSkipped, r.Checks["database"])
	}

	h.Swap(table.New([]table.Entry{
		{Record: domrec.Record{ID: "a"}, Vector: []float32{1}},
		{Record: domrec.Record{ID: "b"}, Vector: []float32{1}},
	}, "data/embeddings.json"))

	r = svc.Status(context.Background())
	if r.Status != status.Ready {
		t.Errorf("loaded table: expected %q, got %q", status.Ready, r.Status)
	}
	if !*r.EmbeddingsLoaded || *r.EmbeddingsCount != 2 || r.EmbeddingsFile != "data/embeddings.json" {
		t.Errorf("unexpected table fields %+v", r)
	}
}

func TestStatus_NeverPanics(t *testing.T) {
	r := New(Config{Mode: mode.ANN}, &mockBackend{panics: true}, mockModel{}, nil, nil, nil).Status(context.Background())

	if r.Status != status.Error || r.Error == "" {
		t.Errorf("expected error report, got %+v", r)
	}
}
