// Package health builds the readiness report. It never returns an error:
// every probe failure ends up in the report.
package health

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/aisearch/internal/domain/status"
)

// DefaultProbeTimeout bounds each backend probe.
const DefaultProbeTimeout = 2 * time.Second

// Config holds probe settings.
type Config struct {
	Mode         mode.Mode
	ProbeTimeout time.Duration
}

// Service coordinates health checks.
type Service struct {
	cfg       Config
	backend   Backend
	model     ModelState
	embedding EmbeddingChecker
	tables    TableReader
	logger    *zap.Logger
}

// New creates a Service. backend, embedding and tables can be nil.
func New(cfg Config, backend Backend, model ModelState, embedding EmbeddingChecker, tables TableReader, logger *zap.Logger) *Service {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		backend:   backend,
		model:     model,
		embedding: embedding,
		tables:    tables,
		logger:    logger,
	}
}

// Status runs all probes and aggregates them.
func (s *Service) Status(ctx context.Context) (r status.Report) {
	r = status.Report{
		Status: status.Ready,
		Mode:   string(s.cfg.Mode),
		Checks: make(map[string]status.CheckResult),
	}
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("Status probe panicked", zap.Any("panic", p))
			r.Status = status.Error
			r.Error = "internal error"
		}
	}()

	s.checkBackend(ctx, &r)
	s.checkModel(ctx, &r)
	if s.cfg.Mode == mode.Table {
		s.checkTable(&r)
	} else if r.Status != status.Error && !r.KNNAvailable {
		r.Status = status.Degraded
	}
	return r
}

func (s *Service) checkBackend(ctx context.Context, r *status.Report) {
	if s.backend == nil {
		r.Checks["database"] = status.CheckSkipped
		return
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()

	if err := s.backend.Ping(pctx); err != nil {
		r.Checks["database"] = status.CheckError
		fail(r, fmt.Sprintf("backend unreachable: %v", err))
		return
	}
	r.Checks["database"] = status.CheckOK

	info, err := s.backend.ServerInfo(pctx)
	if err != nil {
		r.Checks["knn"] = status.CheckError
		fail(r, fmt.Sprintf("backend info: %v", err))
		return
	}
	r.Backend = info.Server
	r.BackendVersion = info.Version
	r.KNNAvailable = info.HasSearch()
	if r.KNNAvailable {
		r.Checks["knn"] = status.CheckOK
	} else {
		r.Checks["knn"] = status.CheckError
	}
}

func (s *Service) checkModel(ctx context.Context, r *status.Report) {
	if s.model != nil {
		r.ModelLoaded = s.model.ModelLoaded()
		switch {
		case s.model.ModelFailed():
			r.Checks["model"] = status.CheckError
			fail(r, "embedding model failed to load")
		case r.ModelLoaded:
			r.Checks["model"] = status.CheckOK
		default:
			r.Checks["model"] = status.CheckSkipped
		}
	}

	if s.embedding == nil {
		return
	}
	// the provider probe would load the model, which is not bounded by ProbeTimeout
	if s.model != nil && !r.ModelLoaded {
		r.Checks["embedding"] = status.CheckSkipped
		return
	}
	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()
	if err := s.embedding.HealthCheck(pctx); err != nil {
		s.logger.Warn("Embedding provider health check failed", zap.Error(err))
		r.Checks["embedding"] = status.CheckError
		degrade(r)
		return
	}
	r.Checks["embedding"] = status.CheckOK
}

func (s *Service) checkTable(r *status.Report) {
	var info status.TableInfo
	if s.tables != nil {
		t := s.tables.Load()
		info = status.TableInfo{Loaded: t.Len() > 0, Count: t.Len(), Source: t.Source()}
	}
	r.SetTable(info)
	if info.Loaded {
		r.Checks["table"] = status.CheckOK
		return
	}
	r.Checks["table"] = status.CheckError
	degrade(r)
}

func fail(r *status.Report, msg string) {
	r.Status = status.Error
	if r.Error == "" {
		r.Error = msg
	}
}

func degrade(r *status.Report) {
	if r.Status == status.Ready {
		r.Status = status.Degraded
	}
}
