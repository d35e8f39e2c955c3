// Package chi serves the search API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain"
	"github.com/kailas-cloud/aisearch/internal/domain/search/request"
	"github.com/kailas-cloud/aisearch/internal/domain/search/result"
	"github.com/kailas-cloud/aisearch/internal/domain/search/score"
	"github.com/kailas-cloud/aisearch/internal/domain/status"
	"github.com/kailas-cloud/aisearch/internal/logger"
)

// maxBodyBytes bounds the POST /search body.
const maxBodyBytes = 64 << 10

// Searcher runs search, similar and passage queries.
type Searcher interface {
	Search(ctx context.Context, req request.Search) (*result.Search, error)
	Similar(ctx context.Context, req request.Similar) (*result.Similar, error)
	Passages(ctx context.Context, req request.Passages) (*result.Passages, error)
	Limits() request.Limits
}

// StatusReporter builds the readiness report.
type StatusReporter interface {
	Status(ctx context.Context) status.Report
}

// Server implements ServerInterface.
type Server struct {
	search  Searcher
	health  StatusReporter
	weights score.Weights
	logger  *zap.Logger
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. weights are the defaults for calls that give none.
func NewServer(search Searcher, health StatusReporter, weights score.Weights, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{search: search, health: health, weights: weights, logger: logger}
}

// SearchRequest is the POST /search body. Query is q, or query as a fallback.
type SearchRequest struct {
	Q              string   `json:"q" validate:"max=4096"`
	Query          string   `json:"query" validate:"max=4096"`
	Limit          *int     `json:"limit" validate:"omitempty,min=1"`
	Summaries      bool     `json:"summaries"`
	Passages       *bool    `json:"passages"`
	SemanticWeight *float64 `json:"semantic_weight" validate:"omitempty,min=0,max=1"`
	MetadataWeight *float64 `json:"metadata_weight" validate:"omitempty,min=0,max=1"`
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request, params SearchParams) {
	req, err := request.NewSearch(
		firstSet(params.Q, params.Query), params.Limit, deref(params.Summaries),
		params.SemanticWeight, params.MetadataWeight, s.weights,
	)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runSearch(w, r, req.WithPassages(params.Passages))
}

// SearchPost handles POST /search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadInput, "invalid request body: "+err.Error())
		return
	}
	if err := domain.ValidateStruct(body); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	q := body.Q
	if q == "" {
		q = body.Query
	}
	req, err := request.NewSearch(q, body.Limit, body.Summaries, body.SemanticWeight, body.MetadataWeight, s.weights)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runSearch(w, r, req.WithPassages(body.Passages))
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req request.Search) {
	res, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Similar handles GET /similar/{record_id}.
func (s *Server) Similar(w http.ResponseWriter, r *http.Request, recordID string, params SimilarParams) {
	req, err := request.NewSimilar(recordID, params.Limit, s.search.Limits())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	res, err := s.search.Similar(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Passages handles GET /passages.
func (s *Server) Passages(w http.ResponseWriter, r *http.Request, params PassagesParams) {
	req, err := request.NewPassages(deref(params.Q), params.Limit, s.search.Limits())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	res, err := s.search.Passages(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Status handles GET /status. It always answers 200; failures are in the body.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Status(r.Context()))
}

// Health handles GET /health: 200 for ready or degraded, 503 for error.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Status(r.Context())
	code := http.StatusOK
	if !report.Healthy() {
		code = http.StatusServiceUnavailable
		logger.FromContext(r.Context()).Warn("health check failed", zap.String("error", report.Error))
	}
	writeJSON(w, code, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func firstSet(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
