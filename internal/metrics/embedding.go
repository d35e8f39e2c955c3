package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding transport metrics. outcome is "ok" or a short failure reason.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "embedding_requests_total",
			Help:      "Embedding API calls by provider, model and outcome",
		},
		[]string{"provider", "model", "outcome"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "embedding_request_duration_seconds",
			Help:      "Latency of successful embedding API calls",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "embedding_tokens_total",
			Help:      "Prompt tokens billed by the embedding provider",
		},
		[]string{"provider", "model"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "embedding_cache_total",
			Help:      "Query embedding cache lookups",
		},
		[]string{"result"}, // local | shared | miss
	)
)

// EmbeddingSucceeded records a successful call with its latency and token usage.
func EmbeddingSucceeded(provider, model string, took time.Duration, tokens int) {
	EmbeddingRequestsTotal.WithLabelValues(provider, model, "ok").Inc()
	EmbeddingRequestDuration.WithLabelValues(provider, model).Observe(took.Seconds())
	if tokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(provider, model).Add(float64(tokens))
	}
}

// EmbeddingFailed records a failed call under reason.
func EmbeddingFailed(provider, model, reason string) {
	EmbeddingRequestsTotal.WithLabelValues(provider, model, reason).Inc()
}
