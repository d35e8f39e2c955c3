// Package metrics holds the Prometheus collectors for the HTTP API, the
// embedding transport and the search orchestrator.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every aisearch metric.
const Namespace = "aisearch"

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingCacheTotal,
			SearchRequestsTotal,
			SearchDuration,
			ANNDegradedTotal,
			SummaryFailuresTotal,
			PassageBatchTotal,
		)
	})
}
