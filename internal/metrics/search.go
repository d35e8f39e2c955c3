package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and job metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_requests_total",
			Help:      "Search, similar and passage requests by operation, mode and outcome",
		},
		[]string{"op", "mode", "outcome"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end orchestrator latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op", "mode"},
	)

	ANNDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ann_degraded_total",
			Help:      "ANN index errors degraded to an empty result",
		},
		[]string{"index"},
	)

	SummaryFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "summary_failures_total",
			Help:      "Per-hit summary failures",
		},
	)

	PassageBatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "passage_batch_chunks_total",
			Help:      "Passage chunks processed by the batch job",
		},
		[]string{"result"}, // "indexed" / "error"
	)
)
