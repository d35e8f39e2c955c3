package aisearch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// observer logs and counts calls. A nil observer or nil fields are no-ops.
type observer struct {
	logger   *slog.Logger
	calls    *prometheus.CounterVec   // operation, code
	duration *prometheus.HistogramVec // operation
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg == nil {
		return o, nil
	}

	calls, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aisearch",
		Subsystem: "sdk",
		Name:      "requests_total",
		Help:      "aisearch API calls made through the SDK, by operation and result code.",
	}, []string{"operation", "code"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aisearch",
		Subsystem: "sdk",
		Name:      "request_duration_seconds",
		Help:      "Round-trip time of aisearch API calls.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	o.calls, o.duration = calls, duration
	return o, nil
}

// register adds c to reg. When several clients share a registry, the first
// client's collector wins and is returned to the others.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var dup prometheus.AlreadyRegisteredError
	if !errors.As(err, &dup) {
		return c, fmt.Errorf("aisearch: register metric: %w", err)
	}
	existing, ok := dup.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("aisearch: metric registered as %T", dup.ExistingCollector)
	}
	return existing, nil
}

// track starts timing op; the returned func records the result.
func (o *observer) track(op string) func(err error) {
	if o == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		took := time.Since(start)
		code := resultCode(err)
		if o.calls != nil {
			o.calls.WithLabelValues(op, code).Inc()
			o.duration.WithLabelValues(op).Observe(took.Seconds())
		}
		if o.logger == nil {
			return
		}
		if err != nil {
			o.logger.Warn("aisearch call failed", "op", op, "code", code, "took", took, "error", err)
			return
		}
		o.logger.Debug("aisearch call", "op", op, "took", took)
	}
}

// resultCode is "ok", the API error code, or "transport" when no response arrived.
func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	if apiErr := (*APIError)(nil); errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "transport"
}
