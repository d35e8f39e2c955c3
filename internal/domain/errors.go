package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrBadInput signals missing or invalid request parameters.
	ErrBadInput = errors.New("bad input")
	// ErrNotFound signals a missing record or passage.
	ErrNotFound = errors.New("not found")
	// ErrNotEmbedded signals a record that exists but has no stored embedding.
	ErrNotEmbedded = errors.New("record has no embedding")
	// ErrServiceUnavailable signals a backend that is not ready. Callers may retry later.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrModelUnavailable signals a model that failed to load. Retrying in-process is futile.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrTimeout signals an embedding or index call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrInternal signals an unexpected failure.
	ErrInternal = errors.New("internal error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingQuotaExceeded signals an exhausted provider quota.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrNotReady signals an unloaded or empty embedding table.
	ErrNotReady = fmt.Errorf("%w: embeddings not loaded", ErrServiceUnavailable)
)

// Kind is the closed set of caller-facing error categories.
type Kind int

const (
	// KindInternal is the fallback for anything unclassified.
	KindInternal Kind = iota
	// KindBadInput is a caller mistake.
	KindBadInput
	// KindNotFound covers missing entities and missing derived data.
	KindNotFound
	// KindServiceUnavailable is a transient backend outage.
	KindServiceUnavailable
	// KindModelUnavailable is a permanent in-process model failure.
	KindModelUnavailable
	// KindTimeout is a deadline hit on a model or index call.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindBadInput:
		return "bad_input"
	case KindNotFound:
		return "not_found"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// KindOf classifies err. Order matters: ErrNotReady wraps ErrServiceUnavailable,
// and a model failure is reported as such even when wrapped by a provider error.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrBadInput), errors.Is(err, ErrVectorDimMismatch):
		return KindBadInput
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotEmbedded):
		return KindNotFound
	case errors.Is(err, ErrModelUnavailable):
		return KindModelUnavailable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, ErrEmbeddingProviderError),
		errors.Is(err, ErrEmbeddingQuotaExceeded):
		return KindServiceUnavailable
	default:
		return KindInternal
	}
}

// BadInput wraps a validation message as ErrBadInput.
func BadInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadInput, fmt.Sprintf(format, args...))
}
