package aisearch

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/aisearch/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrBadInput           = domain.ErrBadInput
	ErrNotFound           = domain.ErrNotFound
	ErrNotEmbedded        = domain.ErrNotEmbedded
	ErrServiceUnavailable = domain.ErrServiceUnavailable
	ErrNotReady           = domain.ErrNotReady
	ErrModelUnavailable   = domain.ErrModelUnavailable
	ErrTimeout            = domain.ErrTimeout
	ErrInternal           = domain.ErrInternal
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aisearch: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the wire code back to its sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_input":
		return ErrBadInput
	case "not_found":
		return ErrNotFound
	case "not_embedded":
		return ErrNotEmbedded
	case "not_ready":
		return ErrNotReady
	case "service_unavailable":
		return ErrServiceUnavailable
	case "model_unavailable":
		return ErrModelUnavailable
	case "timeout":
		return ErrTimeout
	case "internal_error":
		return ErrInternal
	}
	return nil
}

// IsRetryable reports whether the request may succeed if repeated later.
// A failed model load is permanent and is not retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrTimeout)
}
