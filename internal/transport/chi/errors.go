package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aisearch/internal/domain"
	"github.com/kailas-cloud/aisearch/internal/logger"
)

// ErrorCode is the machine-readable error code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadInput           ErrorCode = "bad_input"
	CodeNotFound           ErrorCode = "not_found"
	CodeNotEmbedded        ErrorCode = "not_embedded"
	CodeNotReady           ErrorCode = "not_ready"
	CodeServiceUnavailable ErrorCode = "service_unavailable"
	CodeModelUnavailable   ErrorCode = "model_unavailable"
	CodeTimeout            ErrorCode = "timeout"
	CodeInternal           ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// statusOf maps an error kind to its HTTP status and default code.
func statusOf(k domain.Kind) (int, ErrorCode) {
	switch k {
	case domain.KindBadInput:
		return http.StatusBadRequest, CodeBadInput
	case domain.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case domain.KindServiceUnavailable:
		return http.StatusServiceUnavailable, CodeServiceUnavailable
	case domain.KindModelUnavailable:
		return http.StatusServiceUnavailable, CodeModelUnavailable
	case domain.KindTimeout:
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// refine picks a narrower code for sentinels that share a kind.
func refine(err error, code ErrorCode) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrNotEmbedded):
		return CodeNotEmbedded
	case errors.Is(err, domain.ErrNotReady):
		return CodeNotReady
	}
	return code
}

// handleDomainError writes the reply for err. Internal errors are logged in
// full and answered with an opaque message.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)

	kind := domain.KindOf(err)
	status, code := statusOf(kind)
	if kind == domain.KindInternal {
		log.Error("internal error", zap.Error(err))
		writeError(w, status, CodeInternal, "internal error")
		return
	}

	log.Warn("domain error", zap.String("kind", kind.String()), zap.Error(err))
	writeError(w, status, refine(err, code), safeMessage(kind, err))
}

// safeMessage keeps caller-facing detail for bad input and missing entities.
// Backend failures answer with the sentinel text only.
func safeMessage(k domain.Kind, err error) string {
	switch k {
	case domain.KindBadInput, domain.KindNotFound:
		return err.Error()
	case domain.KindModelUnavailable:
		return domain.ErrModelUnavailable.Error()
	case domain.KindTimeout:
		return domain.ErrTimeout.Error()
	}
	if errors.Is(err, domain.ErrNotReady) {
		return domain.ErrNotReady.Error()
	}
	return domain.ErrServiceUnavailable.Error()
}

// paramErrorHandler answers parameter binding failures.
func paramErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusBadRequest, CodeBadInput, err.Error())
}
