package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/seatwise/reservations/internal/domain"
	"github.com/seatwise/reservations/pkg/logger"
)

// ErrorResponse is the JSON shape of every error the API returns.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code,omitempty"`
	Rule   string              `json:"rule,omitempty"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeBusinessRule      = "BUSINESS_RULE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeUnavailable       = "SERVICE_UNAVAILABLE"
)

// WriteJSON writes payload with the given status. Encode failures are
// logged; headers are already gone at that point.
func WriteJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteDomainError maps the service error taxonomy onto HTTP statuses.
// Anything unrecognized is a 500 with the detail kept out of the body.
func WriteDomainError(w http.ResponseWriter, err error) {
	var (
		verr *domain.ValidationError
		cerr *domain.ConflictError
		terr *domain.InvalidTransitionError
		berr *domain.BusinessRuleError
		serr *domain.StorageError
	)

	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Code:   CodeValidationFailed,
			Fields: verr.Fields,
		})
	case errors.As(err, &cerr):
		WriteError(w, http.StatusConflict, cerr.Error(), CodeConflict)
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "reservation not found", CodeNotFound)
	case errors.As(err, &terr):
		WriteJSON(w, http.StatusConflict, ErrorResponse{
			Error: terr.Error(),
			Code:  CodeInvalidTransition,
		})
	case errors.As(err, &berr):
		status := http.StatusUnprocessableEntity
		if berr.Rule == domain.RulePrivilegedOnly {
			status = http.StatusForbidden
		}
		WriteJSON(w, status, ErrorResponse{
			Error: berr.Message,
			Code:  CodeBusinessRule,
			Rule:  berr.Rule,
		})
	case errors.As(err, &serr):
		logger.Error("storage failure", "error", err, "op", serr.Op, "retryable", serr.Retryable)
		if serr.Retryable {
			w.Header().Set("Retry-After", "1")
			WriteError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry shortly", CodeUnavailable)
			return
		}
		WriteError(w, http.StatusInternalServerError, "internal error", CodeInternalError)
	default:
		logger.Error("unhandled error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal error", CodeInternalError)
	}
}

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}
