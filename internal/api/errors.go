package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/statement-engine/internal/adapter"
	"github.com/statement-engine/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
)

// mapServiceError maps service errors to HTTP status codes. Caller-side
// mistakes (bad chain, bad address, bad date) are the only 4xx cases;
// upstream degradation never reaches here, it rides success:false
// payloads instead.
func mapServiceError(err error) (int, string, string) {
	if errors.Is(err, adapter.ErrUnsupportedChain) {
		return http.StatusBadRequest, ErrCodeInvalidInput, err.Error()
	}
	if errors.Is(err, adapter.ErrInvalidAddress) {
		return http.StatusBadRequest, ErrCodeInvalidInput, err.Error()
	}

	var serviceErr *types.ServiceError
	if errors.As(err, &serviceErr) {
		switch serviceErr.Code {
		case "INVALID_DATE", "INVALID_INPUT":
			return http.StatusBadRequest, ErrCodeInvalidInput, serviceErr.Message
		default:
			return http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred"
		}
	}

	return http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred"
}
