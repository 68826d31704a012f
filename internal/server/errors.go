package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/localrivet/protext/internal/errortypes"
)

// ErrorResponse represents the structure of error responses sent by the API
type ErrorResponse struct {
	Status    string                 `json:"status"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Error codes
const (
	ErrorCodeInvalidRequest   = "INVALID_REQUEST"
	ErrorCodeNotFound         = "RESOURCE_NOT_FOUND"
	ErrorCodeUnprocessable    = "EXTRACTION_FAILED"
	ErrorCodeUnavailable      = "CAPABILITY_UNAVAILABLE"
	ErrorCodeBadGateway       = "BAD_GATEWAY"
	ErrorCodeRateLimited      = "RATE_LIMITED"
	ErrorCodeTooLarge         = "PAYLOAD_TOO_LARGE"
	ErrorCodeInternalError    = "INTERNAL_ERROR"
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// writeErrorResponse writes a structured error response to the HTTP response writer
func writeErrorResponse(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	errResp := ErrorResponse{
		Status:    "error",
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: w.Header().Get(RequestIDHeader),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// HandleBadRequest handles 400 Bad Request errors
func HandleBadRequest(w http.ResponseWriter, message string) {
	writeErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, message, nil)
}

// HandleNotFound handles 404 Not Found errors
func HandleNotFound(w http.ResponseWriter, message string) {
	writeErrorResponse(w, http.StatusNotFound, ErrorCodeNotFound, message, nil)
}

// HandleMethodNotAllowed handles 405 errors
func HandleMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeErrorResponse(w, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed", nil)
}

// HandleTooManyRequests handles 429 errors from the rate limiter
func HandleTooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	writeErrorResponse(w, http.StatusTooManyRequests, ErrorCodeRateLimited, "too many requests, slow down", nil)
}

// HandleTooLarge handles 413 errors for oversized bodies
func HandleTooLarge(w http.ResponseWriter, limit int64) {
	writeErrorResponse(w, http.StatusRequestEntityTooLarge, ErrorCodeTooLarge,
		"request body is too large", map[string]interface{}{"limit_bytes": limit})
}

// HandleError inspects err and writes the matching status, code and message.
// Server-side failures are logged.
func HandleError(w http.ResponseWriter, err error) {
	status := errortypes.HTTPStatus(err)

	var details map[string]interface{}
	message := err.Error()
	var appErr *errortypes.AppError
	if errors.As(err, &appErr) {
		message = appErr.UserMessage()
		if len(appErr.Fields) > 0 {
			details = appErr.Fields
		}
	}

	if status >= http.StatusInternalServerError {
		errortypes.LogError(nil, err)
	}
	if status == http.StatusInternalServerError {
		// Internal details stay in the log.
		message = "An unexpected error occurred"
		details = nil
	}

	writeErrorResponse(w, status, errorCode(status), message, details)
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrorCodeInvalidRequest
	case http.StatusNotFound:
		return ErrorCodeNotFound
	case http.StatusUnprocessableEntity:
		return ErrorCodeUnprocessable
	case http.StatusServiceUnavailable:
		return ErrorCodeUnavailable
	case http.StatusBadGateway:
		return ErrorCodeBadGateway
	default:
		return ErrorCodeInternalError
	}
}
