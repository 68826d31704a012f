package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/localrivet/protext/internal/errortypes"
)

func TestWriteErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "req-1")

	writeErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "Invalid input", map[string]interface{}{"field": "text"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %v, want %v", w.Code, http.StatusBadRequest)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Status != "error" || resp.Code != ErrorCodeInvalidRequest || resp.Message != "Invalid input" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.RequestID != "req-1" {
		t.Errorf("request id = %q, want req-1", resp.RequestID)
	}
}

func TestHandleError(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"validation", errortypes.ValidationError(errors.New("empty input"), "Please enter some text to summarize."),
			http.StatusBadRequest, ErrorCodeInvalidRequest, "Please enter some text to summarize."},
		{"not found", errortypes.NotFoundError(base, "artifact not found"),
			http.StatusNotFound, ErrorCodeNotFound, "artifact not found"},
		{"extraction", errortypes.ExtractionError(base, ""),
			http.StatusUnprocessableEntity, ErrorCodeUnprocessable, "boom"},
		{"capability", errortypes.CapabilityError(base, ""),
			http.StatusServiceUnavailable, ErrorCodeUnavailable, "boom"},
		{"api", errortypes.APIError(base, ""),
			http.StatusBadGateway, ErrorCodeBadGateway, "boom"},
		{"storage", errortypes.StorageError(base, "disk on fire"),
			http.StatusInternalServerError, ErrorCodeInternalError, "An unexpected error occurred"},
		{"plain", base,
			http.StatusInternalServerError, ErrorCodeInternalError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if resp.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMessage)
			}
		})
	}
}

func TestHandleErrorHidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, errortypes.StorageError(errors.New("secret path /var/db"), "").WithField("path", "/var/db"))

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Details != nil {
		t.Errorf("internal error details leaked: %v", resp.Details)
	}
}

func TestHandleTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()
	HandleTooManyRequests(w)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}
