package errortypes

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
)

func TestAppErrorWrapping(t *testing.T) {
	base := errors.New("boom")
	err := ValidationError(base, "bad input")

	if !errors.Is(err, base) {
		t.Error("AppError should unwrap to the base error")
	}
	if err.Error() != "bad input: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.UserMessage() != "bad input" {
		t.Errorf("UserMessage() = %q", err.UserMessage())
	}

	wrapped := fmt.Errorf("context: %w", err)
	if !IsValidationError(wrapped) {
		t.Error("IsValidationError should see through wrapping")
	}
	if IsNotFoundError(wrapped) {
		t.Error("validation error reported as not found")
	}
}

func TestNilErrorBecomesUnknown(t *testing.T) {
	err := InternalError(nil, "")
	if err.Error() != "unknown error" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.UserMessage() != "unknown error" {
		t.Errorf("UserMessage() = %q", err.UserMessage())
	}
}

func TestHTTPStatus(t *testing.T) {
	base := errors.New("x")
	tests := []struct {
		err  error
		want int
	}{
		{ValidationError(base, ""), http.StatusBadRequest},
		{NotFoundError(base, ""), http.StatusNotFound},
		{ExtractionError(base, ""), http.StatusUnprocessableEntity},
		{CapabilityError(base, ""), http.StatusServiceUnavailable},
		{APIError(base, ""), http.StatusBadGateway},
		{StorageError(base, ""), http.StatusInternalServerError},
		{base, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v [%s]) = %d, want %d", tt.err, TypeOf(tt.err), got, tt.want)
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogError(logger, CapabilityError(errors.New("no key"), "capability unavailable").WithField("provider", "openai"))

	out := buf.String()
	for _, want := range []string{"capability unavailable", "type=capability", "provider=openai", "original_error=\"no key\""} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}

	buf.Reset()
	LogError(logger, errors.New("plain failure"))
	if !strings.Contains(buf.String(), "plain failure") {
		t.Errorf("plain error not logged: %s", buf.String())
	}
}
