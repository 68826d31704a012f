// Package errortypes classifies errors raised while summarizing so that each
// surface can report them consistently.
package errortypes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

// Error types
const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeCapability ErrorType = "capability"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents an application error with context
type AppError struct {
	Err       error
	Type      ErrorType
	Message   string
	StackInfo string
	Fields    map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

// Unwrap unwraps the error to support errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to end users: the message when set,
// otherwise the wrapped error.
func (e *AppError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// WithField adds a field to the error for additional context
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// captureStack captures the stack trace at the call site
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "testing/") && !strings.Contains(frame.File, "/go/src/") {
			fmt.Fprintf(&builder, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return builder.String()
}

func newAppError(errType ErrorType, err error, message string) *AppError {
	if err == nil {
		err = errors.New("unknown error")
	}

	return &AppError{
		Err:       err,
		Type:      errType,
		Message:   message,
		StackInfo: captureStack(),
		Fields:    make(map[string]interface{}),
	}
}

// ValidationError creates a new validation error
func ValidationError(err error, message string) *AppError {
	return newAppError(ErrorTypeValidation, err, message)
}

// NotFoundError creates an error for a missing or expired resource.
func NotFoundError(err error, message string) *AppError {
	return newAppError(ErrorTypeNotFound, err, message)
}

// CapabilityError creates an error for an unavailable summarization capability.
func CapabilityError(err error, message string) *AppError {
	return newAppError(ErrorTypeCapability, err, message)
}

// ExtractionError creates an error for a document whose text could not be read.
func ExtractionError(err error, message string) *AppError {
	return newAppError(ErrorTypeExtraction, err, message)
}

// StorageError creates a new artifact storage error
func StorageError(err error, message string) *AppError {
	return newAppError(ErrorTypeStorage, err, message)
}

// APIError creates a new API error
func APIError(err error, message string) *AppError {
	return newAppError(ErrorTypeAPI, err, message)
}

// ConfigError creates a new configuration error
func ConfigError(err error, message string) *AppError {
	return newAppError(ErrorTypeConfig, err, message)
}

// InternalError creates a new internal error
func InternalError(err error, message string) *AppError {
	return newAppError(ErrorTypeInternal, err, message)
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal when err carries none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// HTTPStatus maps an error to the status code the HTTP surface answers with.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeExtraction:
		return http.StatusUnprocessableEntity
	case ErrorTypeCapability:
		return http.StatusServiceUnavailable
	case ErrorTypeAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// LogError logs an AppError using the provided slog.Logger or the default slog logger.
// It logs the error message, type, stack trace, and any associated fields.
func LogError(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		args := []any{
			"type", string(appErr.Type),
			"original_error", appErr.Err.Error(),
		}
		if appErr.StackInfo != "" {
			args = append(args, "stack", appErr.StackInfo)
		}
		for k, v := range appErr.Fields {
			args = append(args, k, v)
		}
		logger.Error(appErr.Message, args...)
	} else {
		logger.Error(err.Error(), "error", err)
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsCapabilityError checks if an error is a capability error
func IsCapabilityError(err error) bool {
	return isType(err, ErrorTypeCapability)
}

// IsExtractionError checks if an error is an extraction error
func IsExtractionError(err error) bool {
	return isType(err, ErrorTypeExtraction)
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}
