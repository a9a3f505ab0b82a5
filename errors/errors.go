// Package errors provides the error taxonomy of the studyscribe service.
// It includes structured error types, JSON response formatting, request ID tracking,
// and integrated logging with Uber's zap logger.
//
// Every failure that can reach a caller is a *ScribeError. The type decides the
// HTTP status and whether an entry point may soften it:
//
//   - InvalidRequestError and UnsupportedActionError are caller mistakes (400)
//   - UpstreamModelError wraps anything the LLM transport or model returned
//   - ParseError marks ambiguous post-processing and is only ever logged
//
// Basic usage:
//
//	// Simple error response
//	errors.Error(w, "Something went wrong", http.StatusBadRequest)
//
//	// Type-specific error with context
//	errors.ErrorWithType(w, "Invalid input", errors.InvalidRequestError, http.StatusBadRequest)
//
// Matching works on the error type only:
//
//	if errors.Is(err, errors.ErrInvalidRequest) { ... }
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the default zap logger instance used throughout the package.
// It is initialized to a production configuration but can be overridden using SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger allows setting a custom zap logger instance.
// If nil is provided, the function will do nothing to prevent
// accidentally disabling logging.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType represents the category of a failure.
type ErrorType string

const (
	// InvalidRequestError represents missing or malformed request fields
	InvalidRequestError ErrorType = "invalid_request"

	// UnsupportedActionError represents an action outside the closed set
	UnsupportedActionError ErrorType = "unsupported_action"

	// UpstreamModelError represents a failure of the LLM transport or model
	UpstreamModelError ErrorType = "upstream_model_error"

	// ParseError represents result post-processing that could not split model output confidently
	ParseError ErrorType = "parse_error"

	// InternalError represents unexpected internal server errors
	InternalError ErrorType = "internal_error"

	// AuthError represents API key authentication failures
	AuthError ErrorType = "authentication_error"

	// RateLimitError represents rate limiting errors
	RateLimitError ErrorType = "rate_limit_error"
)

// ScribeError is the error type returned by every studyscribe component.
// It serializes to the JSON body clients receive while keeping the
// underlying cause for logs.
type ScribeError struct {
	// Type categorizes the error for client handling
	Type ErrorType `json:"type"`

	// Message is a human-readable error description
	Message string `json:"error"`

	// Code is the HTTP status code (not exposed in JSON)
	Code int `json:"-"`

	// RequestID links the error to a specific request
	RequestID string `json:"request_id,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`

	// err is the underlying error (not exposed in JSON)
	err error
}

// Sentinels for errors.Is. Only the Type field takes part in matching.
var (
	ErrInvalidRequest    = &ScribeError{Type: InvalidRequestError}
	ErrUnsupportedAction = &ScribeError{Type: UnsupportedActionError}
	ErrUpstreamModel     = &ScribeError{Type: UpstreamModelError}
	ErrParse             = &ScribeError{Type: ParseError}
)

// Error implements the error interface. It returns a string that
// combines the error type, message, and underlying error (if any).
func (e *ScribeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, implementing the unwrap
// interface for error chains.
func (e *ScribeError) Unwrap() error {
	return e.err
}

// Is implements error matching for errors.Is, allowing type-based
// error matching while ignoring other fields.
func (e *ScribeError) Is(target error) bool {
	t, ok := target.(*ScribeError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithRequestID returns a copy of the error bound to a request.
func (e *ScribeError) WithRequestID(requestID string) *ScribeError {
	cp := *e
	cp.RequestID = requestID
	return &cp
}

// WriteError formats and writes a ScribeError to an http.ResponseWriter.
// It sets the appropriate content type and status code, then writes
// the error as a JSON response.
func WriteError(w http.ResponseWriter, err *ScribeError) {
	code := err.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(err)
}

// Error is a drop-in replacement for http.Error that creates and writes
// a ScribeError with the InternalError type. It automatically includes
// the request ID from the response headers if available.
func Error(w http.ResponseWriter, message string, code int) {
	ErrorWithType(w, message, InternalError, code)
}

// ErrorWithType is like Error but allows specifying the error type.
func ErrorWithType(w http.ResponseWriter, message string, errType ErrorType, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &ScribeError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}
