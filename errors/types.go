package errors

import (
	"fmt"
	"net/http"
)

// NewError creates a new ScribeError with the given parameters.
// It is a general-purpose constructor that allows full control over
// the error's fields. For most cases, you should use one of the
// specialized constructors below.
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *ScribeError {
	return &ScribeError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewInvalidRequestError reports missing or malformed request fields.
// Validation failures are detected before any model call is made.
//
// Example:
//
//	err := NewInvalidRequestError("content is required", map[string]interface{}{
//	    "field": "content",
//	})
func NewInvalidRequestError(message string, details map[string]interface{}) *ScribeError {
	return &ScribeError{
		Type:    InvalidRequestError,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

// NewUnsupportedActionError reports an action outside the supported set.
func NewUnsupportedActionError(action string, supported []string) *ScribeError {
	return &ScribeError{
		Type:    UnsupportedActionError,
		Message: fmt.Sprintf("unsupported action %q", action),
		Code:    http.StatusBadRequest,
		Details: map[string]interface{}{
			"action":    action,
			"supported": supported,
		},
	}
}

// NewUpstreamModelError wraps a transport or model-side failure.
// Whether the caller sees it depends on the entry point's failure policy.
//
// Example:
//
//	err := NewUpstreamModelError("gemini", providerErr)
func NewUpstreamModelError(backend string, err error) *ScribeError {
	return &ScribeError{
		Type:    UpstreamModelError,
		Message: "The language model failed to produce a response",
		Code:    http.StatusInternalServerError,
		Details: map[string]interface{}{
			"backend": backend,
		},
		err: err,
	}
}

// NewParseError marks model output that post-processing could not split
// confidently. It is logged, never written to clients.
func NewParseError(message string, raw string) *ScribeError {
	return &ScribeError{
		Type:    ParseError,
		Message: message,
		Code:    http.StatusInternalServerError,
		Details: map[string]interface{}{
			"raw_length": len(raw),
		},
	}
}

// NewAuthError creates an authentication error with appropriate defaults.
func NewAuthError(requestID, message string) *ScribeError {
	return &ScribeError{
		Type:      AuthError,
		Message:   message,
		Code:      http.StatusUnauthorized,
		RequestID: requestID,
		Details: map[string]interface{}{
			"suggestion": "Provide a valid X-API-Key header",
		},
	}
}

// NewRateLimitError creates a rate limit error with appropriate defaults.
func NewRateLimitError(requestID string, retryAfter int) *ScribeError {
	return &ScribeError{
		Type:      RateLimitError,
		Message:   "Rate limit exceeded",
		Code:      http.StatusTooManyRequests,
		RequestID: requestID,
		Details: map[string]interface{}{
			"retry_after": retryAfter,
		},
	}
}

// NewInternalError creates an internal server error with appropriate defaults.
// Use this for unexpected errors that are not covered by other error types:
//   - Panics
//   - Response encoding failures
//   - Unexpected system failures
func NewInternalError(requestID string, err error) *ScribeError {
	return &ScribeError{
		Type:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
