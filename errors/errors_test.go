package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScribeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ScribeError
		want string
	}{
		{
			name: "without cause",
			err: &ScribeError{
				Type:    InvalidRequestError,
				Message: "content is required",
			},
			want: "invalid_request: content is required",
		},
		{
			name: "with cause",
			err: &ScribeError{
				Type:    UpstreamModelError,
				Message: "model failed",
				err:     errors.New("connection reset"),
			},
			want: "upstream_model_error: model failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ScribeError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScribeError_IsMatchesType(t *testing.T) {
	err := NewInvalidRequestError("content is required", nil)
	wrapped := fmt.Errorf("dispatch: %w", err)

	if !errors.Is(wrapped, ErrInvalidRequest) {
		t.Error("expected wrapped error to match ErrInvalidRequest")
	}
	if errors.Is(wrapped, ErrUpstreamModel) {
		t.Error("did not expect wrapped error to match ErrUpstreamModel")
	}
	if errors.Is(NewUnsupportedActionError("bogus", nil), ErrInvalidRequest) {
		t.Error("unsupported action must not match invalid request")
	}
}

func TestScribeError_Unwrap(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := NewUpstreamModelError("gemini", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestWithRequestIDCopies(t *testing.T) {
	base := NewInvalidRequestError("bad", nil)
	bound := base.WithRequestID("req-1")

	if base.RequestID != "" {
		t.Errorf("base error mutated: %q", base.RequestID)
	}
	if bound.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", bound.RequestID)
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		err            *ScribeError
		expectedCode   int
		expectedType   ErrorType
		expectedFields []string
	}{
		{
			name:           "validation",
			err:            NewInvalidRequestError("content is required", map[string]interface{}{"field": "content"}).WithRequestID("id-1"),
			expectedCode:   http.StatusBadRequest,
			expectedType:   InvalidRequestError,
			expectedFields: []string{"error", "type", "request_id", "details"},
		},
		{
			name:           "unsupported action",
			err:            NewUnsupportedActionError("bogus", []string{"summarize"}),
			expectedCode:   http.StatusBadRequest,
			expectedType:   UnsupportedActionError,
			expectedFields: []string{"error", "type", "details"},
		},
		{
			name:           "upstream",
			err:            NewUpstreamModelError("anthropic", errors.New("boom")),
			expectedCode:   http.StatusInternalServerError,
			expectedType:   UpstreamModelError,
			expectedFields: []string{"error", "type"},
		},
		{
			name:           "zero code falls back to 500",
			err:            &ScribeError{Type: InternalError, Message: "x"},
			expectedCode:   http.StatusInternalServerError,
			expectedType:   InternalError,
			expectedFields: []string{"error", "type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			if rr.Code != tt.expectedCode {
				t.Errorf("WriteError() status = %v, want %v", rr.Code, tt.expectedCode)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("WriteError() content-type = %v, want application/json", ct)
			}

			var response map[string]interface{}
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response body: %v", err)
			}
			if errorType, ok := response["type"].(string); !ok || ErrorType(errorType) != tt.expectedType {
				t.Errorf("WriteError() error type = %v, want %v", response["type"], tt.expectedType)
			}
			for _, field := range tt.expectedFields {
				if _, exists := response[field]; !exists {
					t.Errorf("WriteError() missing expected field: %s", field)
				}
			}
			if _, exists := response["code"]; exists {
				t.Error("status code must not be serialized")
			}
		})
	}
}

func TestErrorWithTypeUsesResponseRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Header().Set("X-Request-ID", "abc")

	ErrorWithType(rr, "nope", AuthError, http.StatusUnauthorized)

	var body ScribeError
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.RequestID != "abc" || body.Message != "nope" {
		t.Errorf("unexpected body %+v", body)
	}
}
