package validation

import (
	"mime"
	"net/http"

	"github.com/teilomillet/studyscribe/errors"
)

// RequireJSON rejects requests whose Content-Type is not application/json
// and caps the body at maxBytes. Reads past the cap fail with
// *http.MaxBytesError, which DecodeError maps to a 400.
func RequireJSON(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ct := r.Header.Get("Content-Type")
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				errors.WriteError(w, errors.NewInvalidRequestError(
					"Content-Type must be application/json",
					map[string]interface{}{
						"fields": []FieldError{{
							Field:   "header:Content-Type",
							Message: "Content-Type must be application/json",
							Code:    "invalid_content_type",
							Value:   ct,
						}},
					},
				).WithRequestID(w.Header().Get("X-Request-ID")))
				return
			}
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DecodeError converts a JSON decoding failure into an InvalidRequestError.
func DecodeError(err error) *errors.ScribeError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errors.NewInvalidRequestError("request body too large", map[string]interface{}{
			"limit": tooLarge.Limit,
		})
	}
	return errors.NewInvalidRequestError("invalid JSON body", map[string]interface{}{
		"fields": []FieldError{{
			Field:   "body",
			Message: err.Error(),
			Code:    "invalid_json",
		}},
	})
}
