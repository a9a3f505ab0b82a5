package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/teilomillet/studyscribe/errors"
)

// Authentication validates the X-API-Key header against keys. With no keys
// configured every request passes.
func Authentication(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				errors.WriteError(w, errors.NewAuthError(GetRequestID(r.Context()), "Missing API key"))
				return
			}
			if !knownKey(keys, apiKey) {
				errors.WriteError(w, errors.NewAuthError(GetRequestID(r.Context()), "Invalid API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func knownKey(keys []string, candidate string) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare([]byte(k), []byte(candidate))
	}
	return found == 1
}
