package errors

import (
	"errors"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// ErrorHandler wraps an http.Handler and converts panics into internal errors.
// http.ErrAbortHandler is re-raised so aborted streams stay aborted.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.Any("error", rec),
						zap.ByteString("stacktrace", debug.Stack()),
						zap.String("request_id", w.Header().Get("X-Request-ID")),
					)
					WriteError(w, NewInternalError(w.Header().Get("X-Request-ID"), nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// LogError logs an error with its context
func LogError(logger *zap.Logger, err error, requestID string) {
	var scribeErr *ScribeError
	if errors.As(err, &scribeErr) {
		fields := []zap.Field{
			zap.String("error_type", string(scribeErr.Type)),
			zap.String("message", scribeErr.Message),
			zap.Int("code", scribeErr.Code),
			zap.String("request_id", requestID),
			zap.Any("details", scribeErr.Details),
		}
		if cause := scribeErr.Unwrap(); cause != nil {
			fields = append(fields, zap.NamedError("cause", cause))
		}
		logger.Error("request error", fields...)
		return
	}
	logger.Error("unexpected error",
		zap.Error(err),
		zap.String("request_id", requestID),
	)
}

// AsScribeError extracts a *ScribeError from an error chain. Errors of any
// other kind are reported as internal errors.
func AsScribeError(err error) *ScribeError {
	var scribeErr *ScribeError
	if errors.As(err, &scribeErr) {
		return scribeErr
	}
	return NewInternalError("", err)
}
