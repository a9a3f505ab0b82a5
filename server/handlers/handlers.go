// Package handlers provides the HTTP handlers of the studyscribe server.
// Handlers decode and validate the wire format, call the processing
// dispatcher and write JSON or streamed text back.
//
// Every failure is written as a ScribeError JSON body carrying the
// request ID. Only 5xx failures are logged here; client mistakes are
// already visible in the access log.
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server/middleware"
	"github.com/teilomillet/studyscribe/server/validation"
)

// decode reads a JSON body into v. On failure it writes a 400 and
// reports false.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errors.WriteError(w, validation.DecodeError(err).WithRequestID(middleware.GetRequestID(r.Context())))
		return false
	}
	return true
}

// writeJSON encodes v before writing anything, so an encoding failure can
// still become a 500.
func writeJSON(w http.ResponseWriter, r *http.Request, logger *zap.Logger, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		writeError(w, r, logger, errors.NewInternalError("", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	requestID := middleware.GetRequestID(r.Context())
	se := errors.AsScribeError(err).WithRequestID(requestID)
	if se.Code >= http.StatusInternalServerError || se.Code == 0 {
		errors.LogError(logger, se, requestID)
	}
	errors.WriteError(w, se)
}

func requestLogger(logger *zap.Logger, r *http.Request) *zap.Logger {
	return logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("path", r.URL.Path),
	)
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
