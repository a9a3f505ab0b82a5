package handlers

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/teilomillet/studyscribe/server/processing"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Messages []processing.ChatMessage `json:"messages"`
}

// ChatHandler streams the reply to the latest user message as chunked
// plain text.
//
// The status is chosen once the first chunk arrives: a failure before any
// text is a regular JSON error. A failure after text has been sent aborts
// the connection, so the client sees a truncated body rather than a
// complete looking reply.
type ChatHandler struct {
	dispatcher *processing.Dispatcher
	logger     *zap.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(d *processing.Dispatcher, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{dispatcher: d, logger: nopIfNil(logger)}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)

	var req ChatRequest
	if !decode(w, r, &req) {
		return
	}

	stream, err := h.dispatcher.StreamChat(r.Context(), req.Messages)
	if err != nil {
		writeError(w, r, logger, err)
		return
	}

	first, ok := <-stream
	if ok && first.Err != nil {
		writeError(w, r, logger, first.Err)
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if !ok {
		return
	}

	chunks := 0
	write := func(text string) bool {
		if _, err := io.WriteString(w, text); err != nil {
			logger.Debug("client went away", zap.Int("chunks", chunks), zap.Error(err))
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		chunks++
		return true
	}

	if !write(first.Text) {
		return
	}
	for chunk := range stream {
		if chunk.Err != nil {
			logger.Warn("chat stream failed mid-response", zap.Int("chunks", chunks), zap.Error(chunk.Err))
			panic(http.ErrAbortHandler)
		}
		if !write(chunk.Text) {
			return
		}
	}
}
