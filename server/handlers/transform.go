package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/teilomillet/studyscribe/server/processing"
	"github.com/teilomillet/studyscribe/server/prompt"
)

// TransformRequest is the body of POST /v1/transform.
type TransformRequest struct {
	Action  string         `json:"action"`
	Content string         `json:"content"`
	Options prompt.Options `json:"options"`
}

// TransformHandler serves the batch transformation endpoint. Upstream
// failures follow the dispatcher's policy, so a softened failure is still
// a 200.
type TransformHandler struct {
	dispatcher *processing.Dispatcher
	logger     *zap.Logger
}

// NewTransformHandler creates a transform handler.
func NewTransformHandler(d *processing.Dispatcher, logger *zap.Logger) *TransformHandler {
	return &TransformHandler{dispatcher: d, logger: nopIfNil(logger)}
}

func (h *TransformHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)

	var req TransformRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), processing.GenerationRequest{
		Action:  prompt.Action(req.Action),
		Content: req.Content,
		Options: req.Options,
	})
	if err != nil {
		writeError(w, r, logger, err)
		return
	}
	if result.Degraded {
		logger.Info("transform softened", zap.String("action", req.Action))
	}
	writeJSON(w, r, logger, http.StatusOK, result)
}
