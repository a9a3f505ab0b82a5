package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/teilomillet/studyscribe/server/processing"
	"github.com/teilomillet/studyscribe/server/prompt"
)

// ExamHandler serves POST /v1/exam. The body is a prompt.ExamRequest.
type ExamHandler struct {
	dispatcher *processing.Dispatcher
	logger     *zap.Logger
}

// NewExamHandler creates an exam handler.
func NewExamHandler(d *processing.Dispatcher, logger *zap.Logger) *ExamHandler {
	return &ExamHandler{dispatcher: d, logger: nopIfNil(logger)}
}

func (h *ExamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)

	var req prompt.ExamRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.dispatcher.GenerateExam(r.Context(), req)
	if err != nil {
		writeError(w, r, logger, err)
		return
	}
	writeJSON(w, r, logger, http.StatusOK, result)
}
