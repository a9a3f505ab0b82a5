package handlers

import (
	"net/http"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/teilomillet/studyscribe/server/circuitbreaker"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	Backend        string `json:"backend"`
	CircuitBreaker string `json:"circuit_breaker"`
}

// HealthHandler reports the model backend and its breaker. The service is
// unhealthy while the breaker is open.
type HealthHandler struct {
	backend string
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewHealthHandler creates a health handler. breaker may be nil.
func NewHealthHandler(backend string, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{backend: backend, breaker: breaker, logger: nopIfNil(logger)}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Backend: h.backend, CircuitBreaker: gobreaker.StateClosed.String()}
	status := http.StatusOK
	if h.breaker != nil {
		state := h.breaker.State()
		resp.CircuitBreaker = state.String()
		if state == gobreaker.StateOpen {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, r, h.logger, status, resp)
}
