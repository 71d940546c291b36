package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/gamespin/pkg/metrics"
)

// Pinger reports backing store reachability.
type Pinger interface {
	Ready(ctx context.Context) error
}

// HealthHandler serves liveness metrics and readiness.
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(p Pinger) *HealthHandler {
	return &HealthHandler{pinger: p}
}

// HandleHealth handles GET /healthz by exposing the Prometheus registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

type readyResponse struct {
	Status string `json:"status"`
}

// HandleReady handles GET /readyz. It answers 503 while the store fails.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	const op = "api.ready"
	if err := h.pinger.Ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, WrapKind(op, ErrStoreNotReady, err))
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Status: "ready"})
}
