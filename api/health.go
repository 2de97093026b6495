package api

import (
	"log/slog"
	"net/http"

	"github.com/amariwest/folio/internal/rag"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store  *rag.Store
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler.
// The store backs the readiness check.
func NewHealthHandler(store *rag.Store, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness is a liveness probe endpoint.
// Returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness is a readiness probe endpoint. Returns 200 OK when the vector
// store is reachable, 503 otherwise. A 503 here does not mean requests
// fail: chat still answers from the rule-based fallback without the store.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if !h.store.Available(r.Context()) {
		h.logger.Warn("readiness check failed: vector store unavailable")
		http.Error(w, "vector store not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
