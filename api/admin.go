package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/amariwest/folio/internal/rag"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// previewLength is how much chunk content the embeddings endpoint
	// returns per row.
	previewLength = 160
)

// AdminHandler handles index management endpoints.
//
// These back the operator workflow: inspect what the vector store holds,
// and rebuild it after the profile content changes.
type AdminHandler struct {
	indexer *rag.Indexer
	store   *rag.Store
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(indexer *rag.Indexer, store *rag.Store, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{indexer: indexer, store: store, logger: logger}
}

// RegisterRoutes registers admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/admin/reindex", h.reindexStatus)
	mux.HandleFunc("POST /api/admin/reindex", h.reindex)
	mux.HandleFunc("GET /api/admin/embeddings", h.listEmbeddings)
}

// ReindexStatusResponse reports the current state of the index.
type ReindexStatusResponse struct {
	Available bool   `json:"available"`
	Count     int    `json:"count"`
	Message   string `json:"message"`
}

// reindexStatus handles GET /api/admin/reindex.
func (h *AdminHandler) reindexStatus(w http.ResponseWriter, r *http.Request) {
	st := h.indexer.Status(r.Context())

	resp := ReindexStatusResponse{Available: st.Available, Count: st.Count}
	switch {
	case !st.Available:
		resp.Message = "vector store is not available"
	case st.Count == 0:
		resp.Message = "index is empty; POST to build it"
	default:
		resp.Message = "index is populated; POST with force to rebuild"
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReindexRequest is the request body for POST /api/admin/reindex.
type ReindexRequest struct {
	Force bool `json:"force"`
}

// ReindexResponse reports the outcome of a rebuild.
type ReindexResponse struct {
	Indexed int `json:"indexed"`
}

// reindex handles POST /api/admin/reindex. An empty body is accepted and
// means force=false.
func (h *AdminHandler) reindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	indexed, err := h.indexer.Reindex(r.Context(), req.Force)
	switch {
	case errors.Is(err, rag.ErrReindexRefused):
		writeError(w, http.StatusConflict, "reindex_refused", err.Error())
		return
	case errors.Is(err, rag.ErrStoreNotConfigured), errors.Is(err, rag.ErrEmbedderNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "not_configured", err.Error())
		return
	case err != nil:
		h.logger.Error("reindex failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reindex_failed", "failed to rebuild the index")
		return
	}

	h.logger.Info("reindex completed", "indexed", indexed)
	writeJSON(w, http.StatusOK, ReindexResponse{Indexed: indexed})
}

// EmbeddingPreview is one stored chunk with its content truncated.
type EmbeddingPreview struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	ItemID  string `json:"itemId"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

// EmbeddingsResponse is the body of GET /api/admin/embeddings.
type EmbeddingsResponse struct {
	Total  int                `json:"total"`
	Counts map[string]int64   `json:"counts"`
	Chunks []EmbeddingPreview `json:"chunks"`
}

// listEmbeddings handles GET /api/admin/embeddings. Query params: type and
// itemId filter, limit caps the preview list.
func (h *AdminHandler) listEmbeddings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.store.Available(ctx) {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "vector store is not available")
		return
	}

	filter := rag.Filter{
		Type:   r.URL.Query().Get("type"),
		ItemID: r.URL.Query().Get("itemId"),
	}
	limit := parseIntParam(r, "limit", defaultListLimit, 1, maxListLimit)

	chunks, err := h.store.List(ctx, filter, limit, 0)
	if err != nil {
		h.logger.Error("listing chunks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list stored chunks")
		return
	}

	total, err := h.store.Count(ctx)
	if err != nil {
		h.logger.Error("counting chunks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to count stored chunks")
		return
	}

	counts, err := h.store.CountByType(ctx)
	if err != nil {
		h.logger.Error("counting chunks by type failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to count stored chunks")
		return
	}

	previews := make([]EmbeddingPreview, len(chunks))
	for i, c := range chunks {
		previews[i] = EmbeddingPreview{
			ID:      c.ID,
			Type:    c.Metadata.Type,
			ItemID:  c.Metadata.ItemID,
			Title:   c.Metadata.Title,
			Preview: truncate(c.Content, previewLength),
		}
	}

	writeJSON(w, http.StatusOK, EmbeddingsResponse{Total: total, Counts: counts, Chunks: previews})
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
