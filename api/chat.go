package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amariwest/folio/internal/rag"
	"github.com/amariwest/folio/internal/ratelimit"
)

// ChatHandler handles the chat endpoint.
//
// POST /api/chat runs one chat turn: rate-limit check, retrieval, then
// generation. By default the response streams as newline-delimited JSON
// events; `"stream": false` in the request body returns one JSON object
// instead.
type ChatHandler struct {
	engine     *rag.Engine
	limiter    *ratelimit.Limiter
	trustProxy bool
	logger     *slog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(engine *rag.Engine, limiter *ratelimit.Limiter, trustProxy bool, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{engine: engine, limiter: limiter, trustProxy: trustProxy, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Query   string      `json:"query"`
	Context rag.Context `json:"context"`

	// Stream selects the response mode; nil defaults to streaming.
	Stream *bool `json:"stream"`
}

// Stream event payloads. A successful turn emits exactly one metadata
// event, zero or more chunk events, and one done event; a failure after
// the metadata event replaces done with a single error event.

type metadataEvent struct {
	Type       string         `json:"type"`
	Citations  []rag.Citation `json:"citations"`
	Confidence float32        `json:"confidence"`
}

type chunkEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type doneEvent struct {
	Type string `json:"type"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleChat handles POST /api/chat.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	key := ratelimit.ClientKey(r, h.trustProxy)
	res := h.limiter.Allow(key)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.limiter.Limit()))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

	if !res.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(res.ResetAt)))
		h.logger.Info("rate limit exceeded", "client", key)
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, try again shortly")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	turn := h.engine.Prepare(r.Context(), query, req.Context)

	if req.Stream == nil || *req.Stream {
		h.streamTurn(w, r, turn)
		return
	}

	answer, err := h.engine.Respond(r.Context(), turn)
	if err != nil {
		h.logger.Error("chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "generation_failed", "failed to generate a response")
		return
	}
	if answer.Citations == nil {
		answer.Citations = []rag.Citation{}
	}
	writeJSON(w, http.StatusOK, answer)
}

// streamTurn delivers one chat turn as newline-delimited JSON events.
// Citations are metadata, sent before any generated text so the client can
// render citation chips while the answer is still streaming.
func (h *ChatHandler) streamTurn(w http.ResponseWriter, r *http.Request, turn *rag.Turn) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	citations := turn.Citations
	if citations == nil {
		citations = []rag.Citation{}
	}
	h.writeEvent(w, flusher, metadataEvent{Type: "metadata", Citations: citations, Confidence: turn.Confidence})

	ctx := r.Context()
	_, err := h.engine.Stream(ctx, turn, func(text string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		h.writeEvent(w, flusher, chunkEvent{Type: "chunk", Content: text})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected mid-stream")
			return
		}
		h.logger.Error("stream failed", "error", err)
		h.writeEvent(w, flusher, errorEvent{Type: "error", Error: "failed to generate a response"})
		return
	}

	h.writeEvent(w, flusher, doneEvent{Type: "done"})
}

// writeEvent writes one JSON event line and flushes it to the client.
func (h *ChatHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, event any) {
	data, _ := json.Marshal(event)
	fmt.Fprintf(w, "%s\n", data)
	flusher.Flush()
}

// retryAfterSeconds converts a window reset time into a Retry-After value,
// rounded up so clients never retry before the window turns over.
func retryAfterSeconds(resetAt time.Time) int {
	secs := int(time.Until(resetAt).Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return secs
}
