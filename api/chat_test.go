package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amariwest/folio/internal/rag"
)

// chatPost runs one POST /api/chat against the handler.
func chatPost(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// streamEvent is the decoded form of one NDJSON stream line.
type streamEvent struct {
	Type       string          `json:"type"`
	Content    string          `json:"content"`
	Error      string          `json:"error"`
	Citations  json.RawMessage `json:"citations"`
	Confidence float64         `json:"confidence"`
}

// decodeStream parses a streaming response body into its events.
func decodeStream(t *testing.T, body string) []streamEvent {
	t.Helper()

	var events []streamEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev streamEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev), "line: %s", line)
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestChatValidation(t *testing.T) {
	handler := newTestHandler(t, newFallbackApp(t), 20)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"malformed JSON", `{`},
		{"missing query", `{}`},
		{"blank query", `{"query": "   "}`},
		{"non-string query", `{"query": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := chatPost(handler, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_request", resp.Error)
		})
	}
}

func TestChatNonStreaming(t *testing.T) {
	handler := newTestHandler(t, newFallbackApp(t), 20)

	w := chatPost(handler, `{"query": "tell me about your projects", "stream": false}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var answer rag.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.NotEmpty(t, answer.Answer)
	assert.NotEmpty(t, answer.Citations)
	assert.Greater(t, answer.Confidence, float32(0))
	for _, c := range answer.Citations {
		assert.Equal(t, rag.TypeProject, c.Type)
	}
}

func TestChatRateLimitHeaders(t *testing.T) {
	handler := newTestHandler(t, newFallbackApp(t), 20)

	w := chatPost(handler, `{"query": "hi", "stream": false}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "19", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

// TestChatRateLimitExhaustion sends 21 rapid requests from one client:
// the first 20 succeed, the 21st is rejected.
func TestChatRateLimitExhaustion(t *testing.T) {
	handler := newTestHandler(t, newFallbackApp(t), 20)

	for i := 1; i <= 20; i++ {
		w := chatPost(handler, `{"query": "hi", "stream": false}`)
		require.Equal(t, http.StatusOK, w.Code, "request %d should be admitted", i)
	}

	w := chatPost(handler, `{"query": "hi", "stream": false}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limited", resp.Error)
}

func TestChatRateLimitPerClient(t *testing.T) {
	handler := newTestHandler(t, newFallbackApp(t), 1)

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query": "hi", "stream": false}`))
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:2222").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1111").Code, "a different client keeps its own budget")
}

// TestChatStreamGrammar verifies the event sequence of a streamed turn:
// exactly one metadata event first, then chunks, then a terminal done.
func TestChatStreamGrammar(t *testing.T) {
	handler := newTestHandler(t, newFallbackApp(t), 20)

	w := chatPost(handler, `{"query": "how can I get in touch?"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := decodeStream(t, w.Body.String())
	require.GreaterOrEqual(t, len(events), 3, "expected metadata, chunks, and done")

	assert.Equal(t, "metadata", events[0].Type)
	assert.NotNil(t, events[0].Citations, "metadata must carry a citations array")
	assert.Equal(t, "done", events[len(events)-1].Type)

	var text strings.Builder
	for i, ev := range events[1 : len(events)-1] {
		assert.Equal(t, "chunk", ev.Type, "event %d", i+1)
		text.WriteString(ev.Content)
	}
	assert.Contains(t, text.String(), "cal.com")
}

// TestChatStreamDefaultsOn verifies streaming is the default mode.
func TestChatStreamDefaultsOn(t *testing.T) {
	handler := newTestHandler(t, newFallbackApp(t), 20)

	w := chatPost(handler, `{"query": "hello"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}

func TestChatStreamCitationsComeFirst(t *testing.T) {
	handler := newTestHandler(t, newFallbackApp(t), 20)

	w := chatPost(handler, `{"query": "tell me about your projects"}`)
	require.Equal(t, http.StatusOK, w.Code)

	events := decodeStream(t, w.Body.String())
	require.NotEmpty(t, events)
	require.Equal(t, "metadata", events[0].Type)

	var citations []rag.Citation
	require.NoError(t, json.Unmarshal(events[0].Citations, &citations))
	require.NotEmpty(t, citations)
	for _, c := range citations {
		assert.True(t, strings.HasPrefix(c.URL, "/projects/"), "citation URL %q", c.URL)
	}
}

// TestChatStreamTerminalExclusive verifies a stream never carries both a
// done and an error event.
func TestChatStreamTerminalExclusive(t *testing.T) {
	handler := newTestHandler(t, newFallbackApp(t), 20)

	w := chatPost(handler, `{"query": "what is your experience?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	events := decodeStream(t, w.Body.String())
	var done, errored int
	for _, ev := range events {
		switch ev.Type {
		case "done":
			done++
		case "error":
			errored++
		}
	}
	assert.Equal(t, 1, done+errored, "exactly one terminal event")
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Run("future reset rounds up", func(t *testing.T) {
		secs := retryAfterSeconds(time.Now().Add(30 * time.Second))
		assert.GreaterOrEqual(t, secs, 30)
		assert.LessOrEqual(t, secs, 31)
	})

	t.Run("past reset clamps to one", func(t *testing.T) {
		assert.Equal(t, 1, retryAfterSeconds(time.Now().Add(-5*time.Second)))
	})
}
