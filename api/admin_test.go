package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	genkitapi "github.com/firebase/genkit/go/core/api"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amariwest/folio/internal/app"
	"github.com/amariwest/folio/internal/profile"
	"github.com/amariwest/folio/internal/rag"
	"github.com/amariwest/folio/internal/testutil"
)

// stubQuerier is an in-memory rag.Querier for handler tests.
type stubQuerier struct {
	mu   sync.Mutex
	rows map[string]stubRow
}

type stubRow struct {
	content  string
	metadata []byte
}

func newStubQuerier() *stubQuerier {
	return &stubQuerier{rows: make(map[string]stubRow)}
}

func (s *stubQuerier) seed(t *testing.T, chunkType, itemID, title, content string) {
	t.Helper()
	meta, err := json.Marshal(rag.Metadata{Type: chunkType, ItemID: itemID, Title: title})
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[fmt.Sprintf("%s-%s-%d", chunkType, itemID, len(s.rows))] = stubRow{content: content, metadata: meta}
}

func (s *stubQuerier) UpsertChunk(_ context.Context, id, content string, _ pgvector.Vector, metadata []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id] = stubRow{content: content, metadata: metadata}
	return nil
}

func (s *stubQuerier) MatchChunks(context.Context, pgvector.Vector, float32, int32) ([]rag.MatchRow, error) {
	return nil, nil
}

func (s *stubQuerier) DeleteAllChunks(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string]stubRow)
	return nil
}

func (s *stubQuerier) CountChunks(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *stubQuerier) CountChunksByType(context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int64)
	for _, row := range s.rows {
		var meta rag.Metadata
		if err := json.Unmarshal(row.metadata, &meta); err != nil {
			continue
		}
		counts[meta.Type]++
	}
	return counts, nil
}

func (s *stubQuerier) ListChunks(_ context.Context, limit, offset int32) ([]rag.StoredRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []rag.StoredRow
	for i, id := range ids {
		if i < int(offset) {
			continue
		}
		if len(out) == int(limit) {
			break
		}
		out = append(out, rag.StoredRow{ID: id, Content: s.rows[id].content, Metadata: s.rows[id].metadata})
	}
	return out, nil
}

func (s *stubQuerier) Ping(context.Context) error { return nil }

// stubEmbedProvider implements ai.Embedder with a fixed vector per input.
type stubEmbedProvider struct{}

func (stubEmbedProvider) Name() string { return "stub-embed" }

func (stubEmbedProvider) Register(genkitapi.Registry) {}

func (stubEmbedProvider) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i := range embeddings {
		embeddings[i] = &ai.Embedding{Embedding: []float32{1, 0, 0}}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// newStubApp builds an App whose store is backed by the given querier and
// whose embedder uses the stub provider.
func newStubApp(t *testing.T, q rag.Querier) *app.App {
	t.Helper()

	logger := testutil.DiscardLogger()
	corpus := profile.Default()

	embedder := rag.NewEmbedder(rag.EmbedderConfig{
		Provider: stubEmbedProvider{},
		Retry:    rag.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond},
		Logger:   logger,
	})
	t.Cleanup(embedder.Close)

	store := rag.NewStore(q, logger)
	engine := rag.NewEngine(rag.EngineConfig{Store: store, Profile: corpus, Logger: logger})

	return &app.App{
		Config:   testConfig(),
		Logger:   logger,
		Profile:  corpus,
		Embedder: embedder,
		Store:    store,
		Engine:   engine,
		Indexer:  rag.NewIndexer(embedder, store, corpus, logger),
	}
}

func TestReindexStatus(t *testing.T) {
	t.Run("unavailable store", func(t *testing.T) {
		handler := newTestHandler(t, newFallbackApp(t), 20)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/reindex", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp ReindexStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Available)
		assert.Zero(t, resp.Count)
		assert.Contains(t, resp.Message, "not available")
	})

	t.Run("populated store", func(t *testing.T) {
		q := newStubQuerier()
		q.seed(t, rag.TypeProject, "project-1", "Relay", "chunk one")
		q.seed(t, rag.TypeProject, "project-1", "Relay", "chunk two")
		handler := newTestHandler(t, newStubApp(t, q), 20)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/reindex", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp ReindexStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Available)
		assert.Equal(t, 2, resp.Count)
	})
}

func TestReindex(t *testing.T) {
	t.Run("empty store builds without force", func(t *testing.T) {
		q := newStubQuerier()
		handler := newTestHandler(t, newStubApp(t, q), 20)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/reindex", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp ReindexResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		want := len(rag.ChunkProfile(profile.Default()))
		assert.Equal(t, want, resp.Indexed)

		count, err := q.CountChunks(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(want), count)
	})

	t.Run("populated store refuses without force", func(t *testing.T) {
		q := newStubQuerier()
		q.seed(t, rag.TypeBio, "bio", "About", "existing chunk")
		handler := newTestHandler(t, newStubApp(t, q), 20)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/reindex", nil))

		assert.Equal(t, http.StatusConflict, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "reindex_refused", resp.Error)
	})

	t.Run("force rebuilds a populated store", func(t *testing.T) {
		q := newStubQuerier()
		q.seed(t, rag.TypeBio, "bio", "About", "stale chunk")
		handler := newTestHandler(t, newStubApp(t, q), 20)

		req := httptest.NewRequest(http.MethodPost, "/api/admin/reindex", strings.NewReader(`{"force": true}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		count, err := q.CountChunks(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(len(rag.ChunkProfile(profile.Default()))), count)
	})

	t.Run("unconfigured dependencies return 503", func(t *testing.T) {
		handler := newTestHandler(t, newFallbackApp(t), 20)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/reindex", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		q := newStubQuerier()
		handler := newTestHandler(t, newStubApp(t, q), 20)

		req := httptest.NewRequest(http.MethodPost, "/api/admin/reindex", strings.NewReader(`{`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListEmbeddings(t *testing.T) {
	t.Run("unavailable store returns 503", func(t *testing.T) {
		handler := newTestHandler(t, newFallbackApp(t), 20)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/embeddings", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("lists previews with counts", func(t *testing.T) {
		q := newStubQuerier()
		q.seed(t, rag.TypeProject, "project-1", "Relay", strings.Repeat("long content ", 30))
		q.seed(t, rag.TypeProject, "project-2", "Gardener", "short content")
		q.seed(t, rag.TypeBio, "bio", "About", "bio content")
		handler := newTestHandler(t, newStubApp(t, q), 20)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/embeddings", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp EmbeddingsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, int64(2), resp.Counts[rag.TypeProject])
		assert.Equal(t, int64(1), resp.Counts[rag.TypeBio])
		require.Len(t, resp.Chunks, 3)

		for _, c := range resp.Chunks {
			assert.LessOrEqual(t, len([]rune(c.Preview)), previewLength+1, "preview should be truncated")
			assert.NotEmpty(t, c.Type)
		}
	})

	t.Run("filters by type", func(t *testing.T) {
		q := newStubQuerier()
		q.seed(t, rag.TypeProject, "project-1", "Relay", "project chunk")
		q.seed(t, rag.TypeBio, "bio", "About", "bio chunk")
		handler := newTestHandler(t, newStubApp(t, q), 20)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/embeddings?type=project", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp EmbeddingsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		require.Len(t, resp.Chunks, 1)
		assert.Equal(t, rag.TypeProject, resp.Chunks[0].Type)
		assert.Equal(t, 2, resp.Total, "total is unfiltered")
	})

	t.Run("filters by itemId", func(t *testing.T) {
		q := newStubQuerier()
		q.seed(t, rag.TypeProject, "project-1", "Relay", "one")
		q.seed(t, rag.TypeProject, "project-2", "Gardener", "two")
		handler := newTestHandler(t, newStubApp(t, q), 20)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/embeddings?itemId=project-2", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp EmbeddingsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		require.Len(t, resp.Chunks, 1)
		assert.Equal(t, "project-2", resp.Chunks[0].ItemID)
	})

	t.Run("limit caps the preview list", func(t *testing.T) {
		q := newStubQuerier()
		for i := 0; i < 5; i++ {
			q.seed(t, rag.TypeSkill, "skills", "Skills", fmt.Sprintf("chunk %d", i))
		}
		handler := newTestHandler(t, newStubApp(t, q), 20)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/embeddings?limit=2", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp EmbeddingsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.Len(t, resp.Chunks, 2)
		assert.Equal(t, 5, resp.Total)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde…", truncate("abcdefgh", 5))
	assert.Equal(t, "héllo", truncate("héllo", 5), "rune-aware, not byte-aware")
}
