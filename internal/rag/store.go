package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const (
	// upsertBatchSize is the maximum rows written per round trip.
	upsertBatchSize = 100

	// overFetchFactor is how much the store over-requests from the database
	// before applying the local metadata filter. Filter pushdown on JSON
	// metadata is not trusted; correctness comes from the typed post-filter.
	overFetchFactor = 2

	// searchTimeout bounds a single vector search round trip.
	searchTimeout = 10 * time.Second
)

// ErrStoreNotConfigured indicates no database is available.
var ErrStoreNotConfigured = errors.New("vector store not configured")

// MatchRow is one row returned by the match_chunks database function.
type MatchRow struct {
	ID         string
	Content    string
	Metadata   []byte
	Similarity float32
}

// StoredRow is one row returned by List, without similarity.
type StoredRow struct {
	ID        string
	Content   string
	Metadata  []byte
	CreatedAt time.Time
}

// Querier defines the database operations the Store needs. The interface is
// defined here, by the consumer, so tests can substitute a mock.
type Querier interface {
	// UpsertChunk inserts or overwrites one chunk row by primary key.
	UpsertChunk(ctx context.Context, id, content string, embedding pgvector.Vector, metadata []byte) error

	// MatchChunks runs the server-side similarity search function.
	MatchChunks(ctx context.Context, embedding pgvector.Vector, threshold float32, limit int32) ([]MatchRow, error)

	// DeleteAllChunks removes every stored chunk.
	DeleteAllChunks(ctx context.Context) error

	// CountChunks returns the total stored row count.
	CountChunks(ctx context.Context) (int64, error)

	// CountChunksByType returns row counts grouped by metadata type.
	CountChunksByType(ctx context.Context) (map[string]int64, error)

	// ListChunks returns stored rows ordered by ID for inspection.
	ListChunks(ctx context.Context, limit, offset int32) ([]StoredRow, error)

	// Ping verifies the database connection.
	Ping(ctx context.Context) error
}

// SearchOptions configures a vector search.
type SearchOptions struct {
	Limit    int     // default 5
	MinScore float32 // similarity threshold passed to the database function
	Filter   Filter  // applied locally after over-fetch
}

// Store persists chunk embeddings in PostgreSQL and performs cosine
// similarity search through the match_chunks stored function.
//
// Store is safe for concurrent use.
type Store struct {
	q      Querier // nil when no database is configured
	logger *slog.Logger

	availOnce sync.Once
	available bool
}

// NewStore creates a Store. A nil querier produces a store that reports
// unavailable and fails every operation with ErrStoreNotConfigured; callers
// degrade to the fallback responder.
func NewStore(q Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{q: q, logger: logger}
}

// Available reports whether the store can serve requests. The check runs
// once and is cached for the process lifetime: credentials appearing after
// startup are not picked up without a restart. Known limitation, kept
// deliberately for fail-fast-once semantics.
func (s *Store) Available(ctx context.Context) bool {
	s.availOnce.Do(func() {
		if s.q == nil {
			return
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.q.Ping(pingCtx); err != nil {
			s.logger.Warn("vector store unavailable", "error", err)
			return
		}
		s.available = true
	})
	return s.available
}

// Upsert writes records in batches, keyed by chunk ID so re-indexing
// overwrites rather than duplicates. Last write wins per ID.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	if s.q == nil {
		return ErrStoreNotConfigured
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))
		for _, rec := range records[start:end] {
			metadata, err := json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("marshaling metadata for %q: %w", rec.ID, err)
			}
			vec := pgvector.NewVector(rec.Embedding)
			if err := s.q.UpsertChunk(ctx, rec.ID, rec.Content, vec, metadata); err != nil {
				return fmt.Errorf("upserting chunk %q: %w", rec.ID, err)
			}
		}
	}

	s.logger.Debug("upserted chunks", "count", len(records))
	return nil
}

// Search runs similarity search and returns ranked chunks. The database is
// asked for overFetchFactor times the requested limit, the typed filter is
// re-applied locally, and the result is truncated to the limit.
func (s *Store) Search(ctx context.Context, queryVec []float32, opts SearchOptions) ([]Retrieved, error) {
	if s.q == nil {
		return nil, ErrStoreNotConfigured
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	fetch := int32(limit * overFetchFactor) //nolint:gosec // small bounded limits
	rows, err := s.q.MatchChunks(searchCtx, pgvector.NewVector(queryVec), opts.MinScore, fetch)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]Retrieved, 0, limit)
	for _, row := range rows {
		var meta Metadata
		if err := json.Unmarshal(row.Metadata, &meta); err != nil {
			s.logger.Warn("skipping chunk with unparseable metadata", "id", row.ID, "error", err)
			continue
		}
		if !opts.Filter.Matches(meta) {
			continue
		}
		results = append(results, Retrieved{
			Chunk:      Chunk{ID: row.ID, Content: row.Content, Metadata: meta},
			Similarity: row.Similarity,
		})
		if len(results) == limit {
			break
		}
	}

	// match_chunks returns rows ranked already; the stable sort keeps that
	// order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	return results, nil
}

// DeleteAll removes every stored chunk.
func (s *Store) DeleteAll(ctx context.Context) error {
	if s.q == nil {
		return ErrStoreNotConfigured
	}
	if err := s.q.DeleteAllChunks(ctx); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	s.logger.Info("deleted all chunks")
	return nil
}

// Count returns the total stored chunk count.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.q == nil {
		return 0, ErrStoreNotConfigured
	}
	n, err := s.q.CountChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return int(n), nil
}

// CountByType returns stored chunk counts grouped by metadata type.
func (s *Store) CountByType(ctx context.Context) (map[string]int64, error) {
	if s.q == nil {
		return nil, ErrStoreNotConfigured
	}
	counts, err := s.q.CountChunksByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting chunks by type: %w", err)
	}
	return counts, nil
}

// List returns stored chunks with parsed metadata for the admin inspection
// endpoint. The filter is applied locally, consistent with Search.
func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Chunk, error) {
	if s.q == nil {
		return nil, ErrStoreNotConfigured
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	// Over-fetch so a filtered page can still fill up.
	fetch := int32(limit) //nolint:gosec // bounded above
	if !filter.IsZero() {
		fetch *= overFetchFactor
	}

	rows, err := s.q.ListChunks(ctx, fetch, int32(offset)) //nolint:gosec // offsets are request-bounded
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	chunks := make([]Chunk, 0, len(rows))
	for _, row := range rows {
		var meta Metadata
		if err := json.Unmarshal(row.Metadata, &meta); err != nil {
			s.logger.Warn("skipping chunk with unparseable metadata", "id", row.ID, "error", err)
			continue
		}
		if !filter.Matches(meta) {
			continue
		}
		chunks = append(chunks, Chunk{ID: row.ID, Content: row.Content, Metadata: meta})
		if len(chunks) == limit {
			break
		}
	}
	return chunks, nil
}

// PgxQuerier implements Querier over a pgx connection pool.
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// NewPgxQuerier wraps a connection pool. The pool's lifecycle is managed by
// the caller.
func NewPgxQuerier(pool *pgxpool.Pool) *PgxQuerier {
	return &PgxQuerier{pool: pool}
}

func (p *PgxQuerier) UpsertChunk(ctx context.Context, id, content string, embedding pgvector.Vector, metadata []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO chunks (id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    embedding = EXCLUDED.embedding,
		    metadata = EXCLUDED.metadata,
		    created_at = now()`,
		id, content, embedding, metadata)
	return err
}

func (p *PgxQuerier) MatchChunks(ctx context.Context, embedding pgvector.Vector, threshold float32, limit int32) ([]MatchRow, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, content, metadata, similarity FROM match_chunks($1, $2, $3)`,
		embedding, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchRow
	for rows.Next() {
		var r MatchRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.Similarity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PgxQuerier) DeleteAllChunks(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM chunks`)
	return err
}

func (p *PgxQuerier) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

func (p *PgxQuerier) CountChunksByType(ctx context.Context) (map[string]int64, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT COALESCE(metadata->>'type', '') AS type, COUNT(*) FROM chunks GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

func (p *PgxQuerier) ListChunks(ctx context.Context, limit, offset int32) ([]StoredRow, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, content, metadata, created_at FROM chunks ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredRow
	for rows.Next() {
		var r StoredRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PgxQuerier) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
