package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amariwest/folio/internal/profile"
)

// ErrReindexRefused indicates the store already holds chunks and the caller
// did not force a rebuild.
var ErrReindexRefused = errors.New("store is not empty; pass force to rebuild")

// Indexer runs the full chunk → embed → upsert pipeline over the corpus.
type Indexer struct {
	embedder *Embedder
	store    *Store
	profile  profile.Profile
	logger   *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(embedder *Embedder, store *Store, p profile.Profile, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{embedder: embedder, store: store, profile: p, logger: logger}
}

// Status describes the current state of the index.
type Status struct {
	Available bool `json:"available"`
	Count     int  `json:"count"`
}

// Status reports store availability and the stored chunk count.
func (ix *Indexer) Status(ctx context.Context) Status {
	st := Status{Available: ix.store.Available(ctx)}
	if !st.Available {
		return st
	}
	count, err := ix.store.Count(ctx)
	if err != nil {
		ix.logger.Warn("counting chunks", "error", err)
		return st
	}
	st.Count = count
	return st
}

// Reindex rebuilds the entire index: chunk the corpus, embed every chunk,
// delete the old rows, upsert the new ones. Because chunk IDs are
// deterministic, the upsert alone would not grow the store; the delete
// exists to drop chunks whose source records were removed. A non-empty
// store refuses to rebuild unless force is set.
func (ix *Indexer) Reindex(ctx context.Context, force bool) (int, error) {
	if !ix.store.Available(ctx) {
		return 0, ErrStoreNotConfigured
	}
	if !ix.embedder.Available() {
		return 0, ErrEmbedderNotConfigured
	}

	count, err := ix.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking store count: %w", err)
	}
	if count > 0 && !force {
		return 0, ErrReindexRefused
	}

	chunks := ChunkProfile(ix.profile)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	ix.logger.Info("reindexing corpus", "chunks", len(chunks), "previous_count", count)

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding corpus: %w", err)
	}

	if count > 0 {
		if err := ix.store.DeleteAll(ctx); err != nil {
			return 0, fmt.Errorf("clearing store: %w", err)
		}
	}

	records := make([]Record, len(chunks))
	for i, c := range chunks {
		records[i] = Record{Chunk: c, Embedding: vectors[i]}
	}
	if err := ix.store.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upserting records: %w", err)
	}

	ix.logger.Info("reindex complete", "chunks", len(records))
	return len(records), nil
}
