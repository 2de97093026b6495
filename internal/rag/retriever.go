package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

const (
	// boostBonus is the additive similarity adjustment for chunks belonging
	// to the boosted item. Simple linear re-ranking, not a learned model.
	boostBonus = 0.1

	// maxSimilarity caps boosted scores.
	maxSimilarity = 1.0

	// chunkSeparator joins formatted passages in the prompt context. The
	// format must stay stable across calls for prompt-cache friendliness.
	chunkSeparator = "\n---\n"
)

// citableTypes are the chunk types with a corresponding detail view.
var citableTypes = map[string]string{
	TypeProject:    "/projects/",
	TypeExperience: "/experience/",
	TypeEducation:  "/education/",
}

// RetrieveOptions configures one retrieval pass.
type RetrieveOptions struct {
	Limit       int
	MinScore    float32
	Filter      Filter
	BoostItemID string // when set, chunks of this item get boostBonus added
}

// Retriever embeds a query and ranks stored chunks by similarity.
type Retriever struct {
	embedder *Embedder
	store    *Store
	logger   *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder *Embedder, store *Store, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, logger: logger}
}

// Retrieve embeds the query, searches the store, applies the optional item
// boost, and returns chunks ranked by descending similarity. Ties keep their
// original rank (stable sort).
func (r *Retriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]Retrieved, error) {
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.store.Search(ctx, queryVec, SearchOptions{
		Limit:    opts.Limit,
		MinScore: opts.MinScore,
		Filter:   opts.Filter,
	})
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}

	if opts.BoostItemID != "" {
		boosted := false
		for i := range results {
			if results[i].Metadata.ItemID == opts.BoostItemID {
				results[i].Similarity = min(results[i].Similarity+boostBonus, maxSimilarity)
				boosted = true
			}
		}
		if boosted {
			sort.SliceStable(results, func(i, j int) bool {
				return results[i].Similarity > results[j].Similarity
			})
		}
	}

	r.logger.Debug("retrieved chunks",
		"query_length", len(query),
		"results", len(results),
		"boost", opts.BoostItemID)

	return results, nil
}

// ExtractCitations projects retrieved chunks onto deduplicated citations.
// First occurrence wins per item ID, input order is preserved, and only
// types with a detail view are included.
func ExtractCitations(chunks []Retrieved) []Citation {
	seen := make(map[string]struct{}, len(chunks))
	var citations []Citation

	for _, c := range chunks {
		prefix, ok := citableTypes[c.Metadata.Type]
		if !ok {
			continue
		}
		if _, dup := seen[c.Metadata.ItemID]; dup {
			continue
		}
		seen[c.Metadata.ItemID] = struct{}{}
		citations = append(citations, Citation{
			Type:  c.Metadata.Type,
			ID:    c.Metadata.ItemID,
			Title: c.Metadata.Title,
			URL:   prefix + c.Metadata.ItemID,
		})
	}

	return citations
}

// FormatChunksForContext renders retrieved chunks the way the model sees
// them: numbered entries with a title header and the passage body. This
// exact format is part of the prompt contract; keep it stable.
func FormatChunksForContext(chunks []Retrieved) string {
	if len(chunks) == 0 {
		return ""
	}

	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		header := c.Metadata.Title
		if c.Metadata.Category != "" {
			header += " · " + c.Metadata.Category
		}
		if c.Metadata.Year != "" {
			header += " (" + c.Metadata.Year + ")"
		}
		parts = append(parts, fmt.Sprintf("[%d] %s\n%s", i+1, header, c.Content))
	}
	return strings.Join(parts, chunkSeparator)
}
