package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
)

const (
	// embedBatchCeiling is the maximum number of texts sent to the provider
	// in one request.
	embedBatchCeiling = 100

	// VectorDimension is the embedding dimensionality. Must match the
	// vector(1536) column in db/migrations.
	VectorDimension = 1536
)

// ErrEmbedderNotConfigured indicates no embedding provider is available.
// This is a configuration error: it is never retried, and callers are
// expected to degrade to the local fallback responder.
var ErrEmbedderNotConfigured = errors.New("embedder not configured")

// RetryConfig controls the exponential backoff used by EmbedWithRetry.
// Zero value uses defaults.
type RetryConfig struct {
	MaxAttempts int           // total attempts, default 3
	BaseDelay   time.Duration // first backoff delay, doubles per attempt, default 1s
}

func (rc RetryConfig) withDefaults() RetryConfig {
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = 3
	}
	if rc.BaseDelay <= 0 {
		rc.BaseDelay = time.Second
	}
	return rc
}

// Embedder converts text into fixed-length vectors via a hosted embedding
// model, with a process-local TTL cache in front of the provider.
//
// Embedder is safe for concurrent use.
type Embedder struct {
	provider ai.Embedder // nil when unconfigured
	options  any         // provider-specific embed options (e.g. output dimensionality)
	cache    *embedCache
	pacer    *rate.Limiter // paces provider calls between sub-batches
	retry    RetryConfig
	logger   *slog.Logger
}

// EmbedderConfig configures a new Embedder.
type EmbedderConfig struct {
	Provider ai.Embedder // nil = unconfigured, all calls fail with ErrEmbedderNotConfigured
	Options  any         // passed through on every EmbedRequest
	CacheTTL time.Duration // default 24h
	Retry    RetryConfig
	Logger   *slog.Logger
}

// NewEmbedder creates an Embedder. Call Close to stop the cache sweep.
func NewEmbedder(cfg EmbedderConfig) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Embedder{
		provider: cfg.Provider,
		options:  cfg.Options,
		cache:    newEmbedCache(cfg.CacheTTL),
		// One provider request per 500ms sustained, small burst. This is the
		// inter-batch delay that keeps bulk indexing under provider limits.
		pacer:  rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		retry:  cfg.Retry.withDefaults(),
		logger: logger,
	}
}

// Available reports whether a provider is configured.
func (e *Embedder) Available() bool {
	return e.provider != nil
}

// Embed returns the vector for one text, consulting the cache first.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.provider == nil {
		return nil, ErrEmbedderNotConfigured
	}

	if vec := e.cache.get(text); vec != nil {
		return vec, nil
	}

	vecs, err := e.callProvider(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	e.cache.put(text, vecs[0])
	return vecs[0], nil
}

// EmbedBatch embeds texts in provider-sized sub-batches, preserving input
// order. Any sub-batch failure fails the whole call; there are no
// partial-success semantics, so callers retry the entire batch.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.provider == nil {
		return nil, ErrEmbedderNotConfigured
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchCeiling {
		end := min(start+embedBatchCeiling, len(texts))

		if err := e.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		batch, err := e.callProvider(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		for i, vec := range batch {
			e.cache.put(texts[start+i], vec)
		}
		vectors = append(vectors, batch...)
	}

	e.logger.Debug("embedded batch", "texts", len(texts))
	return vectors, nil
}

// EmbedWithRetry wraps Embed with exponential backoff. Provider failures are
// retried; configuration errors are surfaced immediately. Exhausting the
// attempts returns the last error.
func (e *Embedder) EmbedWithRetry(ctx context.Context, text string) ([]float32, error) {
	if e.provider == nil {
		return nil, ErrEmbedderNotConfigured
	}

	var lastErr error
	delay := e.retry.BaseDelay

	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		vec, err := e.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if attempt == e.retry.MaxAttempts {
			break
		}

		e.logger.Debug("embed attempt failed, backing off",
			"attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", e.retry.MaxAttempts, lastErr)
}

// CacheSize reports the number of cached vectors. Exposed for tests and the
// admin inspection endpoint.
func (e *Embedder) CacheSize() int {
	return e.cache.len()
}

// Close stops the cache sweep goroutine.
func (e *Embedder) Close() {
	e.cache.close()
}

// callProvider performs one embedding request for the given texts, in order.
func (e *Embedder) callProvider(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := e.provider.Embed(ctx, &ai.EmbedRequest{Input: docs, Options: e.options})
	if err != nil {
		return nil, fmt.Errorf("provider embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding returned at index %d", i)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}
