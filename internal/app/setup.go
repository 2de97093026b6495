package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/amariwest/folio/db"
	"github.com/amariwest/folio/internal/config"
	"github.com/amariwest/folio/internal/observability"
	"github.com/amariwest/folio/internal/profile"
	"github.com/amariwest/folio/internal/rag"
)

// Setup creates and initializes the application. Call Close() to release.
//
// Unavailable dependencies degrade instead of failing: no database means no
// vector search, no provider key means no generation, and either way the
// Engine falls back to rule-based answers. Only genuinely broken
// configuration (which config.Load already rejects) stops startup.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Profile: profile.Default(),
	}

	// Tracing first, so Genkit's TracerProvider is populated before Init.
	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	a.DBPool = provideDBPool(ctx, cfg, logger)

	var provider ai.Embedder
	var embedOpts any
	if cfg.HasProviderKey() {
		g, err := provideGenkit(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.Genkit = g
		provider, embedOpts = provideEmbedder(g, cfg)
		if provider == nil {
			logger.Warn("embedder not found, running without vector retrieval",
				"embedder", cfg.EmbedderModel, "provider", cfg.Provider)
		}
	} else {
		logger.Warn("no provider API key set, running in fallback-only mode",
			"provider", cfg.Provider)
	}

	a.Embedder = rag.NewEmbedder(rag.EmbedderConfig{
		Provider: provider,
		Options:  embedOpts,
		CacheTTL: time.Duration(cfg.CacheTTLHours) * time.Hour,
		Logger:   logger,
	})

	var querier rag.Querier
	if a.DBPool != nil {
		querier = rag.NewPgxQuerier(a.DBPool)
	}
	a.Store = rag.NewStore(querier, logger)

	retriever := rag.NewRetriever(a.Embedder, a.Store, logger)
	a.Engine = rag.NewEngine(rag.EngineConfig{
		Genkit:      a.Genkit,
		ModelName:   cfg.FullModelName(),
		Retriever:   retriever,
		Store:       a.Store,
		Profile:     a.Profile,
		Temperature: &cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		TopK:        cfg.TopK,
		MinScore:    cfg.MinScore,
		Logger:      logger,
	})
	a.Indexer = rag.NewIndexer(a.Embedder, a.Store, a.Profile, logger)

	return a, nil
}

// provideOtelShutdown sets up OTLP tracing when enabled. Must run before
// provideGenkit so the TracerProvider is ready.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	if !cfg.OTLP.Enabled {
		return func() {}
	}

	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLP.Endpoint,
		Environment: cfg.OTLP.Environment,
		ServiceName: cfg.OTLP.ServiceName,
	})
	if err != nil || shutdown == nil {
		return func() {}
	}

	//nolint:contextcheck // shutdown runs during teardown when the parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and opens a connection pool. Any failure
// returns nil: the store reports unavailable and the engine degrades.
func provideDBPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		logger.Warn("database unavailable, running without vector store", "error", err)
		return nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		logger.Warn("invalid database configuration, running without vector store", "error", err)
		return nil
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Warn("creating connection pool failed, running without vector store", "error", err)
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		logger.Warn("database unreachable, running without vector store", "error", err)
		return nil
	}

	return pool
}

// provideGenkit initializes Genkit with the configured provider plugin.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderGoogleAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, fmt.Errorf("initializing genkit with googleai provider")
		}
	default: // openai
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, fmt.Errorf("initializing genkit with openai provider")
		}
	}

	logger.Info("initialized Genkit", "provider", cfg.Provider, "model", cfg.ModelName)
	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin,
// plus any provider-specific embed options.
//
// Gemini embedding models output 3072 dimensions by default but support
// truncation via OutputDimensionality; the option pins them to the width of
// the vector column. OpenAI's text-embedding-3-small is natively 1536.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) (ai.Embedder, any) {
	switch cfg.Provider {
	case config.ProviderGoogleAI:
		dim := int32(cfg.EmbedderDimension) //nolint:gosec // validated small
		opts := &genai.EmbedContentConfig{OutputDimensionality: &dim}
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel), opts
	default: // openai registers embedders during Init
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel)), nil
	}
}
