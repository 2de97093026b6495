// Package app provides application initialization and dependency wiring.
//
// App is the container that assembles configuration, the database pool, the
// Genkit provider plugins, and the retrieval pipeline. Setup is tolerant by
// design: a missing database or provider API key produces a degraded App
// whose Engine answers from the rule-based fallback, never a startup
// failure.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amariwest/folio/internal/config"
	"github.com/amariwest/folio/internal/profile"
	"github.com/amariwest/folio/internal/rag"
)

// App is the core application container.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Profile profile.Profile

	// Core services. Genkit and DBPool are nil in degraded mode.
	Genkit   *genkit.Genkit
	DBPool   *pgxpool.Pool
	Embedder *rag.Embedder
	Store    *rag.Store
	Engine   *rag.Engine
	Indexer  *rag.Indexer

	otelCleanup func()
}

// Close releases all resources. Safe to call on a partially-initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.Embedder != nil {
		a.Embedder.Close()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
