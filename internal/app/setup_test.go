package app

import (
	"context"
	"testing"

	"github.com/amariwest/folio/internal/config"
	"github.com/amariwest/folio/internal/rag"
	"github.com/amariwest/folio/internal/testutil"
)

// degradedConfig points at nothing: no API keys in the environment, no
// reachable database. Setup must still produce a working fallback app.
func degradedConfig() *config.Config {
	return &config.Config{
		Provider:          config.ProviderOpenAI,
		ModelName:         "gpt-4o-mini",
		Temperature:       0.7,
		MaxTokens:         1024,
		EmbedderModel:     "text-embedding-3-small",
		EmbedderDimension: 1536,
		TopK:              5,
		MinScore:          0.3,
		PostgresHost:      "127.0.0.1",
		PostgresPort:      1, // nothing listens here
		PostgresUser:      "folio",
		PostgresPassword:  "test_password",
		PostgresDBName:    "folio",
		PostgresSSLMode:   "disable",
		RateLimitRequests: 20,
		RateLimitWindow:   60,
	}
}

func TestSetupDegradedMode(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("DATABASE_URL", "")

	ctx := context.Background()
	a, err := Setup(ctx, degradedConfig(), testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("Setup must not fail on missing dependencies: %v", err)
	}
	defer a.Close()

	if a.Genkit != nil {
		t.Error("no API key: Genkit should not be initialized")
	}
	if a.DBPool != nil {
		t.Error("unreachable database: pool should be nil")
	}
	if a.Engine == nil || a.Indexer == nil || a.Store == nil || a.Embedder == nil {
		t.Fatal("core services must exist even in degraded mode")
	}

	// The degraded engine still answers.
	turn := a.Engine.Prepare(ctx, "What projects has Amari built?", rag.Context{})
	if !turn.Fallback() {
		t.Error("degraded mode should produce fallback turns")
	}
	answer, err := a.Engine.Respond(ctx, turn)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if answer.Answer == "" {
		t.Error("empty answer in degraded mode")
	}
}

func TestAppCloseOnPartialInit(t *testing.T) {
	t.Parallel()

	// Close must tolerate a zero-value App.
	a := &App{}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
