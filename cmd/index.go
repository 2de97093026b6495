package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amariwest/folio/internal/app"
	"github.com/amariwest/folio/internal/config"
	"github.com/amariwest/folio/internal/log"
	"github.com/amariwest/folio/internal/rag"
)

// runIndex rebuilds the vector index from the profile corpus.
func runIndex(logger log.Logger) error {
	indexFlags := flag.NewFlagSet("index", flag.ContinueOnError)
	indexFlags.SetOutput(os.Stderr)
	force := indexFlags.Bool("force", false, "rebuild even if the store already holds chunks")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := indexFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing index flags: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	indexed, err := a.Indexer.Reindex(ctx, *force)
	switch {
	case errors.Is(err, rag.ErrReindexRefused):
		return fmt.Errorf("%w (run with -force to rebuild)", err)
	case errors.Is(err, rag.ErrStoreNotConfigured):
		return fmt.Errorf("%w (check FOLIO_POSTGRES_* or DATABASE_URL)", err)
	case errors.Is(err, rag.ErrEmbedderNotConfigured):
		return fmt.Errorf("%w (set the provider API key)", err)
	case err != nil:
		return fmt.Errorf("rebuilding index: %w", err)
	}

	fmt.Printf("Indexed %d chunks\n", indexed)
	return nil
}
