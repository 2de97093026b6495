package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amariwest/folio/api"
	"github.com/amariwest/folio/internal/app"
	"github.com/amariwest/folio/internal/config"
	"github.com/amariwest/folio/internal/log"
	"github.com/amariwest/folio/internal/ratelimit"
)

// runServe initializes and starts the HTTP API server.
func runServe(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	addr, err := parseServeAddr(cfg.Addr, args)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
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

	limiter := ratelimit.New(cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindow)*time.Second)
	defer limiter.Close()

	logger.Info("HTTP server ready",
		"addr", addr,
		"chat", "/api/chat",
		"admin", "/api/admin/*",
		"health", "/health, /ready",
	)

	return api.NewServer(a, limiter).Run(ctx, addr)
}
