// Package api provides the HTTP interface for the portfolio chatbot.
//
// This package exposes the chat pipeline and its operational surface over
// REST, serving the portfolio frontend and admin tooling.
//
// Endpoints:
//
//	POST /api/chat              → chat turn (streaming NDJSON or JSON)
//	GET  /api/admin/reindex     → index status
//	POST /api/admin/reindex     → rebuild the index
//	GET  /api/admin/embeddings  → inspect stored chunks
//	GET  /health                → liveness probe
//	GET  /ready                 → readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, request ID, CORS, logging)
//   - chat.go: chat endpoint with rate limiting and streaming
//   - admin.go: reindex and embedding inspection endpoints
//   - health.go: health check endpoints (/health, /ready)
//   - response.go: JSON response helpers
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/amariwest/folio/internal/app"
	"github.com/amariwest/folio/internal/ratelimit"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "localhost:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response. Chat
	// responses stream token by token and hold the connection open, so this
	// is much longer than a typical JSON API would use.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the chatbot API.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger

	corsOrigins []string

	// Handlers
	chat   *ChatHandler
	admin  *AdminHandler
	health *HealthHandler
}

// NewServer creates a new HTTP server with all routes registered. The
// limiter guards the chat endpoint; the caller owns its lifecycle.
func NewServer(a *app.App, limiter *ratelimit.Limiter) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:         mux,
		logger:      a.Logger,
		corsOrigins: a.Config.CORSOrigins,
		chat:        NewChatHandler(a.Engine, limiter, a.Config.TrustProxy, a.Logger),
		admin:       NewAdminHandler(a.Indexer, a.Store, a.Logger),
		health:      NewHealthHandler(a.Store, a.Logger),
	}

	// Register all routes
	s.chat.RegisterRoutes(mux)
	s.admin.RegisterRoutes(mux)
	s.health.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → request ID → CORS → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		corsMiddleware(s.corsOrigins),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
