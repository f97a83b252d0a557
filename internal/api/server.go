// Package api provides the HTTP surface of quill.
//
// Routes:
//
//	POST /api/v1/chat  →  chat orchestration (streamed answer or followup JSON)
//	GET  /health       →  liveness probe
//	GET  /ready        →  readiness probe (database ping)
//
// The /api/ subtree runs behind the full middleware stack
// (recovery → request ID → logging → CORS → rate limit); the probes are
// registered outside it so load balancers are never rate limited or
// subject to CORS checks.
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: middleware stack and client IP extraction
//   - chat.go: chat endpoint
//   - health.go: health check endpoints (/health, /ready)
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillhq/quill/internal/log"
	"github.com/quillhq/quill/internal/ratelimit"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Streamed completions can run long, so this is generous.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Config holds the server's transport-level settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// CORSOrigins lists the origins allowed to call the API from a browser.
	CORSOrigins []string

	// TrustProxy enables client IP extraction from X-Real-IP and
	// X-Forwarded-For. Only enable behind a proxy that sets these headers,
	// otherwise clients can spoof their way past the rate limiter.
	TrustProxy bool
}

// Server is the HTTP server for quill's public API.
type Server struct {
	cfg     Config
	chat    *ChatHandler
	health  *HealthHandler
	limiter *ratelimit.Limiter
	logger  log.Logger
}

// NewServer creates an HTTP server wiring the chat orchestrator, the
// database pool (readiness checks) and the rate limiter together.
func NewServer(cfg Config, answerer Answerer, pool *pgxpool.Pool, limiter *ratelimit.Limiter, logger log.Logger) *Server {
	return &Server{
		cfg:     cfg,
		chat:    NewChatHandler(answerer, logger),
		health:  NewHealthHandler(pool, logger),
		limiter: limiter,
		logger:  logger,
	}
}

// Handler returns the root HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	apiMux := http.NewServeMux()
	s.chat.RegisterRoutes(apiMux)

	root := http.NewServeMux()
	s.health.RegisterRoutes(root)
	root.Handle("/api/", chain(apiMux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
		corsMiddleware(s.cfg.CORSOrigins),
		rateLimitMiddleware(s.limiter, s.cfg.TrustProxy),
	))
	return root
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.cfg.Addr)
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
