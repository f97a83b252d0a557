// Package app assembles quill's components into a running application:
// configuration, tracing, database pool and migrations, the Genkit
// provider, retrieval, the chat orchestrator and the HTTP server.
package app

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillhq/quill/internal/api"
	"github.com/quillhq/quill/internal/chat"
	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/internal/log"
	"github.com/quillhq/quill/internal/postgres"
)

// shutdownTimeout bounds teardown work in Close.
const shutdownTimeout = 5 * time.Second

// App is the assembled application.
type App struct {
	Config   *config.Config
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool
	Store    *postgres.Store
	Chat     *chat.Orchestrator
	Server   *api.Server

	logger       log.Logger
	otelShutdown func(context.Context) error
}

// Run serves HTTP until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.Server.Run(ctx)
}

// Close releases all resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.logger != nil {
		a.logger.Info("shutting down application")
	}

	var firstErr error
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.otelShutdown(ctx); err != nil {
			firstErr = err
		}
		cancel()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	return firstErr
}
