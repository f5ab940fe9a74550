// Package app wires the application together: configuration, tracing,
// database pool, Genkit, stores, retrieval strategies, and the agent loop.
// Entry points (CLI, HTTP server, MCP server) call Setup once and pull the
// components they need from the returned App.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/selahapp/selah/internal/agent"
	"github.com/selahapp/selah/internal/config"
	"github.com/selahapp/selah/internal/corpus"
	"github.com/selahapp/selah/internal/emotion"
	"github.com/selahapp/selah/internal/retrieval"
	"github.com/selahapp/selah/internal/session"
	"github.com/selahapp/selah/internal/xref"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	// Stores
	Corpus   *corpus.Store
	XRefs    *xref.Store
	Emotions *emotion.Index
	Sessions *session.Store

	// Retrieval strategies
	Semantic *retrieval.Semantic
	Tags     *retrieval.Tags
	Related  *retrieval.Related
	Window   *retrieval.Window

	// Agent loop
	Strategies *agent.Strategies
	Tools      []ai.Tool
	Agent      *agent.Agent
	Flow       *agent.Flow

	// Cleanup functions, run in reverse order by Close.
	otelCleanup func()
	dbCleanup   func()
}

// Close gracefully shuts down all resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down application")

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
		logger.Info("database pool closed")
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}

	return nil
}
