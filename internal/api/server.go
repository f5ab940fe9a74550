// Package api exposes the retrieval engine and agent loop over HTTP: chat
// (synchronous and SSE), direct passage retrieval, session management, and
// health probes.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/selahapp/selah/internal/agent"
	"github.com/selahapp/selah/internal/corpus"
	"github.com/selahapp/selah/internal/session"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger   *slog.Logger
	Flow     *agent.Flow    // Optional: nil disables chat endpoints
	Sessions *session.Store // Required
	Corpus   *corpus.Store  // Required
	Semantic semanticSearcher
	Pool     *pgxpool.Pool // Optional: nil skips the DB ping in /ready

	TrustProxy bool // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst  int  // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Corpus == nil {
		return nil, errors.New("corpus store is required")
	}
	if cfg.Semantic == nil {
		return nil, errors.New("semantic searcher is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	ch := &chatHandler{flow: cfg.Flow, logger: logger}
	ch.registerRoutes(mux)

	sh := &searchHandler{semantic: cfg.Semantic, corpus: cfg.Corpus, logger: logger}
	sh.registerRoutes(mux)

	sess := &sessionHandler{store: cfg.Sessions, logger: logger}
	sess.registerRoutes(mux)

	// Per-IP token bucket, 1 token/sec refill.
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux keeps health probes out of the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, cfg.Corpus, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
