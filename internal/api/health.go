package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// passageCounter reports how many passages the corpus holds. Readiness uses
// it to verify the corpus has been loaded.
type passageCounter interface {
	Count(ctx context.Context) (int64, error)
}

// health is a liveness probe. Returns 200 OK with {"status":"ok"}.
func health(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness verifies the database is reachable and the corpus is populated.
// An empty corpus means ingestion has not run yet; the server can answer
// health checks but not retrieve anything useful.
func readiness(pool *pgxpool.Pool, corpus passageCounter, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				logger.Warn("readiness: database unreachable", "error", err)
				WriteError(w, http.StatusServiceUnavailable, "db_unavailable", "database unreachable", logger)
				return
			}
		}

		var passages int64
		if corpus != nil {
			n, err := corpus.Count(ctx)
			if err != nil {
				logger.Warn("readiness: corpus count failed", "error", err)
				WriteError(w, http.StatusServiceUnavailable, "corpus_unavailable", "corpus unreachable", logger)
				return
			}
			if n == 0 {
				WriteError(w, http.StatusServiceUnavailable, "corpus_empty", "corpus not loaded", logger)
				return
			}
			passages = n
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"status":   "ready",
			"passages": passages,
		}, logger)
	}
}
