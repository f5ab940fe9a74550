package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/selahapp/selah/internal/config"
	"github.com/selahapp/selah/internal/corpus"
	"github.com/selahapp/selah/internal/emotion"
	"github.com/selahapp/selah/internal/retrieval"
)

const maxSearchQueryLength = 1000

// semanticSearcher is the retrieval surface the search endpoint needs.
type semanticSearcher interface {
	Search(ctx context.Context, queryText string, limit int, minSimilarity float64) ([]retrieval.Result, error)
}

// passageReader is the corpus surface the passage endpoints need.
type passageReader interface {
	GetByRef(ctx context.Context, ref string) (*corpus.Passage, error)
	Window(ctx context.Context, book string, chapter, center, radius int) ([]corpus.Passage, error)
}

// searchHandler serves direct retrieval endpoints that bypass the agent
// loop: semantic passage search, passage lookup with surrounding context,
// and the emotion vocabulary.
type searchHandler struct {
	semantic semanticSearcher
	corpus   passageReader
	logger   *slog.Logger
}

func (h *searchHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/passages/search", h.searchPassages)
	mux.HandleFunc("GET /api/passages/{ref}", h.getPassage)
	mux.HandleFunc("GET /api/emotions", h.listEmotions)
}

// searchPassages handles GET /api/passages/search?q=...&limit=5&min_similarity=0.3.
func (h *searchHandler) searchPassages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		WriteError(w, http.StatusBadRequest, "missing_query", "query parameter 'q' is required", h.logger)
		return
	}
	if len(query) > maxSearchQueryLength {
		WriteError(w, http.StatusBadRequest, "query_too_long", "query must be 1000 characters or fewer", h.logger)
		return
	}

	limit := min(parseIntParam(r, "limit", 5), 20)
	minSimilarity := config.DefaultSearchMinSimilarity
	if raw := r.URL.Query().Get("min_similarity"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			WriteError(w, http.StatusBadRequest, "invalid_threshold", "min_similarity must be between 0 and 1", h.logger)
			return
		}
		minSimilarity = v
	}

	results, err := h.semantic.Search(r.Context(), query, limit, minSimilarity)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmbeddingUnavailable) {
			h.logger.Warn("embedding provider unavailable", "error", err)
			WriteError(w, http.StatusServiceUnavailable, "embedding_unavailable", "embedding provider unavailable", h.logger)
			return
		}
		h.logger.Error("passage search failed", "error", err, "query_len", len(query))
		WriteError(w, http.StatusInternalServerError, "search_failed", "failed to search passages", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"items": results,
		"count": len(results),
	}, h.logger)
}

// getPassage handles GET /api/passages/{ref}?radius=2. With a positive
// radius the response includes the surrounding verses of the same chapter.
func (h *searchHandler) getPassage(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	if ref == "" {
		WriteError(w, http.StatusBadRequest, "missing_reference", "passage reference is required", h.logger)
		return
	}

	passage, err := h.corpus.GetByRef(r.Context(), ref)
	if err != nil {
		if errors.Is(err, corpus.ErrPassageNotFound) {
			WriteError(w, http.StatusNotFound, "passage_not_found", "no passage with reference "+ref, h.logger)
			return
		}
		h.logger.Error("passage lookup failed", "error", err, "reference", ref)
		WriteError(w, http.StatusInternalServerError, "lookup_failed", "failed to look up passage", h.logger)
		return
	}

	radius := parseIntParam(r, "radius", 0)
	if radius < 0 || radius > 10 {
		WriteError(w, http.StatusBadRequest, "invalid_radius", "radius must be between 0 and 10", h.logger)
		return
	}

	resp := map[string]any{"passage": passage}
	if radius > 0 {
		window, err := h.corpus.Window(r.Context(), passage.Book, passage.Chapter, passage.Verse, radius)
		if err != nil {
			h.logger.Error("context window failed", "error", err, "reference", ref)
			WriteError(w, http.StatusInternalServerError, "lookup_failed", "failed to load context", h.logger)
			return
		}
		resp["context"] = window
	}

	WriteJSON(w, http.StatusOK, resp, h.logger)
}

// listEmotions handles GET /api/emotions: the recognized feeling
// vocabulary, useful for client-side suggestions.
func (h *searchHandler) listEmotions(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"terms": emotion.Terms(),
	}, h.logger)
}
