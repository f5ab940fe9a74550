package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/selahapp/selah/internal/corpus"
)

// vectorSearcher is the corpus surface semantic search needs.
type vectorSearcher interface {
	SearchSimilar(ctx context.Context, vec []float32, minSimilarity float64, limit int) ([]corpus.SimilarPassage, error)
}

// Semantic retrieves passages by embedding the query and running a cosine
// nearest-neighbor search over the corpus.
type Semantic struct {
	embedder Embedder
	store    vectorSearcher
	logger   *slog.Logger
}

// NewSemantic creates the semantic search strategy.
func NewSemantic(embedder Embedder, store vectorSearcher, logger *slog.Logger) (*Semantic, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Semantic{embedder: embedder, store: store, logger: logger}, nil
}

// Search returns up to limit passages with similarity >= minSimilarity to
// queryText, ordered by similarity descending. An empty result set is not an
// error. Embedding failures surface as ErrEmbeddingUnavailable.
func (s *Semantic) Search(ctx context.Context, queryText string, limit int, minSimilarity float64) ([]Result, error) {
	if queryText == "" {
		return nil, &StrategyError{Strategy: StrategySemantic, Err: fmt.Errorf("query text is empty")}
	}
	if limit <= 0 {
		return nil, &StrategyError{Strategy: StrategySemantic, Err: fmt.Errorf("limit must be positive, got %d", limit)}
	}

	vec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}

	similar, err := s.store.SearchSimilar(ctx, vec, minSimilarity, limit)
	if err != nil {
		return nil, &StrategyError{Strategy: StrategySemantic, Err: err}
	}

	results := make([]Result, 0, len(similar))
	for _, sp := range similar {
		results = append(results, Result{
			Reference: sp.Reference,
			Text:      sp.Text,
			Score:     sp.Similarity,
			Strategy:  StrategySemantic,
		})
	}

	s.logger.Debug("semantic search",
		"results", len(results), "limit", limit, "min_similarity", minSimilarity)
	return results, nil
}
