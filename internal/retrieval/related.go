package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/selahapp/selah/internal/xref"
)

// edgeReader is the cross-reference surface this strategy needs.
type edgeReader interface {
	EdgesFrom(ctx context.Context, ref string, limit int) ([]xref.Edge, error)
}

// Related retrieves passages connected to a reference in the
// cross-reference graph, strongest edges first.
type Related struct {
	edges    edgeReader
	passages passageLookup
	logger   *slog.Logger
}

// NewRelated creates the cross-reference strategy.
func NewRelated(edges edgeReader, passages passageLookup, logger *slog.Logger) (*Related, error) {
	if edges == nil {
		return nil, fmt.Errorf("edges is required")
	}
	if passages == nil {
		return nil, fmt.Errorf("passages is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Related{edges: edges, passages: passages, logger: logger}, nil
}

// Search returns up to limit passages cross-referenced from passageRef,
// ordered by vote count descending. A reference with no outgoing edges
// yields an empty slice, not an error. Targets missing from the corpus are
// still returned by reference, with empty text.
func (r *Related) Search(ctx context.Context, passageRef string, limit int) ([]Result, error) {
	if passageRef == "" {
		return nil, &StrategyError{Strategy: StrategyRelated, Err: fmt.Errorf("passage reference is empty")}
	}
	if limit <= 0 {
		return nil, &StrategyError{Strategy: StrategyRelated, Err: fmt.Errorf("limit must be positive, got %d", limit)}
	}

	edges, err := r.edges.EdgesFrom(ctx, passageRef, limit)
	if err != nil {
		return nil, &StrategyError{Strategy: StrategyRelated, Err: err}
	}
	if len(edges) == 0 {
		return []Result{}, nil
	}

	refs := make([]string, len(edges))
	for i, e := range edges {
		refs[i] = e.To
	}
	texts, err := r.passages.GetByRefs(ctx, refs)
	if err != nil {
		return nil, &StrategyError{Strategy: StrategyRelated, Err: err}
	}

	results := make([]Result, 0, len(edges))
	for _, e := range edges {
		results = append(results, Result{
			Reference: e.To,
			Text:      texts[e.To].Text,
			Score:     float64(e.Votes),
			Strategy:  StrategyRelated,
		})
	}

	r.logger.Debug("related passages", "from", passageRef, "results", len(results))
	return results, nil
}
