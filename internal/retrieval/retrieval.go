// Package retrieval implements the evidence-gathering strategies the agent
// chooses between: semantic similarity, emotion-tag lookup, cross-reference
// traversal, and surrounding-context windows.
//
// Each strategy is read-only and safe for concurrent use across sessions.
// Strategies never retry failed provider calls; the caller decides fallback.
package retrieval

import (
	"context"
	"errors"
	"fmt"
)

// Strategy names, used in results, error reports, and the agent's tool
// dispatch table.
const (
	StrategySemantic = "semantic_search"
	StrategyTags     = "tag_search"
	StrategyRelated  = "related_passages"
	StrategyWindow   = "context_window"
	StrategyLookup   = "lookup_passage"
)

// ErrEmbeddingUnavailable indicates the embedding provider could not be
// reached or returned a malformed response. Not retried here.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

// ErrContextNotFound indicates a context window request matched no passages,
// typically an unknown book or chapter.
var ErrContextNotFound = errors.New("context not found")

// StrategyError wraps a store-layer failure with the strategy that hit it,
// so the agent can report which evidence source failed without losing the
// turn's partial progress.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is one piece of retrieved evidence. Score semantics depend on the
// strategy: cosine similarity for semantic search, classifier confidence for
// tag search, vote count for related passages. Never persisted.
type Result struct {
	Reference string   `json:"reference"`
	Text      string   `json:"text"`
	Score     float64  `json:"score"`
	Strategy  string   `json:"strategy"`
	Emotions  []string `json:"emotions,omitempty"`
}
