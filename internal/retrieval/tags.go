package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/selahapp/selah/internal/corpus"
	"github.com/selahapp/selah/internal/emotion"
)

// labelIndex is the emotion index surface tag search needs.
type labelIndex interface {
	WithLabel(ctx context.Context, label string, limit int) ([]emotion.TagRecord, error)
}

// passageLookup resolves references to display text in one round trip.
type passageLookup interface {
	GetByRefs(ctx context.Context, refs []string) (map[string]corpus.Passage, error)
}

// Tags retrieves passages by expanding a feeling word into canonical labels
// and merging the per-label tag matches.
//
// A single user term may correspond to several tags assigned independently
// at ingestion; merging recovers coverage a single-label lookup would miss,
// and deduplication keeps a passage from appearing once per matched label.
type Tags struct {
	index    labelIndex
	passages passageLookup
	logger   *slog.Logger
}

// NewTags creates the emotion-tag search strategy.
func NewTags(index labelIndex, passages passageLookup, logger *slog.Logger) (*Tags, error) {
	if index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if passages == nil {
		return nil, fmt.Errorf("passages is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tags{index: index, passages: passages, logger: logger}, nil
}

// Search returns up to limit passages matching any label the term expands
// to, deduplicated by reference and ordered by confidence descending.
//
// Each label is over-fetched at twice the limit so deduplication across
// labels still fills the result. When a passage matches several labels, the
// first label's emotion list is kept and the highest confidence wins.
func (t *Tags) Search(ctx context.Context, term string, limit int) ([]Result, error) {
	if limit <= 0 {
		return nil, &StrategyError{Strategy: StrategyTags, Err: fmt.Errorf("limit must be positive, got %d", limit)}
	}

	labels := emotion.Expand(term)
	if len(labels) == 0 {
		return nil, &StrategyError{Strategy: StrategyTags, Err: fmt.Errorf("term is empty")}
	}

	merged := make(map[string]emotion.TagRecord)
	for _, label := range labels {
		records, err := t.index.WithLabel(ctx, label, 2*limit)
		if err != nil {
			return nil, &StrategyError{Strategy: StrategyTags, Err: err}
		}
		for _, rec := range records {
			existing, seen := merged[rec.Reference]
			if !seen {
				merged[rec.Reference] = rec
				continue
			}
			if rec.Confidence > existing.Confidence {
				existing.Confidence = rec.Confidence
				merged[rec.Reference] = existing
			}
		}
	}

	ranked := make([]emotion.TagRecord, 0, len(merged))
	for _, rec := range merged {
		ranked = append(ranked, rec)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Reference < ranked[j].Reference
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	refs := make([]string, len(ranked))
	for i, rec := range ranked {
		refs[i] = rec.Reference
	}
	texts, err := t.passages.GetByRefs(ctx, refs)
	if err != nil {
		return nil, &StrategyError{Strategy: StrategyTags, Err: err}
	}

	results := make([]Result, 0, len(ranked))
	for _, rec := range ranked {
		results = append(results, Result{
			Reference: rec.Reference,
			Text:      texts[rec.Reference].Text,
			Score:     rec.Confidence,
			Strategy:  StrategyTags,
			Emotions:  rec.Emotions,
		})
	}

	t.logger.Debug("tag search",
		"term", term, "labels", len(labels), "results", len(results), "limit", limit)
	return results, nil
}
