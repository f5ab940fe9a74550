package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/selahapp/selah/internal/corpus"
	"github.com/selahapp/selah/internal/retrieval"
)

// Default result caps per strategy and the hard ceiling the model cannot
// exceed.
const (
	defaultSemanticLimit = 5
	defaultTagLimit      = 8
	defaultRelatedLimit  = 5
	maxStrategyLimit     = 20
	maxWindowRadius      = 10
)

// Consumer-side interfaces over the retrieval strategies, so the loop can be
// tested without a database or an embedding provider.
type (
	// SemanticSearcher finds passages by embedding similarity.
	SemanticSearcher interface {
		Search(ctx context.Context, queryText string, limit int, minSimilarity float64) ([]retrieval.Result, error)
	}

	// TagSearcher finds passages by expanded feeling vocabulary.
	TagSearcher interface {
		Search(ctx context.Context, term string, limit int) ([]retrieval.Result, error)
	}

	// RelatedSearcher follows cross-reference edges from a passage.
	RelatedSearcher interface {
		Search(ctx context.Context, passageRef string, limit int) ([]retrieval.Result, error)
	}

	// ContextWindower reads the verses around a reference.
	ContextWindower interface {
		Passages(ctx context.Context, book string, chapter, center, radius int) ([]corpus.Passage, error)
	}

	// PassageLookup resolves an exact reference to its passage.
	PassageLookup interface {
		GetByRef(ctx context.Context, ref string) (*corpus.Passage, error)
	}
)

// Tool input schemas. Field descriptions are surfaced to the model.
type (
	// SemanticSearchInput is the input schema for semantic_search.
	SemanticSearchInput struct {
		Query         string   `json:"query" jsonschema_description:"What the user is looking for, in natural language"`
		Limit         int      `json:"limit,omitempty" jsonschema_description:"Maximum passages to return (1-20)"`
		MinSimilarity *float64 `json:"min_similarity,omitempty" jsonschema_description:"Similarity threshold in [-1,1]; omit for the default"`
	}

	// TagSearchInput is the input schema for tag_search.
	TagSearchInput struct {
		Feeling string `json:"feeling" jsonschema_description:"A feeling word such as anxious, grief, or joy"`
		Limit   int    `json:"limit,omitempty" jsonschema_description:"Maximum passages to return (1-20)"`
	}

	// RelatedPassagesInput is the input schema for related_passages.
	RelatedPassagesInput struct {
		Reference string `json:"reference" jsonschema_description:"Canonical passage reference, e.g. Philippians 4:6"`
		Limit     int    `json:"limit,omitempty" jsonschema_description:"Maximum cross-references to return (1-20)"`
	}

	// LookupPassageInput is the input schema for lookup_passage.
	LookupPassageInput struct {
		Reference string `json:"reference" jsonschema_description:"Exact passage reference, e.g. Philippians 4:6"`
	}

	// ContextWindowInput is the input schema for context_window.
	ContextWindowInput struct {
		Book    string `json:"book" jsonschema_description:"Book name, e.g. Philippians"`
		Chapter int    `json:"chapter" jsonschema_description:"Chapter number"`
		Verse   int    `json:"verse" jsonschema_description:"Center verse number"`
		Radius  int    `json:"radius,omitempty" jsonschema_description:"Verses on each side (0-10); omit for the default"`
	}
)

// Strategies bundles the retrieval strategies and exact lookup behind the
// agent's tool surface, with the configured defaults applied to
// model-omitted parameters.
type Strategies struct {
	semantic SemanticSearcher
	tags     TagSearcher
	related  RelatedSearcher
	window   ContextWindower
	lookup   PassageLookup

	minSimilarity float64
	radius        int
	logger        *slog.Logger
}

// StrategiesConfig carries the dependencies and tunables for Strategies.
type StrategiesConfig struct {
	Semantic SemanticSearcher
	Tags     TagSearcher
	Related  RelatedSearcher
	Window   ContextWindower
	Lookup   PassageLookup

	// MinSimilarity is the default semantic threshold when the model omits
	// one. Intentionally permissive so the model sees marginal evidence.
	MinSimilarity float64
	// Radius is the default context-window half-width.
	Radius int

	Logger *slog.Logger
}

// NewStrategies creates the strategy dispatch surface.
func NewStrategies(cfg StrategiesConfig) (*Strategies, error) {
	if cfg.Semantic == nil || cfg.Tags == nil || cfg.Related == nil || cfg.Window == nil || cfg.Lookup == nil {
		return nil, fmt.Errorf("all retrieval strategies are required")
	}
	if cfg.Radius <= 0 {
		cfg.Radius = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Strategies{
		semantic:      cfg.Semantic,
		tags:          cfg.Tags,
		related:       cfg.Related,
		window:        cfg.Window,
		lookup:        cfg.Lookup,
		minSimilarity: cfg.MinSimilarity,
		radius:        cfg.Radius,
		logger:        cfg.Logger,
	}, nil
}

// RegisterTools registers the retrieval strategies as Genkit tools so the model
// sees their schemas. The loop runs with return-tool-requests enabled and
// executes requests through Execute, so these handlers also serve direct
// invocation paths such as the MCP server.
func RegisterTools(g *genkit.Genkit, s *Strategies) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if s == nil {
		return nil, fmt.Errorf("strategies are required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, retrieval.StrategySemantic,
			"Find passages whose meaning matches a natural-language query. "+
				"Use this when the user describes a situation, question, or theme. "+
				"Returns passages with similarity scores, best first.",
			func(ctx *ai.ToolContext, input SemanticSearchInput) ([]retrieval.Result, error) {
				return s.SemanticSearch(ctx, input)
			}),
		genkit.DefineTool(g, retrieval.StrategyTags,
			"Find passages tagged with an emotion matching a feeling word. "+
				"Use this when the user names how they feel, e.g. anxious, lonely, grateful. "+
				"The word is expanded through a synonym table before matching.",
			func(ctx *ai.ToolContext, input TagSearchInput) ([]retrieval.Result, error) {
				return s.TagSearch(ctx, input)
			}),
		genkit.DefineTool(g, retrieval.StrategyRelated,
			"Find passages cross-referenced from a given passage, strongest links first. "+
				"Use this after another search surfaced a passage worth following up.",
			func(ctx *ai.ToolContext, input RelatedPassagesInput) ([]retrieval.Result, error) {
				return s.RelatedPassages(ctx, input)
			}),
		genkit.DefineTool(g, retrieval.StrategyWindow,
			"Read the verses surrounding a reference so it can be quoted in context. "+
				"Use this before quoting a single verse found by another search.",
			func(ctx *ai.ToolContext, input ContextWindowInput) ([]retrieval.Result, error) {
				return s.ContextWindow(ctx, input)
			}),
		genkit.DefineTool(g, retrieval.StrategyLookup,
			"Fetch one passage by its exact reference, e.g. Philippians 4:6. "+
				"Use this when the user names a verse or when an exact quote is needed.",
			func(ctx *ai.ToolContext, input LookupPassageInput) ([]retrieval.Result, error) {
				return s.LookupPassage(ctx, input)
			}),
	}, nil
}

// SemanticSearch validates input, applies defaults, and runs the semantic
// strategy.
func (s *Strategies) SemanticSearch(ctx context.Context, input SemanticSearchInput) ([]retrieval.Result, error) {
	if input.Query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidStrategyRequest)
	}
	limit, err := clampLimit(input.Limit, defaultSemanticLimit)
	if err != nil {
		return nil, err
	}
	minSimilarity := s.minSimilarity
	if input.MinSimilarity != nil {
		minSimilarity = *input.MinSimilarity
		if minSimilarity < -1 || minSimilarity > 1 {
			return nil, fmt.Errorf("%w: min_similarity %f outside [-1,1]", ErrInvalidStrategyRequest, minSimilarity)
		}
	}
	return s.semantic.Search(ctx, input.Query, limit, minSimilarity)
}

// TagSearch validates input, applies defaults, and runs the tag strategy.
func (s *Strategies) TagSearch(ctx context.Context, input TagSearchInput) ([]retrieval.Result, error) {
	if input.Feeling == "" {
		return nil, fmt.Errorf("%w: feeling is required", ErrInvalidStrategyRequest)
	}
	limit, err := clampLimit(input.Limit, defaultTagLimit)
	if err != nil {
		return nil, err
	}
	return s.tags.Search(ctx, input.Feeling, limit)
}

// RelatedPassages validates input, applies defaults, and runs the
// cross-reference strategy.
func (s *Strategies) RelatedPassages(ctx context.Context, input RelatedPassagesInput) ([]retrieval.Result, error) {
	if input.Reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrInvalidStrategyRequest)
	}
	limit, err := clampLimit(input.Limit, defaultRelatedLimit)
	if err != nil {
		return nil, err
	}
	return s.related.Search(ctx, input.Reference, limit)
}

// ContextWindow validates input, applies defaults, and runs the window
// strategy. A range that matches nothing is reported as an empty result,
// not an error.
func (s *Strategies) ContextWindow(ctx context.Context, input ContextWindowInput) ([]retrieval.Result, error) {
	if input.Book == "" {
		return nil, fmt.Errorf("%w: book is required", ErrInvalidStrategyRequest)
	}
	if input.Chapter < 1 || input.Verse < 1 {
		return nil, fmt.Errorf("%w: chapter and verse must be >= 1, got %d:%d",
			ErrInvalidStrategyRequest, input.Chapter, input.Verse)
	}
	radius := input.Radius
	if radius == 0 {
		radius = s.radius
	}
	if radius < 0 || radius > maxWindowRadius {
		return nil, fmt.Errorf("%w: radius %d outside [0,%d]", ErrInvalidStrategyRequest, input.Radius, maxWindowRadius)
	}

	passages, err := s.window.Passages(ctx, input.Book, input.Chapter, input.Verse, radius)
	if err != nil {
		if errors.Is(err, retrieval.ErrContextNotFound) {
			return []retrieval.Result{}, nil
		}
		return nil, err
	}

	results := make([]retrieval.Result, 0, len(passages))
	for _, p := range passages {
		results = append(results, retrieval.Result{
			Reference: p.Reference,
			Text:      p.Text,
			Strategy:  retrieval.StrategyWindow,
		})
	}
	return results, nil
}

// LookupPassage resolves an exact reference. An unknown reference is an
// empty result, not an error, so the model can fall back to search.
func (s *Strategies) LookupPassage(ctx context.Context, input LookupPassageInput) ([]retrieval.Result, error) {
	if input.Reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrInvalidStrategyRequest)
	}

	p, err := s.lookup.GetByRef(ctx, input.Reference)
	if err != nil {
		if errors.Is(err, corpus.ErrPassageNotFound) {
			return []retrieval.Result{}, nil
		}
		return nil, err
	}

	return []retrieval.Result{{
		Reference: p.Reference,
		Text:      p.Text,
		Strategy:  retrieval.StrategyLookup,
	}}, nil
}

// Execute dispatches a model tool request to the named strategy. The
// dispatch table is closed: unknown names are invalid requests, never
// dynamic lookups.
func (s *Strategies) Execute(ctx context.Context, req *ai.ToolRequest) ([]retrieval.Result, error) {
	switch req.Name {
	case retrieval.StrategySemantic:
		input, err := decodeInput[SemanticSearchInput](req.Input)
		if err != nil {
			return nil, err
		}
		return s.SemanticSearch(ctx, input)
	case retrieval.StrategyTags:
		input, err := decodeInput[TagSearchInput](req.Input)
		if err != nil {
			return nil, err
		}
		return s.TagSearch(ctx, input)
	case retrieval.StrategyRelated:
		input, err := decodeInput[RelatedPassagesInput](req.Input)
		if err != nil {
			return nil, err
		}
		return s.RelatedPassages(ctx, input)
	case retrieval.StrategyWindow:
		input, err := decodeInput[ContextWindowInput](req.Input)
		if err != nil {
			return nil, err
		}
		return s.ContextWindow(ctx, input)
	case retrieval.StrategyLookup:
		input, err := decodeInput[LookupPassageInput](req.Input)
		if err != nil {
			return nil, err
		}
		return s.LookupPassage(ctx, input)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidStrategyRequest, req.Name)
	}
}

// decodeInput converts the type-erased tool input (a map decoded from model
// JSON) into the typed input struct via a JSON round trip.
func decodeInput[T any](raw any) (T, error) {
	var input T
	data, err := json.Marshal(raw)
	if err != nil {
		return input, fmt.Errorf("%w: encoding input: %v", ErrInvalidStrategyRequest, err)
	}
	if err := json.Unmarshal(data, &input); err != nil {
		return input, fmt.Errorf("%w: decoding input: %v", ErrInvalidStrategyRequest, err)
	}
	return input, nil
}

func clampLimit(limit, defaultVal int) (int, error) {
	if limit == 0 {
		return defaultVal, nil
	}
	if limit < 0 || limit > maxStrategyLimit {
		return 0, fmt.Errorf("%w: limit %d outside [1,%d]", ErrInvalidStrategyRequest, limit, maxStrategyLimit)
	}
	return limit, nil
}
