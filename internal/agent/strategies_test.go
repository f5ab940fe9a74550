package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/selahapp/selah/internal/corpus"
	"github.com/selahapp/selah/internal/retrieval"
)

type fakeSemantic struct {
	results []retrieval.Result
	err     error

	gotQuery         string
	gotLimit         int
	gotMinSimilarity float64
}

func (f *fakeSemantic) Search(_ context.Context, queryText string, limit int, minSimilarity float64) ([]retrieval.Result, error) {
	f.gotQuery = queryText
	f.gotLimit = limit
	f.gotMinSimilarity = minSimilarity
	return f.results, f.err
}

type fakeTags struct {
	results []retrieval.Result
	err     error

	gotTerm  string
	gotLimit int
}

func (f *fakeTags) Search(_ context.Context, term string, limit int) ([]retrieval.Result, error) {
	f.gotTerm = term
	f.gotLimit = limit
	return f.results, f.err
}

type fakeRelated struct {
	results []retrieval.Result
	err     error

	gotRef   string
	gotLimit int
}

func (f *fakeRelated) Search(_ context.Context, passageRef string, limit int) ([]retrieval.Result, error) {
	f.gotRef = passageRef
	f.gotLimit = limit
	return f.results, f.err
}

type fakeWindow struct {
	passages []corpus.Passage
	err      error

	gotBook   string
	gotRadius int
}

func (f *fakeWindow) Passages(_ context.Context, book string, _, _, radius int) ([]corpus.Passage, error) {
	f.gotBook = book
	f.gotRadius = radius
	return f.passages, f.err
}

type fakeLookup struct {
	passage *corpus.Passage
	err     error

	gotRef string
}

func (f *fakeLookup) GetByRef(_ context.Context, ref string) (*corpus.Passage, error) {
	f.gotRef = ref
	if f.err != nil {
		return nil, f.err
	}
	if f.passage == nil {
		return nil, fmt.Errorf("%w: %q", corpus.ErrPassageNotFound, ref)
	}
	return f.passage, nil
}

type strategyFakes struct {
	semantic *fakeSemantic
	tags     *fakeTags
	related  *fakeRelated
	window   *fakeWindow
	lookup   *fakeLookup
}

func newTestStrategies(t *testing.T) (*Strategies, *strategyFakes) {
	t.Helper()
	fakes := &strategyFakes{
		semantic: &fakeSemantic{},
		tags:     &fakeTags{},
		related:  &fakeRelated{},
		window:   &fakeWindow{},
		lookup:   &fakeLookup{},
	}
	s, err := NewStrategies(StrategiesConfig{
		Semantic:      fakes.semantic,
		Tags:          fakes.tags,
		Related:       fakes.related,
		Window:        fakes.window,
		Lookup:        fakes.lookup,
		MinSimilarity: 0.25,
		Radius:        2,
	})
	if err != nil {
		t.Fatalf("NewStrategies() unexpected error: %v", err)
	}
	return s, fakes
}

func TestExecuteDispatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("semantic with defaults", func(t *testing.T) {
		t.Parallel()
		s, fakes := newTestStrategies(t)
		fakes.semantic.results = []retrieval.Result{{Reference: "Philippians 4:6"}}

		got, err := s.Execute(ctx, &ai.ToolRequest{
			Name:  retrieval.StrategySemantic,
			Input: map[string]any{"query": "anxiety about the future"},
		})
		if err != nil {
			t.Fatalf("Execute() unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Execute() returned %d results, want 1", len(got))
		}
		if fakes.semantic.gotLimit != defaultSemanticLimit {
			t.Errorf("semantic limit = %d, want default %d", fakes.semantic.gotLimit, defaultSemanticLimit)
		}
		if fakes.semantic.gotMinSimilarity != 0.25 {
			t.Errorf("semantic minSimilarity = %f, want configured 0.25", fakes.semantic.gotMinSimilarity)
		}
	})

	t.Run("semantic threshold override", func(t *testing.T) {
		t.Parallel()
		s, fakes := newTestStrategies(t)

		_, err := s.Execute(ctx, &ai.ToolRequest{
			Name:  retrieval.StrategySemantic,
			Input: map[string]any{"query": "hope", "min_similarity": 0.6, "limit": 3},
		})
		if err != nil {
			t.Fatalf("Execute() unexpected error: %v", err)
		}
		if fakes.semantic.gotMinSimilarity != 0.6 || fakes.semantic.gotLimit != 3 {
			t.Errorf("semantic got (minSimilarity, limit) = (%f, %d), want (0.6, 3)",
				fakes.semantic.gotMinSimilarity, fakes.semantic.gotLimit)
		}
	})

	t.Run("tags", func(t *testing.T) {
		t.Parallel()
		s, fakes := newTestStrategies(t)

		_, err := s.Execute(ctx, &ai.ToolRequest{
			Name:  retrieval.StrategyTags,
			Input: map[string]any{"feeling": "depression"},
		})
		if err != nil {
			t.Fatalf("Execute() unexpected error: %v", err)
		}
		if fakes.tags.gotTerm != "depression" || fakes.tags.gotLimit != defaultTagLimit {
			t.Errorf("tags got (term, limit) = (%q, %d), want (depression, %d)",
				fakes.tags.gotTerm, fakes.tags.gotLimit, defaultTagLimit)
		}
	})

	t.Run("related", func(t *testing.T) {
		t.Parallel()
		s, fakes := newTestStrategies(t)

		_, err := s.Execute(ctx, &ai.ToolRequest{
			Name:  retrieval.StrategyRelated,
			Input: map[string]any{"reference": "Philippians 4:6"},
		})
		if err != nil {
			t.Fatalf("Execute() unexpected error: %v", err)
		}
		if fakes.related.gotRef != "Philippians 4:6" || fakes.related.gotLimit != defaultRelatedLimit {
			t.Errorf("related got (ref, limit) = (%q, %d)", fakes.related.gotRef, fakes.related.gotLimit)
		}
	})

	t.Run("window with default radius", func(t *testing.T) {
		t.Parallel()
		s, fakes := newTestStrategies(t)
		fakes.window.passages = []corpus.Passage{
			{Reference: "Philippians 4:5", Text: "a"},
			{Reference: "Philippians 4:6", Text: "b"},
		}

		got, err := s.Execute(ctx, &ai.ToolRequest{
			Name:  retrieval.StrategyWindow,
			Input: map[string]any{"book": "Philippians", "chapter": 4, "verse": 6},
		})
		if err != nil {
			t.Fatalf("Execute() unexpected error: %v", err)
		}
		if fakes.window.gotRadius != 2 {
			t.Errorf("window radius = %d, want configured default 2", fakes.window.gotRadius)
		}
		if len(got) != 2 || got[0].Strategy != retrieval.StrategyWindow {
			t.Errorf("Execute() window results = %+v", got)
		}
	})

	t.Run("lookup hit", func(t *testing.T) {
		t.Parallel()
		s, fakes := newTestStrategies(t)
		fakes.lookup.passage = &corpus.Passage{Reference: "Philippians 4:6", Text: "Be anxious for nothing"}

		got, err := s.Execute(ctx, &ai.ToolRequest{
			Name:  retrieval.StrategyLookup,
			Input: map[string]any{"reference": "Philippians 4:6"},
		})
		if err != nil {
			t.Fatalf("Execute() unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Strategy != retrieval.StrategyLookup {
			t.Fatalf("Execute() lookup results = %+v", got)
		}
		if fakes.lookup.gotRef != "Philippians 4:6" {
			t.Errorf("lookup ref = %q", fakes.lookup.gotRef)
		}
	})

	t.Run("lookup miss is empty, not an error", func(t *testing.T) {
		t.Parallel()
		s, _ := newTestStrategies(t)

		got, err := s.Execute(ctx, &ai.ToolRequest{
			Name:  retrieval.StrategyLookup,
			Input: map[string]any{"reference": "Hezekiah 3:1"},
		})
		if err != nil {
			t.Fatalf("Execute() unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Execute() unknown reference returned %d results, want 0", len(got))
		}
	})

	t.Run("unknown strategy is invalid", func(t *testing.T) {
		t.Parallel()
		s, _ := newTestStrategies(t)

		_, err := s.Execute(ctx, &ai.ToolRequest{Name: "web_search", Input: map[string]any{}})
		if !errors.Is(err, ErrInvalidStrategyRequest) {
			t.Errorf("Execute() error = %v, want ErrInvalidStrategyRequest", err)
		}
	})
}

func TestExecuteInvalidParameters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name  string
		req   *ai.ToolRequest
	}{
		{
			name: "semantic missing query",
			req:  &ai.ToolRequest{Name: retrieval.StrategySemantic, Input: map[string]any{}},
		},
		{
			name: "semantic threshold out of range",
			req:  &ai.ToolRequest{Name: retrieval.StrategySemantic, Input: map[string]any{"query": "x", "min_similarity": 1.5}},
		},
		{
			name: "semantic limit over ceiling",
			req:  &ai.ToolRequest{Name: retrieval.StrategySemantic, Input: map[string]any{"query": "x", "limit": 100}},
		},
		{
			name: "tags missing feeling",
			req:  &ai.ToolRequest{Name: retrieval.StrategyTags, Input: map[string]any{}},
		},
		{
			name: "related missing reference",
			req:  &ai.ToolRequest{Name: retrieval.StrategyRelated, Input: map[string]any{}},
		},
		{
			name: "window missing book",
			req:  &ai.ToolRequest{Name: retrieval.StrategyWindow, Input: map[string]any{"chapter": 4, "verse": 6}},
		},
		{
			name: "window zero verse",
			req:  &ai.ToolRequest{Name: retrieval.StrategyWindow, Input: map[string]any{"book": "Psalms", "chapter": 23, "verse": 0}},
		},
		{
			name: "window radius over ceiling",
			req:  &ai.ToolRequest{Name: retrieval.StrategyWindow, Input: map[string]any{"book": "Psalms", "chapter": 23, "verse": 1, "radius": 50}},
		},
		{
			name: "malformed input shape",
			req:  &ai.ToolRequest{Name: retrieval.StrategySemantic, Input: map[string]any{"query": 42}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, _ := newTestStrategies(t)
			if _, err := s.Execute(ctx, tt.req); !errors.Is(err, ErrInvalidStrategyRequest) {
				t.Errorf("Execute() error = %v, want ErrInvalidStrategyRequest", err)
			}
		})
	}
}

func TestExecuteContextNotFoundIsEmptyResult(t *testing.T) {
	t.Parallel()
	s, fakes := newTestStrategies(t)
	fakes.window.err = fmt.Errorf("%w: Hezekiah 3:1", retrieval.ErrContextNotFound)

	got, err := s.Execute(context.Background(), &ai.ToolRequest{
		Name:  retrieval.StrategyWindow,
		Input: map[string]any{"book": "Hezekiah", "chapter": 3, "verse": 1},
	})
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Execute() returned %d results, want 0 for unknown range", len(got))
	}
}

func TestExecutePropagatesStrategyFailure(t *testing.T) {
	t.Parallel()
	s, fakes := newTestStrategies(t)
	fakes.semantic.err = &retrieval.StrategyError{
		Strategy: retrieval.StrategySemantic,
		Err:      errors.New("connection reset"),
	}

	_, err := s.Execute(context.Background(), &ai.ToolRequest{
		Name:  retrieval.StrategySemantic,
		Input: map[string]any{"query": "hope"},
	})
	var stratErr *retrieval.StrategyError
	if !errors.As(err, &stratErr) {
		t.Errorf("Execute() error = %v, want *StrategyError passed through", err)
	}
	if errors.Is(err, ErrInvalidStrategyRequest) {
		t.Error("Execute() store failure must not classify as invalid request")
	}
}
