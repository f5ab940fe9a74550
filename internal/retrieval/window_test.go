package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/selahapp/selah/internal/corpus"
)

type fakeWindowReader struct {
	passages []corpus.Passage
	err      error

	gotCenter int
	gotRadius int
}

func (f *fakeWindowReader) Window(_ context.Context, _ string, _, center, radius int) ([]corpus.Passage, error) {
	f.gotCenter = center
	f.gotRadius = radius
	return f.passages, f.err
}

func TestWindowPassages(t *testing.T) {
	t.Parallel()

	store := &fakeWindowReader{passages: []corpus.Passage{
		{Reference: "Philippians 4:4", Book: "Philippians", Chapter: 4, Verse: 4},
		{Reference: "Philippians 4:5", Book: "Philippians", Chapter: 4, Verse: 5},
		{Reference: "Philippians 4:6", Book: "Philippians", Chapter: 4, Verse: 6},
		{Reference: "Philippians 4:7", Book: "Philippians", Chapter: 4, Verse: 7},
		{Reference: "Philippians 4:8", Book: "Philippians", Chapter: 4, Verse: 8},
	}}
	win, err := NewWindow(store, nil)
	if err != nil {
		t.Fatalf("NewWindow() unexpected error: %v", err)
	}

	got, err := win.Passages(context.Background(), "Philippians", 4, 6, 2)
	if err != nil {
		t.Fatalf("Passages() unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("Passages() returned %d passages, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Verse <= got[i-1].Verse {
			t.Errorf("Passages() not ascending at index %d", i)
		}
	}
	if store.gotCenter != 6 || store.gotRadius != 2 {
		t.Errorf("Passages() forwarded (center, radius) = (%d, %d), want (6, 2)",
			store.gotCenter, store.gotRadius)
	}
}

func TestWindowPassagesEmptyIsContextNotFound(t *testing.T) {
	t.Parallel()

	win, err := NewWindow(&fakeWindowReader{}, nil)
	if err != nil {
		t.Fatalf("NewWindow() unexpected error: %v", err)
	}

	_, err = win.Passages(context.Background(), "Hezekiah", 3, 1, 2)
	if !errors.Is(err, ErrContextNotFound) {
		t.Errorf("Passages() error = %v, want ErrContextNotFound", err)
	}
}

func TestWindowPassagesStoreFailure(t *testing.T) {
	t.Parallel()

	win, err := NewWindow(&fakeWindowReader{err: errors.New("connection reset")}, nil)
	if err != nil {
		t.Fatalf("NewWindow() unexpected error: %v", err)
	}

	_, err = win.Passages(context.Background(), "Philippians", 4, 6, 2)
	var stratErr *StrategyError
	if !errors.As(err, &stratErr) {
		t.Fatalf("Passages() error = %v, want *StrategyError", err)
	}
	if stratErr.Strategy != StrategyWindow {
		t.Errorf("StrategyError.Strategy = %q, want %q", stratErr.Strategy, StrategyWindow)
	}
}

func TestWindowPassagesValidation(t *testing.T) {
	t.Parallel()

	win, err := NewWindow(&fakeWindowReader{}, nil)
	if err != nil {
		t.Fatalf("NewWindow() unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		book    string
		chapter int
		center  int
		radius  int
	}{
		{name: "empty book", book: "", chapter: 4, center: 6, radius: 2},
		{name: "zero chapter", book: "Philippians", chapter: 0, center: 6, radius: 2},
		{name: "zero verse", book: "Philippians", chapter: 4, center: 0, radius: 2},
		{name: "negative radius", book: "Philippians", chapter: 4, center: 6, radius: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := win.Passages(context.Background(), tt.book, tt.chapter, tt.center, tt.radius); err == nil {
				t.Error("Passages() expected error, got nil")
			}
		})
	}
}
