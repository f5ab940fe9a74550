package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/selahapp/selah/internal/corpus"
)

// windowReader is the corpus surface the context strategy needs.
type windowReader interface {
	Window(ctx context.Context, book string, chapter, center, radius int) ([]corpus.Passage, error)
}

// Window retrieves the passages surrounding a verse so a single retrieved
// verse can be read in its chapter context.
type Window struct {
	store  windowReader
	logger *slog.Logger
}

// NewWindow creates the context-window strategy.
func NewWindow(store windowReader, logger *slog.Logger) (*Window, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Window{store: store, logger: logger}, nil
}

// Passages returns the verses of (book, chapter) in [center-radius,
// center+radius] clipped at 1, ordered ascending. Returns
// ErrContextNotFound when the clipped range matches nothing, typically an
// unknown book or chapter.
func (w *Window) Passages(ctx context.Context, book string, chapter, center, radius int) ([]corpus.Passage, error) {
	if book == "" {
		return nil, &StrategyError{Strategy: StrategyWindow, Err: fmt.Errorf("book is empty")}
	}
	if chapter < 1 || center < 1 {
		return nil, &StrategyError{Strategy: StrategyWindow, Err: fmt.Errorf("chapter and verse must be >= 1, got %d:%d", chapter, center)}
	}
	if radius < 0 {
		return nil, &StrategyError{Strategy: StrategyWindow, Err: fmt.Errorf("radius must be non-negative, got %d", radius)}
	}

	passages, err := w.store.Window(ctx, book, chapter, center, radius)
	if err != nil {
		return nil, &StrategyError{Strategy: StrategyWindow, Err: err}
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: %s %d:%d", ErrContextNotFound, book, chapter, center)
	}

	w.logger.Debug("context window",
		"book", book, "chapter", chapter, "center", center, "radius", radius, "passages", len(passages))
	return passages, nil
}
