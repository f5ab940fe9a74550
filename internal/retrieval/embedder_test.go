package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

type mockGenkitEmbedder struct {
	resp *ai.EmbedResponse
	err  error
}

func (m *mockGenkitEmbedder) Name() string { return "mock-embedder" }

func (m *mockGenkitEmbedder) Register(_ api.Registry) {}

func (m *mockGenkitEmbedder) Embed(_ context.Context, _ *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	return m.resp, m.err
}

func TestGenkitEmbedder(t *testing.T) {
	t.Parallel()

	want := []float32{0.1, 0.2, 0.3}
	emb, err := NewGenkitEmbedder(&mockGenkitEmbedder{
		resp: &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: want}}},
	})
	if err != nil {
		t.Fatalf("NewGenkitEmbedder() unexpected error: %v", err)
	}

	got, err := emb.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Embed() unexpected error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Embed() returned %d dims, want %d", len(got), len(want))
	}
}

func TestGenkitEmbedderErrors(t *testing.T) {
	t.Parallel()

	t.Run("provider failure", func(t *testing.T) {
		t.Parallel()
		emb, err := NewGenkitEmbedder(&mockGenkitEmbedder{err: errors.New("unreachable")})
		if err != nil {
			t.Fatalf("NewGenkitEmbedder() unexpected error: %v", err)
		}
		if _, err := emb.Embed(context.Background(), "text"); err == nil {
			t.Error("Embed() expected error, got nil")
		}
	})

	t.Run("empty response", func(t *testing.T) {
		t.Parallel()
		emb, err := NewGenkitEmbedder(&mockGenkitEmbedder{resp: &ai.EmbedResponse{}})
		if err != nil {
			t.Fatalf("NewGenkitEmbedder() unexpected error: %v", err)
		}
		if _, err := emb.Embed(context.Background(), "text"); err == nil {
			t.Error("Embed() expected error, got nil")
		}
	})

	t.Run("nil embedder", func(t *testing.T) {
		t.Parallel()
		if _, err := NewGenkitEmbedder(nil); err == nil {
			t.Error("NewGenkitEmbedder(nil) expected error, got nil")
		}
	})
}
