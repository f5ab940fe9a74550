package retrieval

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"

	"github.com/selahapp/selah/internal/corpus"
)

// GenkitEmbedder adapts a Genkit embedder to the Embedder interface,
// requesting vectors truncated to the corpus dimension
// (Matryoshka Representation Learning).
type GenkitEmbedder struct {
	embedder ai.Embedder
}

// NewGenkitEmbedder wraps a provider-registered Genkit embedder.
func NewGenkitEmbedder(embedder ai.Embedder) (*GenkitEmbedder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	return &GenkitEmbedder{embedder: embedder}, nil
}

// Embed converts text to a fixed-dimension vector.
func (e *GenkitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := corpus.VectorDimension
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Embeddings[0].Embedding, nil
}
