package answer

import (
	"context"

	"github.com/rura-ai/rura/internal/domain"
)

// Embedder converts a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs a weighted search across logical collections.
type Searcher interface {
	SearchDocuments(ctx context.Context, base string, filter []domain.Collection, vector []float32, limit int) ([]domain.EmbeddedDocument, error)
}

// Generator produces a completion for one prompt.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}
