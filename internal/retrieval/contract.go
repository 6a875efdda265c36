package retrieval

import (
	"context"

	"github.com/gita-knowledge-api/internal/models"
)

// Index is the read side of a vector index used by the engine.
type Index interface {
	Count(ctx context.Context) (int, error)
	Query(ctx context.Context, embedding []float32, k int) ([]models.Match, error)
}

// Embedder embeds user questions with the function the index was built with.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}
