package repository

import (
	"context"

	"github.com/gita-knowledge-api/internal/models"
)

// VectorIndex is a persistent collection of embedded verse documents.
// Implementations must allow concurrent Query and Count calls without external locking.
type VectorIndex interface {
	// Count returns the number of indexed documents
	Count(ctx context.Context) (int, error)

	// Upsert inserts or replaces documents with their embeddings, matched by position
	Upsert(ctx context.Context, docs []models.IndexedDocument, embeddings [][]float32) error

	// Query returns up to k nearest documents to the embedding, closest first,
	// including their stored embeddings and cosine distances
	Query(ctx context.Context, embedding []float32, k int) ([]models.Match, error)

	// Close releases resources held by the index
	Close() error
}

// SchemaStore records the embedding function an index was built with
type SchemaStore interface {
	// LoadSchema returns the recorded schema, or nil when none has been saved
	LoadSchema(ctx context.Context) (*models.IndexSchema, error)

	// SaveSchema records the schema
	SaveSchema(ctx context.Context, schema models.IndexSchema) error
}

// Index is a vector index that also records its schema
type Index interface {
	VectorIndex
	SchemaStore
}

// Exporter streams every indexed document in a stable order
type Exporter interface {
	All(ctx context.Context, fn func(models.Match) error) error
}
