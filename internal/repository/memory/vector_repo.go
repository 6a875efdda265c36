package memory

import (
	"context"
	"sync"

	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/repository"
)

// Ensure VectorSearchRepository implements repository.Index and repository.Exporter
var (
	_ repository.Index    = (*VectorSearchRepository)(nil)
	_ repository.Exporter = (*VectorSearchRepository)(nil)
)

// VectorSearchRepository is an in-process exact-search index. Nothing survives a restart.
type VectorSearchRepository struct {
	mu     sync.RWMutex
	order  []string
	docs   map[string]models.Match
	schema *models.IndexSchema
}

// NewVectorSearchRepository creates an empty in-memory index
func NewVectorSearchRepository() *VectorSearchRepository {
	return &VectorSearchRepository{
		docs: make(map[string]models.Match),
	}
}

// Count returns the number of indexed documents
func (r *VectorSearchRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs), nil
}

// Upsert inserts or replaces documents
func (r *VectorSearchRepository) Upsert(_ context.Context, docs []models.IndexedDocument, embeddings [][]float32) error {
	if err := repository.CheckUpsert(docs, embeddings); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, doc := range docs {
		if _, exists := r.docs[doc.ID]; !exists {
			r.order = append(r.order, doc.ID)
		}
		emb := make([]float32, len(embeddings[i]))
		copy(emb, embeddings[i])
		r.docs[doc.ID] = models.Match{
			ID:        doc.ID,
			Metadata:  doc.Metadata,
			Embedding: emb,
		}
	}
	return nil
}

// Query returns the k nearest documents by cosine distance
func (r *VectorSearchRepository) Query(_ context.Context, embedding []float32, k int) ([]models.Match, error) {
	r.mu.RLock()
	candidates := make([]models.Match, 0, len(r.order))
	for _, id := range r.order {
		candidates = append(candidates, cloneMatch(r.docs[id]))
	}
	r.mu.RUnlock()

	return repository.RankByCosine(embedding, candidates, k), nil
}

// All streams every document in insertion order
func (r *VectorSearchRepository) All(_ context.Context, fn func(models.Match) error) error {
	r.mu.RLock()
	docs := make([]models.Match, 0, len(r.order))
	for _, id := range r.order {
		docs = append(docs, cloneMatch(r.docs[id]))
	}
	r.mu.RUnlock()

	for _, m := range docs {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// cloneMatch copies the embedding so callers cannot modify the stored vector
func cloneMatch(m models.Match) models.Match {
	m.Embedding = append([]float32(nil), m.Embedding...)
	return m
}

// LoadSchema returns the recorded schema
func (r *VectorSearchRepository) LoadSchema(_ context.Context) (*models.IndexSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.schema == nil {
		return nil, nil
	}
	s := *r.schema
	return &s, nil
}

// SaveSchema records the schema
func (r *VectorSearchRepository) SaveSchema(_ context.Context, schema models.IndexSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schema = &schema
	return nil
}

// Close is a no-op
func (r *VectorSearchRepository) Close() error {
	return nil
}
