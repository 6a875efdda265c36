package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/metrics"
	"github.com/gita-knowledge-api/pkg/schema/config"
)

// ErrDimensionMismatch signals a vector whose length differs from the configured dimensions
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// EmbeddingsService is the single embedding function shared by index build and retrieval
type EmbeddingsService struct {
	embedder Embedder
	identity Identity
}

// Options configures optional decorators around the provider embedder
type Options struct {
	// Cache, when set, caches single-text embeddings
	Cache  KVStore
	Logger *zap.Logger
}

// NewEmbeddingsService builds the configured provider. Call once at startup and share the result.
func NewEmbeddingsService(ctx context.Context, cfg *config.Config, opts Options) (*EmbeddingsService, error) {
	var embedder Embedder
	switch cfg.EmbeddingProvider {
	case "vertex":
		var err error
		embedder, err = NewVertexEmbedder(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Vertex AI embedder: %w", err)
		}
	case "openai":
		var err error
		embedder, err = NewOpenAIEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedder: %w", err)
		}
	case "custom":
		embedder = NewCustomEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}

	identity := Identity{
		Provider:   cfg.EmbeddingProvider,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Cache != nil {
		embedder = NewCachedEmbedder(embedder, opts.Cache, identity, logger)
	}

	return NewEmbeddingsServiceWith(embedder, identity), nil
}

// NewEmbeddingsServiceWith wraps an existing embedder
func NewEmbeddingsServiceWith(embedder Embedder, identity Identity) *EmbeddingsService {
	return &EmbeddingsService{
		embedder: embedder,
		identity: identity,
	}
}

// Identity returns the embedding function identity recorded in the index schema
func (s *EmbeddingsService) Identity() Identity {
	return s.identity
}

// EmbedQuery embeds a query for retrieval
func (s *EmbeddingsService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	start := time.Now()
	vec, err := s.embedder.Embed(ctx, query, TaskTypeQuery)
	s.observe(TaskTypeQuery, start, err)
	if err != nil {
		return nil, err
	}
	if err := s.checkDimensions(vec); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return vec, nil
}

// EmbedDocuments embeds verse documents for indexing
func (s *EmbeddingsService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := s.embedder.EmbedBatch(ctx, texts, TaskTypeDocument)
	s.observe(TaskTypeDocument, start, err)
	if err != nil {
		return nil, err
	}
	for i, v := range vecs {
		if err := s.checkDimensions(v); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}
	return vecs, nil
}

func (s *EmbeddingsService) checkDimensions(v []float32) error {
	if s.identity.Dimensions > 0 && len(v) != s.identity.Dimensions {
		return fmt.Errorf("got %d dimensions, want %d: %w", len(v), s.identity.Dimensions, ErrDimensionMismatch)
	}
	return nil
}

// Close releases the provider client when it holds one
func (s *EmbeddingsService) Close() error {
	if c, ok := s.embedder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *EmbeddingsService) observe(task TaskType, start time.Time, err error) {
	if err != nil {
		metrics.EmbeddingErrorsTotal.WithLabelValues(s.identity.Provider, string(task)).Inc()
		return
	}
	metrics.EmbeddingRequestDuration.WithLabelValues(s.identity.Provider, string(task)).Observe(time.Since(start).Seconds())
}
