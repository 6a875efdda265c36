// Package indexer builds the verse vector index once at startup.
package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/repository"
	"github.com/gita-knowledge-api/pkg/schema/services"
)

const defaultBatchSize = 32

// Embedder embeds verse documents and reports the function it uses
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Identity() services.Identity
}

// Config configures a Builder
type Config struct {
	Collection string
	BatchSize  int
	Logger     *zap.Logger
}

// BuildResult summarizes a Build call
type BuildResult struct {
	Collection string        `json:"collection"`
	Documents  int           `json:"documents"`
	Skipped    bool          `json:"skipped"`
	Duration   time.Duration `json:"duration_ns"`
}

// Builder embeds every verse and writes it to the index
type Builder struct {
	index    repository.Index
	embedder Embedder
	verses   []models.Verse
	cfg      Config
}

// NewBuilder creates a builder for the given verses
func NewBuilder(index repository.Index, embedder Embedder, verses []models.Verse, cfg Config) *Builder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Builder{
		index:    index,
		embedder: embedder,
		verses:   verses,
		cfg:      cfg,
	}
}

// Schema returns the schema this builder writes and expects
func (b *Builder) Schema() models.IndexSchema {
	id := b.embedder.Identity()
	return models.IndexSchema{
		Collection:        b.cfg.Collection,
		EmbeddingProvider: id.Provider,
		EmbeddingModel:    id.Model,
		Dimensions:        id.Dimensions,
		DocumentTemplate:  models.DocumentTemplate,
	}
}

// Build populates an empty index. An index with a recorded schema is complete and left untouched.
// Documents without a recorded schema are the remains of an interrupted build and are rewritten.
// A recorded schema that differs from the configured embedding function is a configuration error.
func (b *Builder) Build(ctx context.Context) (BuildResult, error) {
	start := time.Now()
	res := BuildResult{Collection: b.cfg.Collection}
	want := b.Schema()

	recorded, err := b.index.LoadSchema(ctx)
	if err != nil {
		return res, fmt.Errorf("load index schema: %w", err)
	}
	if recorded != nil {
		if err := want.Compatible(*recorded); err != nil {
			return res, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
		}
	}

	count, err := b.index.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count index: %w", err)
	}
	if count > 0 && recorded != nil {
		res.Documents = count
		res.Skipped = true
		res.Duration = time.Since(start)
		b.cfg.Logger.Info("Index already populated, skipping build",
			zap.String("collection", b.cfg.Collection),
			zap.Int("documents", count),
		)
		return res, nil
	}
	if count > 0 {
		b.cfg.Logger.Warn("Index has documents but no schema, rebuilding",
			zap.String("collection", b.cfg.Collection),
			zap.Int("documents", count),
		)
	}

	docs := make([]models.IndexedDocument, len(b.verses))
	for i, v := range b.verses {
		docs[i] = models.NewIndexedDocument(v)
	}

	// Embed everything before writing so an embedding failure leaves the index as it was.
	embeddings := make([][]float32, 0, len(docs))
	for s := 0; s < len(docs); s += b.cfg.BatchSize {
		e := min(s+b.cfg.BatchSize, len(docs))

		texts := make([]string, 0, e-s)
		for _, d := range docs[s:e] {
			texts = append(texts, d.Text)
		}
		batch, err := b.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return res, fmt.Errorf("embed documents %d-%d: %w", s, e, err)
		}
		embeddings = append(embeddings, batch...)
		b.cfg.Logger.Debug("Embedded batch", zap.Int("from", s), zap.Int("to", e))
	}

	if err := b.index.Upsert(ctx, docs, embeddings); err != nil {
		return res, fmt.Errorf("upsert documents: %w", err)
	}

	// The schema marks the build as complete.
	if err := b.index.SaveSchema(ctx, want); err != nil {
		return res, fmt.Errorf("save index schema: %w", err)
	}

	res.Documents = len(docs)
	res.Duration = time.Since(start)
	b.cfg.Logger.Info("Index built",
		zap.String("collection", b.cfg.Collection),
		zap.Int("documents", res.Documents),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}
