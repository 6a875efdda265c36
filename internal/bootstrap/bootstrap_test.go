package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/audio"
	"github.com/gita-knowledge-api/internal/config"
	"github.com/gita-knowledge-api/internal/models"
	schemacfg "github.com/gita-knowledge-api/pkg/schema/config"
)

func TestOpenIndex(t *testing.T) {
	ctx := context.Background()
	dbCfg := &schemacfg.Config{EmbeddingDimensions: 384}

	idx, err := OpenIndex(ctx, &config.Config{VectorBackend: "memory"}, dbCfg, zap.NewNop())
	require.NoError(t, err)
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	idx, err = OpenIndex(ctx, &config.Config{
		VectorBackend:  "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "index", "gita.db"),
		CollectionName: "gita_chapter_2_v3",
	}, dbCfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	_, err = OpenIndex(ctx, &config.Config{VectorBackend: "faiss"}, dbCfg, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = OpenIndex(ctx, &config.Config{VectorBackend: "pgvector"}, dbCfg, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestNewSessionCache(t *testing.T) {
	cache, err := NewSessionCache(&config.Config{SessionCache: "memory", AudioSessionTTL: time.Minute}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &audio.MemorySessionCache{}, cache)

	_, err = NewSessionCache(&config.Config{SessionCache: "redis"}, nil, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = NewSessionCache(&config.Config{SessionCache: "disk"}, nil, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestNewEmbeddings(t *testing.T) {
	ctx := context.Background()
	dbCfg := &schemacfg.Config{
		EmbeddingProvider:   "custom",
		EmbeddingServiceURL: "http://localhost:8001",
		EmbeddingModel:      "all-MiniLM-L6-v2",
		EmbeddingDimensions: 384,
	}

	svc, err := NewEmbeddings(ctx, &config.Config{EmbeddingCache: "none"}, dbCfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "all-MiniLM-L6-v2", svc.Identity().Model)

	_, err = NewEmbeddings(ctx, &config.Config{EmbeddingCache: "redis"}, dbCfg, nil, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrConfiguration)

	dbCfg.EmbeddingProvider = "word2vec"
	_, err = NewEmbeddings(ctx, &config.Config{EmbeddingCache: "none"}, dbCfg, nil, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
