// Package bootstrap wires the configured backends shared by the API server and gitactl.
package bootstrap

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/audio"
	"github.com/gita-knowledge-api/internal/config"
	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/repository"
	"github.com/gita-knowledge-api/internal/repository/memory"
	"github.com/gita-knowledge-api/internal/repository/postgres"
	"github.com/gita-knowledge-api/internal/repository/redis"
	"github.com/gita-knowledge-api/internal/repository/sqlite"
	"github.com/gita-knowledge-api/internal/repository/vertex"
	schemacfg "github.com/gita-knowledge-api/pkg/schema/config"
	"github.com/gita-knowledge-api/pkg/schema/db"
	"github.com/gita-knowledge-api/pkg/schema/services"
)

// Index is a vector index that can also be exported
type Index interface {
	repository.Index
	repository.Exporter
}

// OpenIndex opens the backend named by cfg.VectorBackend
func OpenIndex(ctx context.Context, cfg *config.Config, dbCfg *schemacfg.Config, logger *zap.Logger) (Index, error) {
	switch cfg.VectorBackend {
	case "sqlite":
		logger.Info("Using SQLite vector index", zap.String("path", cfg.SQLitePath))
		sqliteDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
		}
		repo, err := sqlite.NewVectorSearchRepository(ctx, sqliteDB, cfg.CollectionName)
		if err != nil {
			_ = sqliteDB.Close()
			return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
		}
		return repo, nil

	case "pgvector":
		logger.Info("Using pgvector backend (exact search)")
		return openPostgres(ctx, cfg, dbCfg)

	case "vertex":
		logger.Info("Using Vertex AI Vector Search backend")
		meta, err := openPostgres(ctx, cfg, dbCfg)
		if err != nil {
			return nil, err
		}
		repo, err := vertex.NewVectorSearchRepository(ctx, vertex.Config{
			ProjectID:            cfg.VertexProjectID,
			Location:             cfg.VertexLocation,
			IndexID:              cfg.VertexIndexID,
			IndexEndpointID:      cfg.VertexIndexEndpointID,
			DeployedIndexID:      cfg.VertexDeployedIndexID,
			PublicEndpointDomain: cfg.VertexPublicEndpointDomain,
		}, meta)
		if err != nil {
			_ = meta.Close()
			return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
		}
		return repo, nil

	case "memory":
		logger.Warn("Using in-memory vector index; the index is rebuilt on every start")
		return memory.NewVectorSearchRepository(), nil
	}
	return nil, fmt.Errorf("unknown vector backend %q: %w", cfg.VectorBackend, models.ErrConfiguration)
}

func openPostgres(ctx context.Context, cfg *config.Config, dbCfg *schemacfg.Config) (*postgres.VectorSearchRepository, error) {
	pgDB, err := db.OpenPostgres(ctx, dbCfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}
	repo, err := postgres.NewVectorSearchRepository(ctx, pgDB, cfg.CollectionName, dbCfg.EmbeddingDimensions)
	if err != nil {
		_ = pgDB.Close()
		return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}
	return repo, nil
}

// NeedsRedis reports whether any configured component uses Redis
func NeedsRedis(cfg *config.Config) bool {
	return cfg.SessionCache == "redis" || cfg.EmbeddingCache == "redis"
}

// OpenRedis connects to Redis and verifies connectivity
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Store, error) {
	store, err := redis.NewStore(redis.Config{
		Addrs:    cfg.RedisAddrs,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: redis: %w", models.ErrConfiguration, err)
	}
	return store, nil
}

// NewEmbeddings creates the single embedding function, cached in kv when configured.
// kv may be nil.
func NewEmbeddings(ctx context.Context, cfg *config.Config, dbCfg *schemacfg.Config, kv *redis.Store, logger *zap.Logger) (*services.EmbeddingsService, error) {
	opts := services.Options{Logger: logger}
	if cfg.EmbeddingCache == "redis" {
		if kv == nil {
			return nil, fmt.Errorf("embedding cache needs redis: %w", models.ErrConfiguration)
		}
		opts.Cache = kv
	}

	svc, err := services.NewEmbeddingsService(ctx, dbCfg, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}
	id := svc.Identity()
	logger.Info("Embedding function ready",
		zap.String("provider", id.Provider),
		zap.String("model", id.Model),
		zap.Int("dimensions", id.Dimensions),
		zap.Bool("cached", opts.Cache != nil),
	)
	return svc, nil
}

// NewSessionCache creates the audio session cache. kv may be nil for the memory cache.
func NewSessionCache(cfg *config.Config, kv *redis.Store, logger *zap.Logger) (audio.SessionCache, error) {
	switch cfg.SessionCache {
	case "memory":
		return audio.NewMemorySessionCache(cfg.AudioSessionTTL), nil
	case "redis":
		if kv == nil {
			return nil, fmt.Errorf("session cache needs redis: %w", models.ErrConfiguration)
		}
		return audio.NewKVSessionCache(kv, cfg.AudioSessionTTL, logger), nil
	}
	return nil, fmt.Errorf("unknown session cache %q: %w", cfg.SessionCache, models.ErrConfiguration)
}

// NewSynthesizer creates the Google Text-to-Speech client. On failure it returns nil
// and synthesis is disabled.
func NewSynthesizer(ctx context.Context, logger *zap.Logger) audio.Synthesizer {
	synth, err := audio.NewGoogleSynthesizer(ctx)
	if err != nil {
		logger.Warn("Speech synthesis disabled", zap.Error(err))
		return nil
	}
	return synth
}

// CloseAll closes every non-nil closer, logging failures
func CloseAll(logger *zap.Logger, closers ...io.Closer) {
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Error("Error closing resource", zap.Error(err))
		}
	}
}
