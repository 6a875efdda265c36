// Command gitactl administers the verse index and the audio store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/bootstrap"
	"github.com/gita-knowledge-api/internal/config"
	"github.com/gita-knowledge-api/internal/corpus"
	logpkg "github.com/gita-knowledge-api/internal/logger"
	"github.com/gita-knowledge-api/internal/repository/redis"
	schemacfg "github.com/gita-knowledge-api/pkg/schema/config"
	"github.com/gita-knowledge-api/pkg/schema/services"
)

var jsonOutput bool

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gitactl",
		Short: "Administer the Gita knowledge index and audio store",
		Long: `gitactl builds and verifies the verse vector index, pre-generates
verse audio and exports embeddings for Vertex AI Vector Search.
Settings are read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(
		newBuildIndexCmd(),
		newVerifyCmd(),
		newGenerateAudioCmd(),
		newExportCmd(),
		newVertexCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// env holds the resources a command opened
type env struct {
	cfg        *config.Config
	dbCfg      *schemacfg.Config
	logger     *zap.Logger
	chapter    *corpus.Corpus
	kv         *redis.Store
	embeddings *services.EmbeddingsService
	index      bootstrap.Index
}

type openOptions struct {
	embeddings bool
	index      bool
}

func openEnv(ctx context.Context, opts openOptions) (*env, error) {
	cfg := config.GetConfig()
	logger, err := logpkg.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	e := &env{cfg: cfg, dbCfg: schemacfg.GetConfig(), logger: logger}

	e.chapter, err = corpus.Load(cfg.CorpusPath)
	if err != nil {
		return nil, err
	}

	if opts.embeddings {
		if cfg.EmbeddingCache == "redis" {
			e.kv, err = bootstrap.OpenRedis(ctx, cfg)
			if err != nil {
				return nil, err
			}
		}
		e.embeddings, err = bootstrap.NewEmbeddings(ctx, cfg, e.dbCfg, e.kv, logger)
		if err != nil {
			e.close()
			return nil, err
		}
	}

	if opts.index {
		e.index, err = bootstrap.OpenIndex(ctx, cfg, e.dbCfg, logger)
		if err != nil {
			e.close()
			return nil, err
		}
	}
	return e, nil
}

func (e *env) close() {
	if e.index != nil {
		bootstrap.CloseAll(e.logger, e.index)
	}
	if e.embeddings != nil {
		bootstrap.CloseAll(e.logger, e.embeddings)
	}
	if e.kv != nil {
		e.kv.Close()
	}
	_ = e.logger.Sync()
}
