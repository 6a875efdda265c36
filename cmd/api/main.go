package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/audio"
	"github.com/gita-knowledge-api/internal/bootstrap"
	"github.com/gita-knowledge-api/internal/config"
	"github.com/gita-knowledge-api/internal/corpus"
	"github.com/gita-knowledge-api/internal/handlers"
	"github.com/gita-knowledge-api/internal/indexer"
	"github.com/gita-knowledge-api/internal/locale"
	logpkg "github.com/gita-knowledge-api/internal/logger"
	"github.com/gita-knowledge-api/internal/metrics"
	"github.com/gita-knowledge-api/internal/middleware"
	"github.com/gita-knowledge-api/internal/repository/redis"
	"github.com/gita-knowledge-api/internal/retrieval"
	schemacfg "github.com/gita-knowledge-api/pkg/schema/config"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Get configuration
	cfg := config.GetConfig()
	dbCfg := schemacfg.GetConfig()

	logger, err := logpkg.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting "+cfg.APITitle,
		zap.String("version", cfg.APIVersion),
		zap.String("env", cfg.Env),
		zap.String("backend", cfg.VectorBackend),
		zap.String("collection", cfg.CollectionName),
	)

	metrics.Register()
	ctx := context.Background()

	// Corpus
	chapter, err := corpus.Load(cfg.CorpusPath)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.String("path", cfg.CorpusPath), zap.Error(err))
	}
	logger.Info("Corpus loaded", zap.Int("chapter", chapter.Chapter()), zap.Int("verses", chapter.Len()))

	catalog, err := locale.Load()
	if err != nil {
		logger.Fatal("Failed to load locale catalog", zap.Error(err))
	}

	// Redis, when a cache needs it
	var kv *redis.Store
	if bootstrap.NeedsRedis(cfg) {
		kv, err = bootstrap.OpenRedis(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer kv.Close()
	}

	// Embedding function, shared by build and retrieval
	embeddings, err := bootstrap.NewEmbeddings(ctx, cfg, dbCfg, kv, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embeddings service", zap.Error(err))
	}

	// Vector index
	index, err := bootstrap.OpenIndex(ctx, cfg, dbCfg, logger)
	if err != nil {
		logger.Fatal("Failed to open vector index", zap.Error(err))
	}

	engine := retrieval.NewEngine(index, embeddings, retrieval.Options{
		TopK:       cfg.TopK,
		Threshold:  cfg.RelevanceThreshold,
		Dimensions: embeddings.Identity().Dimensions,
		Logger:     logger.Named("retrieval"),
	})

	// Build before serving questions
	builder := indexer.NewBuilder(index, embeddings, chapter.Verses(), indexer.Config{
		Collection: cfg.CollectionName,
		Logger:     logger.Named("indexer"),
	})
	if _, err := builder.Build(ctx); err != nil {
		logger.Fatal("Failed to build vector index", zap.Error(err))
	}
	if err := engine.MarkReady(ctx); err != nil {
		logger.Fatal("Vector index is not ready", zap.Error(err))
	}

	// Audio
	sessions, err := bootstrap.NewSessionCache(cfg, kv, logger)
	if err != nil {
		logger.Fatal("Failed to create audio session cache", zap.Error(err))
	}
	audioSvc := audio.NewService(
		audio.NewDiskStore(cfg.AudioDir),
		sessions,
		bootstrap.NewSynthesizer(ctx, logger),
		logger.Named("audio"),
	)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover(logger))
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.CORSMiddleware())

	// Create API group with prefix
	api := e.Group(cfg.APIPrefix)

	// Register handlers
	handlers.NewHealthHandler(index, engine, cfg.VectorBackend, cfg.CollectionName).RegisterRoutes(api)
	handlers.NewAskHandler(engine, catalog).RegisterRoutes(api)
	handlers.NewVerseHandler(chapter).RegisterRoutes(api)
	handlers.NewAudioHandler(audioSvc, chapter).RegisterRoutes(api)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Root health check
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"name":    cfg.APITitle,
			"version": cfg.APIVersion,
			"status":  "running",
		})
	})

	// Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down server", zap.Error(err))
	}

	bootstrap.CloseAll(logger, index, embeddings)

	logger.Info("Server stopped")
}
