package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/metrics"
)

// ErrCacheMiss is returned by a KVStore when a key is absent
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the byte store backing the embedding cache
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder caches single-text embeddings in a key-value store.
// Keys include the embedding identity and task type, so a model change never serves stale vectors.
type CachedEmbedder struct {
	inner    Embedder
	store    KVStore
	identity Identity
	logger   *zap.Logger
}

// NewCachedEmbedder wraps inner with a cache
func NewCachedEmbedder(inner Embedder, store KVStore, identity Identity, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:    inner,
		store:    store,
		identity: identity,
		logger:   logger,
	}
}

// Embed returns a cached embedding or calls the inner embedder
func (c *CachedEmbedder) Embed(ctx context.Context, text string, taskType TaskType) ([]float32, error) {
	key := c.cacheKey(text, taskType)

	if vec, ok := c.get(ctx, key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return vec, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	vec, err := c.inner.Embed(ctx, text, taskType)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	if err := c.store.Set(ctx, key, vectorToBytes(vec)); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
	return vec, nil
}

// EmbedBatch is not cached; batches only happen during the one-time index build
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts, taskType)
}

// Close closes the inner embedder when it holds a client
func (c *CachedEmbedder) Close() error {
	if closer, ok := c.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *CachedEmbedder) cacheKey(text string, taskType TaskType) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%s\x00", c.identity.Provider, c.identity.Model, c.identity.Dimensions, taskType)
	h.Write([]byte(text))
	return "gita:emb:" + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
