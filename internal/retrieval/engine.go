// Package retrieval answers questions against the verse index: it embeds the
// query, fetches the nearest verses, gates on the top candidate's similarity
// and scores every returned verse.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/metrics"
	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/vecmath"
	"github.com/gita-knowledge-api/pkg/schema/services"
)

// Status is the outcome of a retrieval that reached the index.
type Status string

const (
	StatusAnswered     Status = "answered"
	StatusLowRelevance Status = "low_relevance"
	StatusNoMatches    Status = "no_matches"
)

// Defaults used when an Options field is zero. A zero Threshold cannot be requested.
const (
	DefaultTopK      = 3
	DefaultThreshold = 0.3
)

// Options configures the engine.
type Options struct {
	TopK      int
	Threshold float64
	// Dimensions, when set, is the embedding length the index was built with
	Dimensions int
	Logger     *zap.Logger
}

// Candidate is one returned verse with its relevance to the query.
type Candidate struct {
	ID        string
	Verse     models.Verse
	Distance  float64
	Relevance float64
}

// Result is the outcome of Retrieve.
// TopSimilarity is set for Answered and LowRelevance; Candidates only for Answered.
type Result struct {
	Query            string
	Status           Status
	TopSimilarity    float64
	ContextPrecision float64
	Candidates       []Candidate
}

// Engine runs retrievals. It is safe for concurrent use once MarkReady has returned.
type Engine struct {
	index      Index
	embedder   Embedder
	topK       int
	threshold  float64
	dimensions int
	logger     *zap.Logger
	ready      atomic.Bool
}

// NewEngine creates an engine that refuses queries until MarkReady succeeds.
func NewEngine(index Index, embedder Embedder, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		index:      index,
		embedder:   embedder,
		topK:       opts.TopK,
		threshold:  opts.Threshold,
		dimensions: opts.Dimensions,
		logger:     opts.Logger,
	}
}

// TopK returns the default number of verses fetched per question.
func (e *Engine) TopK() int { return e.topK }

// Threshold returns the relevance threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

// Ready reports whether MarkReady has succeeded.
func (e *Engine) Ready() bool { return e.ready.Load() }

// MarkReady opens the engine for queries. Call it after the index build completes.
func (e *Engine) MarkReady(ctx context.Context) error {
	n, err := e.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("count index: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("index is empty: %w", models.ErrNotReady)
	}
	e.ready.Store(true)
	e.logger.Info("Retrieval engine ready", zap.Int("documents", n))
	return nil
}

// checkEmbedding rejects vectors that cannot be compared with the index.
func (e *Engine) checkEmbedding(v []float32) error {
	switch {
	case len(v) == 0:
		return fmt.Errorf("query produced an empty embedding: %w", models.ErrInvalidQuery)
	case e.dimensions > 0 && len(v) != e.dimensions:
		return fmt.Errorf("query embedding has %d dimensions, index has %d: %w", len(v), e.dimensions, models.ErrInvalidQuery)
	case vecmath.IsZero(v):
		return fmt.Errorf("query produced a zero embedding: %w", models.ErrInvalidQuery)
	}
	return nil
}

// Retrieve answers a question. k <= 0 uses the configured TopK.
func (e *Engine) Retrieve(ctx context.Context, query string, k int) (*Result, error) {
	if !e.ready.Load() {
		metrics.RetrievalOutcomesTotal.WithLabelValues("not_ready").Inc()
		return nil, models.ErrNotReady
	}
	if strings.TrimSpace(query) == "" {
		metrics.RetrievalOutcomesTotal.WithLabelValues("invalid_query").Inc()
		return nil, fmt.Errorf("empty query: %w", models.ErrInvalidQuery)
	}
	if k <= 0 {
		k = e.topK
	}

	qvec, err := e.embedder.EmbedQuery(ctx, query)
	if errors.Is(err, services.ErrDimensionMismatch) {
		metrics.RetrievalOutcomesTotal.WithLabelValues("invalid_query").Inc()
		return nil, fmt.Errorf("embed query: %w: %w", models.ErrInvalidQuery, err)
	}
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := e.checkEmbedding(qvec); err != nil {
		metrics.RetrievalOutcomesTotal.WithLabelValues("invalid_query").Inc()
		e.logger.Warn("Query embedding rejected", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	matches, err := e.index.Query(ctx, qvec, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	res := &Result{Query: query}
	if len(matches) == 0 {
		res.Status = StatusNoMatches
		metrics.RetrievalOutcomesTotal.WithLabelValues(string(res.Status)).Inc()
		e.logger.Warn("No matching verses", zap.String("query", query), zap.Int("k", k))
		return res, nil
	}

	res.TopSimilarity = vecmath.Cosine(qvec, matches[0].Embedding)
	metrics.RetrievalTopSimilarity.Observe(res.TopSimilarity)

	if res.TopSimilarity < e.threshold {
		res.Status = StatusLowRelevance
		metrics.RetrievalOutcomesTotal.WithLabelValues(string(res.Status)).Inc()
		e.logger.Warn("Top verse below relevance threshold",
			zap.String("query", query),
			zap.String("verse_id", matches[0].ID),
			zap.Float64("similarity", res.TopSimilarity),
			zap.Float64("threshold", e.threshold),
		)
		return res, nil
	}

	sims := make([]float64, len(matches))
	res.Candidates = make([]Candidate, len(matches))
	for i, m := range matches {
		sims[i] = vecmath.Cosine(qvec, m.Embedding)
		res.Candidates[i] = Candidate{
			ID:        m.ID,
			Verse:     m.Metadata,
			Distance:  m.Distance,
			Relevance: sims[i],
		}
	}
	res.ContextPrecision = ContextPrecision(sims, e.threshold)
	res.Status = StatusAnswered
	metrics.RetrievalOutcomesTotal.WithLabelValues(string(res.Status)).Inc()

	e.logger.Info("Answered question",
		zap.String("query", query),
		zap.Int("results", len(res.Candidates)),
		zap.Float64("top_similarity", res.TopSimilarity),
		zap.Float64("context_precision", res.ContextPrecision),
	)
	return res, nil
}

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1], or 0
// when the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	return vecmath.Cosine(a, b)
}

// ContextPrecision is the fraction of similarities strictly above threshold.
// An empty slice yields 0.
func ContextPrecision(sims []float64, threshold float64) float64 {
	if len(sims) == 0 {
		return 0
	}
	above := 0
	for _, s := range sims {
		if s > threshold {
			above++
		}
	}
	return float64(above) / float64(len(sims))
}
