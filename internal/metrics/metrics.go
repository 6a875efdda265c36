package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval, embedding and audio Prometheus metrics.
var (
	RetrievalOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gita",
			Name:      "retrieval_outcomes_total",
			Help:      "Retrieval outcomes by status",
		},
		[]string{"status"}, // answered, low_relevance, no_matches, invalid_query, not_ready
	)

	RetrievalTopSimilarity = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "gita",
			Name:      "retrieval_top_similarity",
			Help:      "Cosine similarity between the query and the top-ranked verse",
			Buckets:   []float64{-0.5, 0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gita",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "task"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gita",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "task"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gita",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // hit, miss
	)

	AudioResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gita",
			Name:      "audio_resolve_total",
			Help:      "Audio lookups by source",
		},
		[]string{"lang", "source"}, // session, disk, miss
	)

	AudioSynthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gita",
			Name:      "audio_synthesis_total",
			Help:      "Text-to-speech synthesis calls",
		},
		[]string{"lang", "status"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RetrievalOutcomesTotal,
			RetrievalTopSimilarity,
			EmbeddingRequestDuration,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			AudioResolveTotal,
			AudioSynthesisTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
