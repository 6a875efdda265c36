package audio

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gita-knowledge-api/internal/metrics"
	"github.com/gita-knowledge-api/internal/models"
)

// Summary reports a Generate run
type Summary struct {
	Processed int `json:"processed"`
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Generator pre-renders tracks for every verse
type Generator struct {
	store   *DiskStore
	synth   Synthesizer
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGenerator creates a generator allowing perSecond synthesis calls per second
func NewGenerator(store *DiskStore, synth Synthesizer, perSecond float64, logger *zap.Logger) *Generator {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		store:   store,
		synth:   synth,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Generate renders missing tracks. Existing files are left alone. A failed
// verse is counted and skipped; only context cancellation aborts the run.
func (g *Generator) Generate(ctx context.Context, verses []models.Verse, langs []Language) (Summary, error) {
	var sum Summary
	for i, v := range verses {
		sum.Processed++
		for _, lang := range langs {
			if g.store.Exists(v.Verse, lang) {
				sum.Skipped++
				continue
			}

			data, err := synthesizeVerse(ctx, g.synth, lang.VerseText(v), lang, g.limiter.Wait)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sum, fmt.Errorf("generate audio: %w", ctxErr)
			}
			if err != nil {
				sum.Errors++
				metrics.AudioSynthesisTotal.WithLabelValues(string(lang), "error").Inc()
				g.logger.Warn("Failed to synthesize verse",
					zap.Int("verse", v.Verse), zap.String("lang", string(lang)), zap.Error(err))
				continue
			}
			metrics.AudioSynthesisTotal.WithLabelValues(string(lang), "ok").Inc()

			if err := g.store.Save(ctx, v.Verse, lang, data); err != nil {
				sum.Errors++
				g.logger.Warn("Failed to save audio",
					zap.Int("verse", v.Verse), zap.String("lang", string(lang)), zap.Error(err))
				continue
			}
			sum.Generated++
		}
		g.logger.Info("Processed verse",
			zap.Int("verse", v.Verse),
			zap.Int("done", i+1),
			zap.Int("total", len(verses)),
		)
	}
	return sum, nil
}
