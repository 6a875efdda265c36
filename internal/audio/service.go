// Package audio serves verse recitations and translations as MP3 tracks.
package audio

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gita-knowledge-api/internal/metrics"
	"github.com/gita-knowledge-api/internal/models"
)

// Service resolves tracks from the session cache, then the disk store.
// Synthesis is a separate, explicit call.
type Service struct {
	store  *DiskStore
	cache  SessionCache
	synth  Synthesizer
	logger *zap.Logger
}

// NewService creates an audio service. synth may be nil to disable synthesis.
func NewService(store *DiskStore, cache SessionCache, synth Synthesizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: cache, synth: synth, logger: logger}
}

// Resolve returns a precomputed track. A disk hit is remembered for the session.
func (s *Service) Resolve(ctx context.Context, session string, verse int, lang Language) ([]byte, error) {
	key := SessionKey(verse, lang)
	if data, ok := s.cache.Get(ctx, session, key); ok {
		metrics.AudioResolveTotal.WithLabelValues(string(lang), "session").Inc()
		return data, nil
	}

	data, err := s.store.Resolve(ctx, verse, lang)
	if err != nil {
		if errors.Is(err, models.ErrAudioNotFound) {
			metrics.AudioResolveTotal.WithLabelValues(string(lang), "miss").Inc()
		}
		return nil, err
	}
	metrics.AudioResolveTotal.WithLabelValues(string(lang), "disk").Inc()
	s.cache.Put(ctx, session, key, data)
	return data, nil
}

// Synthesize renders a verse track, stores it on disk and in the session
func (s *Service) Synthesize(ctx context.Context, session string, v models.Verse, lang Language) ([]byte, error) {
	if s.synth == nil {
		return nil, ErrSynthesisDisabled
	}

	data, err := synthesizeVerse(ctx, s.synth, lang.VerseText(v), lang, nil)
	if err != nil {
		metrics.AudioSynthesisTotal.WithLabelValues(string(lang), "error").Inc()
		return nil, fmt.Errorf("synthesize verse %d: %w", v.Verse, err)
	}
	metrics.AudioSynthesisTotal.WithLabelValues(string(lang), "ok").Inc()

	if err := s.store.Save(ctx, v.Verse, lang, data); err != nil {
		s.logger.Warn("Failed to save synthesized audio", zap.Int("verse", v.Verse), zap.String("lang", string(lang)), zap.Error(err))
	}
	s.cache.Put(ctx, session, SessionKey(v.Verse, lang), data)
	return data, nil
}

// ClearSession drops the session's cached tracks
func (s *Service) ClearSession(ctx context.Context, session string) error {
	return s.cache.Clear(ctx, session)
}
