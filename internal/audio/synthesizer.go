package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"
)

// ErrSynthesisDisabled is returned when no synthesizer is configured
var ErrSynthesisDisabled = errors.New("speech synthesis disabled")

// Synthesizer turns text into MP3 audio using a TTS voice locale such as "hi-IN"
type Synthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)
}

// GoogleSynthesizer calls Google Cloud Text-to-Speech
type GoogleSynthesizer struct {
	svc *texttospeech.Service
}

// NewGoogleSynthesizer creates a Text-to-Speech client using application default credentials
func NewGoogleSynthesizer(ctx context.Context, opts ...option.ClientOption) (*GoogleSynthesizer, error) {
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	return &GoogleSynthesizer{svc: svc}, nil
}

// Synthesize renders text as MP3
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	resp, err := g.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{LanguageCode: languageCode},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
		},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", languageCode, err)
	}

	data, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	return data, nil
}

// synthesizeVerse tries each voice for the language until one succeeds
func synthesizeVerse(ctx context.Context, s Synthesizer, text string, lang Language, wait func(context.Context) error) ([]byte, error) {
	var errs []error
	for _, voice := range lang.Voices() {
		if wait != nil {
			if err := wait(ctx); err != nil {
				return nil, err
			}
		}
		data, err := s.Synthesize(ctx, text, voice)
		if err == nil {
			return data, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}
