package audio

import (
	"fmt"
	"strings"

	"github.com/gita-knowledge-api/internal/models"
)

// Language is an audio track language
type Language string

const (
	// Sanskrit reads the original verse. TTS has no Sanskrit voice, so Hindi is
	// used with Kannada as fallback.
	Sanskrit Language = "sa"
	Kannada  Language = "kn"
	English  Language = "en"
)

// Languages lists every supported track in display order
var Languages = []Language{Sanskrit, Kannada, English}

// ParseLanguage validates a language code
func ParseLanguage(code string) (Language, error) {
	switch l := Language(strings.ToLower(strings.TrimSpace(code))); l {
	case Sanskrit, Kannada, English:
		return l, nil
	}
	return "", fmt.Errorf("audio language %q: %w", code, models.ErrUnsupportedLanguage)
}

// VerseText returns the verse field read aloud for the language
func (l Language) VerseText(v models.Verse) string {
	switch l {
	case English:
		return v.EnglishTranslation
	case Kannada:
		return v.Translation
	default:
		return v.Text
	}
}

// Voices returns the TTS language codes to try, in order
func (l Language) Voices() []string {
	switch l {
	case Sanskrit:
		return []string{"hi-IN", "kn-IN"}
	case Kannada:
		return []string{"kn-IN"}
	default:
		return []string{"en-US"}
	}
}
