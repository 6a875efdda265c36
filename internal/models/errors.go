package models

import "errors"

var (
	// ErrConfiguration marks startup failures: corpus missing or malformed, index init failure.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotReady signals that the index has not been built yet.
	ErrNotReady = errors.New("index not ready")
	// ErrInvalidQuery signals an empty or unembeddable query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrSchemaMismatch signals that the index was built with a different embedding function.
	ErrSchemaMismatch = errors.New("index schema mismatch")
	// ErrAudioNotFound signals that no precomputed audio exists for a verse and language.
	ErrAudioNotFound = errors.New("audio not found")
	// ErrUnsupportedLanguage signals an unknown audio or display language.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrVerseNotFound signals a verse number outside the loaded chapter.
	ErrVerseNotFound = errors.New("verse not found")
)
