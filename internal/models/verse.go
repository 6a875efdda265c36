package models

import (
	"fmt"
	"strings"
)

// Verse is one verse of the loaded chapter
type Verse struct {
	Verse              int    `json:"verse" db:"verse"`
	Text               string `json:"text" db:"text"`
	Translation        string `json:"translation" db:"translation"`
	EnglishTranslation string `json:"english_translation" db:"english_translation"`
}

// DocumentID returns the stable index key for the verse
func (v Verse) DocumentID() string {
	return DocumentID(v.Verse)
}

// DocumentID formats a verse number as an index key
func DocumentID(verse int) string {
	return fmt.Sprintf("verse_%d", verse)
}

// DocumentTemplate names the field order used to build embeddable text.
// It is recorded in the index schema; changing it requires a new collection.
const DocumentTemplate = "english_translation translation text"

// IndexedDocument is the embeddable unit derived from a Verse
type IndexedDocument struct {
	ID       string `json:"id" db:"id"`
	Text     string `json:"document" db:"document"`
	Metadata Verse  `json:"metadata"`
}

// NewIndexedDocument builds the document for a verse in DocumentTemplate order
func NewIndexedDocument(v Verse) IndexedDocument {
	return IndexedDocument{
		ID:       v.DocumentID(),
		Text:     strings.Join([]string{v.EnglishTranslation, v.Translation, v.Text}, " "),
		Metadata: v,
	}
}

// Match is one nearest-neighbour hit returned by a vector index
type Match struct {
	ID        string
	Metadata  Verse
	Embedding []float32
	// Distance is the cosine distance (1 - similarity) reported by the index
	Distance float64
}

// IndexSchema records how an index was built so queries can reuse the same embedding function
type IndexSchema struct {
	Collection        string `json:"collection" db:"collection"`
	EmbeddingProvider string `json:"embedding_provider" db:"embedding_provider"`
	EmbeddingModel    string `json:"embedding_model" db:"embedding_model"`
	Dimensions        int    `json:"dimensions" db:"dimensions"`
	DocumentTemplate  string `json:"document_template" db:"document_template"`
}

// Compatible reports whether two schemas describe the same embedding function and layout
func (s IndexSchema) Compatible(other IndexSchema) error {
	switch {
	case s.Collection != other.Collection:
		return fmt.Errorf("collection %q != %q: %w", s.Collection, other.Collection, ErrSchemaMismatch)
	case s.EmbeddingProvider != other.EmbeddingProvider:
		return fmt.Errorf("embedding provider %q != %q: %w", s.EmbeddingProvider, other.EmbeddingProvider, ErrSchemaMismatch)
	case s.EmbeddingModel != other.EmbeddingModel:
		return fmt.Errorf("embedding model %q != %q: %w", s.EmbeddingModel, other.EmbeddingModel, ErrSchemaMismatch)
	case s.Dimensions != other.Dimensions:
		return fmt.Errorf("dimensions %d != %d: %w", s.Dimensions, other.Dimensions, ErrSchemaMismatch)
	case s.DocumentTemplate != other.DocumentTemplate:
		return fmt.Errorf("document template %q != %q: %w", s.DocumentTemplate, other.DocumentTemplate, ErrSchemaMismatch)
	}
	return nil
}
