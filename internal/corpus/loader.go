// Package corpus loads the single-chapter verse document served by the API.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gita-knowledge-api/internal/models"
)

type document struct {
	Chapters []chapter `json:"chapters"`
}

type chapter struct {
	Chapter int        `json:"chapter"`
	Verses  []rawVerse `json:"verses"`
}

type rawVerse struct {
	Verse              *int    `json:"verse"`
	Text               *string `json:"text"`
	Translation        *string `json:"translation"`
	EnglishTranslation *string `json:"english_translation"`
}

// Corpus is the loaded chapter. It is read-only after Load returns.
type Corpus struct {
	chapter int
	verses  []models.Verse
	byID    map[int]int
}

// Load reads the chapter document at path. Any failure is a configuration error.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w: %w", path, models.ErrConfiguration, err)
	}
	return Parse(data)
}

// Parse decodes a chapter document. Only the first chapter is used.
func Parse(data []byte) (*Corpus, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode corpus: %w: %w", models.ErrConfiguration, err)
	}
	if len(doc.Chapters) == 0 {
		return nil, fmt.Errorf("corpus has no chapters: %w", models.ErrConfiguration)
	}

	ch := doc.Chapters[0]
	if len(ch.Verses) == 0 {
		return nil, fmt.Errorf("chapter %d has no verses: %w", ch.Chapter, models.ErrConfiguration)
	}

	c := &Corpus{
		chapter: ch.Chapter,
		verses:  make([]models.Verse, 0, len(ch.Verses)),
		byID:    make(map[int]int, len(ch.Verses)),
	}
	for i, rv := range ch.Verses {
		if rv.Verse == nil || rv.Text == nil || rv.Translation == nil || rv.EnglishTranslation == nil {
			return nil, fmt.Errorf("verse at position %d is missing fields: %w", i, models.ErrConfiguration)
		}
		if _, dup := c.byID[*rv.Verse]; dup {
			return nil, fmt.Errorf("duplicate verse %d: %w", *rv.Verse, models.ErrConfiguration)
		}
		c.byID[*rv.Verse] = len(c.verses)
		c.verses = append(c.verses, models.Verse{
			Verse:              *rv.Verse,
			Text:               *rv.Text,
			Translation:        *rv.Translation,
			EnglishTranslation: *rv.EnglishTranslation,
		})
	}
	return c, nil
}

// Chapter returns the chapter number
func (c *Corpus) Chapter() int {
	return c.chapter
}

// Verses returns a copy of the verses in document order
func (c *Corpus) Verses() []models.Verse {
	out := make([]models.Verse, len(c.verses))
	copy(out, c.verses)
	return out
}

// Len returns the number of verses
func (c *Corpus) Len() int {
	return len(c.verses)
}

// Verse looks up a verse by number
func (c *Corpus) Verse(number int) (models.Verse, error) {
	i, ok := c.byID[number]
	if !ok {
		return models.Verse{}, fmt.Errorf("verse %d: %w", number, models.ErrVerseNotFound)
	}
	return c.verses[i], nil
}
