// Package locale holds the display strings for the supported question languages.
package locale

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gita-knowledge-api/internal/models"
)

//go:embed locale.yaml
var localeYAML []byte

// Default is the display language used when a request names none
const Default = "en"

// Strings is the text shown for one display language
type Strings struct {
	Name               string   `yaml:"name"`
	Questions          []string `yaml:"questions"`
	NoAnswer           string   `yaml:"no_answer"`
	NoResults          string   `yaml:"no_results"`
	LowRelevanceSuffix string   `yaml:"low_relevance_suffix"`
}

// Catalog maps language codes to display strings
type Catalog map[string]Strings

// Load parses the embedded catalog
func Load() (Catalog, error) {
	return Parse(localeYAML)
}

// Parse decodes a catalog document
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode locale catalog: %w", err)
	}
	if _, ok := c[Default]; !ok {
		return nil, fmt.Errorf("locale catalog has no %q entry: %w", Default, models.ErrConfiguration)
	}
	return c, nil
}

// Lookup returns the strings for a language code. An empty code selects Default.
func (c Catalog) Lookup(lang string) (string, Strings, error) {
	code := strings.ToLower(strings.TrimSpace(lang))
	if code == "" {
		code = Default
	}
	s, ok := c[code]
	if !ok {
		return "", Strings{}, fmt.Errorf("display language %q: %w", lang, models.ErrUnsupportedLanguage)
	}
	return code, s, nil
}

// LowRelevance formats the message shown when the best verse scores below the threshold
func (s Strings) LowRelevance(similarity float64) string {
	return s.NoAnswer + " (" + fmt.Sprintf(s.LowRelevanceSuffix, similarity) + ")"
}
