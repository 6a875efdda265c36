package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gita-knowledge-api/internal/models"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	code, en, err := c.Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "en", code)
	assert.Len(t, en.Questions, 4)
	assert.Equal(t, "What is the nature of the soul?", en.Questions[0])

	code, kn, err := c.Lookup("KN")
	require.NoError(t, err)
	assert.Equal(t, "kn", code)
	assert.Equal(t, "ಆತ್ಮದ ಸ್ವರೂಪವೇನು?", kn.Questions[0])

	_, _, err = c.Lookup("fr")
	assert.ErrorIs(t, err, models.ErrUnsupportedLanguage)
}

func TestLowRelevance(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	_, en, err := c.Lookup("en")
	require.NoError(t, err)

	assert.Equal(t,
		"This data store does not have the required answer. (Low relevance score: 0.12)",
		en.LowRelevance(0.1234),
	)
}

func TestParse_MissingDefault(t *testing.T) {
	_, err := Parse([]byte("kn:\n  name: x\n"))
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
