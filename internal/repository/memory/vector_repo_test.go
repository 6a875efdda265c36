package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gita-knowledge-api/internal/models"
)

func docs(n int) []models.IndexedDocument {
	out := make([]models.IndexedDocument, n)
	for i := range out {
		out[i] = models.NewIndexedDocument(models.Verse{Verse: i + 1, Text: "t", Translation: "k", EnglishTranslation: "e"})
	}
	return out
}

func TestUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	repo := NewVectorSearchRepository()

	err := repo.Upsert(ctx, docs(3), [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}})
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	matches, err := repo.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "verse_1", matches[0].ID)
	assert.Equal(t, "verse_3", matches[1].ID)
	assert.Equal(t, 3, matches[1].Metadata.Verse)
	assert.Equal(t, []float32{0.9, 0.1}, matches[1].Embedding)
}

func TestUpsert_ReplacesExisting(t *testing.T) {
	ctx := context.Background()
	repo := NewVectorSearchRepository()

	require.NoError(t, repo.Upsert(ctx, docs(1), [][]float32{{1, 0}}))
	require.NoError(t, repo.Upsert(ctx, docs(1), [][]float32{{0, 1}}))

	count, _ := repo.Count(ctx)
	assert.Equal(t, 1, count)

	matches, err := repo.Query(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)
}

func TestUpsert_Mismatch(t *testing.T) {
	repo := NewVectorSearchRepository()
	assert.Error(t, repo.Upsert(context.Background(), docs(2), [][]float32{{1}}))
}

func TestQuery_Empty(t *testing.T) {
	matches, err := NewVectorSearchRepository().Query(context.Background(), []float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSchema(t *testing.T) {
	ctx := context.Background()
	repo := NewVectorSearchRepository()

	s, err := repo.LoadSchema(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, repo.SaveSchema(ctx, models.IndexSchema{Collection: "c", Dimensions: 2}))
	s, err = repo.LoadSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", s.Collection)
}

func TestConcurrentQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewVectorSearchRepository()
	embs := make([][]float32, 10)
	for i := range embs {
		embs[i] = []float32{float32(i), 1}
	}
	require.NoError(t, repo.Upsert(ctx, docs(10), embs))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			matches, err := repo.Query(ctx, []float32{float32(i % 10), 1}, 3)
			assert.NoError(t, err, fmt.Sprintf("query %d", i))
			assert.Len(t, matches, 3)
		}(i)
	}
	wg.Wait()
}

func TestReturnedEmbeddingsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewVectorSearchRepository()
	require.NoError(t, repo.Upsert(ctx, docs(1), [][]float32{{1, 0}}))

	got, err := repo.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Embedding[0] = 42

	require.NoError(t, repo.All(ctx, func(m models.Match) error {
		assert.Equal(t, []float32{1, 0}, m.Embedding)
		m.Embedding[1] = 7
		return nil
	}))

	got, err = repo.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, got[0].Embedding)
}
