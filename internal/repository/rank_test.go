package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gita-knowledge-api/internal/models"
)

func TestRankByCosine_OrdersClosestFirst(t *testing.T) {
	candidates := []models.Match{
		{ID: "verse_1", Embedding: []float32{0, 1}},
		{ID: "verse_2", Embedding: []float32{1, 0}},
		{ID: "verse_3", Embedding: []float32{1, 1}},
	}

	got := RankByCosine([]float32{1, 0}, candidates, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "verse_2", got[0].ID)
	assert.Equal(t, "verse_3", got[1].ID)
	assert.LessOrEqual(t, got[0].Distance, got[1].Distance)
	// input untouched
	assert.Zero(t, candidates[0].Distance)
}

func TestRankByCosine_FewerThanK(t *testing.T) {
	got := RankByCosine([]float32{1}, []models.Match{{ID: "verse_1", Embedding: []float32{1}}}, 3)
	assert.Len(t, got, 1)
}

func TestRankByCosine_TiesBrokenByID(t *testing.T) {
	candidates := []models.Match{
		{ID: "verse_9", Embedding: []float32{1, 0}},
		{ID: "verse_10", Embedding: []float32{2, 0}},
	}
	got := RankByCosine([]float32{1, 0}, candidates, 2)
	assert.Equal(t, "verse_10", got[0].ID)
}

func TestRankByCosine_Empty(t *testing.T) {
	assert.Empty(t, RankByCosine([]float32{1}, nil, 3))
	assert.Empty(t, RankByCosine([]float32{1}, []models.Match{{ID: "a"}}, 0))
}

func TestCheckUpsert(t *testing.T) {
	assert.NoError(t, CheckUpsert(make([]models.IndexedDocument, 2), make([][]float32, 2)))

	err := CheckUpsert(make([]models.IndexedDocument, 2), make([][]float32, 1))
	var mismatch *UpsertMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Docs)
}
