package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/repository/memory"
	"github.com/gita-knowledge-api/pkg/schema/services"
)

// --- Fakes ---

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, query string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[query]
	if !ok {
		return nil, errors.New("unknown query")
	}
	return v, nil
}

type spyIndex struct {
	Index
	queries int
}

func (s *spyIndex) Query(ctx context.Context, embedding []float32, k int) ([]models.Match, error) {
	s.queries++
	return s.Index.Query(ctx, embedding, k)
}

const (
	soulQuery    = "What is the nature of the soul?"
	bananasQuery = "What is the price of bananas?"
)

func newTestEngine(t *testing.T) (*Engine, *spyIndex, *fakeEmbedder) {
	t.Helper()
	ctx := context.Background()

	idx := memory.NewVectorSearchRepository()
	verses := []models.Verse{
		{Verse: 20, Text: "na jayate mriyate", Translation: "ಆತ್ಮ", EnglishTranslation: "The soul is never born nor dies"},
		{Verse: 47, Text: "karmany evadhikaras te", Translation: "ಕರ್ಮ", EnglishTranslation: "You have a right to perform your duty"},
		{Verse: 3, Text: "klaibyam ma sma gamah", Translation: "ದೌರ್ಬಲ್ಯ", EnglishTranslation: "Do not yield to unmanliness"},
		{Verse: 62, Text: "dhyayato vishayan pumsah", Translation: "ಆಸಕ್ತಿ", EnglishTranslation: "Contemplating sense objects breeds attachment"},
	}
	docs := make([]models.IndexedDocument, len(verses))
	for i, v := range verses {
		docs[i] = models.NewIndexedDocument(v)
	}
	require.NoError(t, idx.Upsert(ctx, docs, [][]float32{
		{1, 0, 0},
		{0.8, 0.6, 0},
		{0, 1, 0},
		{0, 0, 1},
	}))

	emb := &fakeEmbedder{vectors: map[string][]float32{
		soulQuery:    {1, 0, 0.1},
		bananasQuery: {-1, 0, 0.05},
	}}
	spy := &spyIndex{Index: idx}
	return NewEngine(spy, emb, Options{TopK: 3, Threshold: DefaultThreshold}), spy, emb
}

func TestRetrieve_Answered(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))

	res, err := e.Retrieve(ctx, soulQuery, 3)
	require.NoError(t, err)

	assert.Equal(t, StatusAnswered, res.Status)
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, "verse_20", res.Candidates[0].ID)
	assert.Equal(t, "verse_47", res.Candidates[1].ID)
	assert.Equal(t, "verse_62", res.Candidates[2].ID)
	assert.Equal(t, 20, res.Candidates[0].Verse.Verse)
	assert.GreaterOrEqual(t, res.TopSimilarity, DefaultThreshold)
	assert.InDelta(t, res.TopSimilarity, res.Candidates[0].Relevance, 1e-12)
	// two of three above threshold
	assert.InDelta(t, 2.0/3.0, res.ContextPrecision, 1e-9)
}

func TestRetrieve_RelevanceIsMonotonic(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))

	res, err := e.Retrieve(ctx, soulQuery, 3)
	require.NoError(t, err)
	for i := 1; i < len(res.Candidates); i++ {
		assert.GreaterOrEqual(t, res.Candidates[i-1].Relevance, res.Candidates[i].Relevance)
	}
}

func TestRetrieve_LowRelevance(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))

	res, err := e.Retrieve(ctx, bananasQuery, 3)
	require.NoError(t, err)

	assert.Equal(t, StatusLowRelevance, res.Status)
	assert.Less(t, res.TopSimilarity, DefaultThreshold)
	assert.Empty(t, res.Candidates)
}

func TestRetrieve_NotReady(t *testing.T) {
	e, spy, emb := newTestEngine(t)

	_, err := e.Retrieve(context.Background(), soulQuery, 3)
	require.ErrorIs(t, err, models.ErrNotReady)
	assert.Zero(t, spy.queries)
	assert.Zero(t, emb.calls)
}

func TestRetrieve_InvalidQuery(t *testing.T) {
	ctx := context.Background()
	e, spy, emb := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := e.Retrieve(ctx, q, 3)
		require.ErrorIs(t, err, models.ErrInvalidQuery)
	}
	assert.Zero(t, spy.queries)
	assert.Zero(t, emb.calls)
}

func TestRetrieve_EmptyEmbeddingIsInvalid(t *testing.T) {
	ctx := context.Background()
	e, spy, emb := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))
	emb.vectors["gibberish"] = []float32{}

	_, err := e.Retrieve(ctx, "gibberish", 3)
	require.ErrorIs(t, err, models.ErrInvalidQuery)
	assert.Zero(t, spy.queries)
}

func TestRetrieve_EmbedderError(t *testing.T) {
	ctx := context.Background()
	e, spy, emb := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))
	emb.err = errors.New("sidecar down")

	_, err := e.Retrieve(ctx, soulQuery, 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrInvalidQuery)
	assert.Zero(t, spy.queries)
}

func TestRetrieve_DefaultK(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))

	res, err := e.Retrieve(ctx, soulQuery, 0)
	require.NoError(t, err)
	assert.Len(t, res.Candidates, e.TopK())
}

func TestRetrieve_FewerThanK(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))

	res, err := e.Retrieve(ctx, soulQuery, 10)
	require.NoError(t, err)
	// no padding
	assert.Len(t, res.Candidates, 4)
	assert.InDelta(t, 0.5, res.ContextPrecision, 1e-9)
}

func TestRetrieve_Idempotent(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))

	first, err := e.Retrieve(ctx, soulQuery, 3)
	require.NoError(t, err)
	second, err := e.Retrieve(ctx, soulQuery, 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetrieve_NoMatches(t *testing.T) {
	ctx := context.Background()
	idx := &stubIndex{count: 1}
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	e := NewEngine(idx, emb, Options{Threshold: DefaultThreshold})
	require.NoError(t, e.MarkReady(ctx))

	res, err := e.Retrieve(ctx, "q", 3)
	require.NoError(t, err)
	assert.Equal(t, StatusNoMatches, res.Status)
	assert.Empty(t, res.Candidates)
	assert.Zero(t, res.ContextPrecision)
}

func TestMarkReady_EmptyIndex(t *testing.T) {
	e := NewEngine(memory.NewVectorSearchRepository(), &fakeEmbedder{}, Options{})

	err := e.MarkReady(context.Background())
	require.ErrorIs(t, err, models.ErrNotReady)
	assert.False(t, e.Ready())
}

func TestContextPrecision(t *testing.T) {
	tests := []struct {
		name string
		sims []float64
		want float64
	}{
		{"empty", nil, 0},
		{"all above", []float64{0.9, 0.5, 0.31}, 1},
		{"none above", []float64{0.1, -0.2}, 0},
		{"equal is not above", []float64{0.3, 0.6}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ContextPrecision(tt.sims, 0.3), 1e-12)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

type stubIndex struct {
	count int
}

func (s *stubIndex) Count(context.Context) (int, error) { return s.count, nil }

func (s *stubIndex) Query(context.Context, []float32, int) ([]models.Match, error) {
	return nil, nil
}

func TestRetrieve_ZeroEmbeddingIsInvalid(t *testing.T) {
	ctx := context.Background()
	e, spy, emb := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))
	emb.vectors["zero"] = []float32{0, 0, 0}

	_, err := e.Retrieve(ctx, "zero", 3)
	require.ErrorIs(t, err, models.ErrInvalidQuery)
	assert.Zero(t, spy.queries)
}

func TestRetrieve_WrongDimensionsIsInvalid(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewVectorSearchRepository()
	require.NoError(t, repo.Upsert(ctx,
		[]models.IndexedDocument{models.NewIndexedDocument(models.Verse{Verse: 1, Text: "t", Translation: "k", EnglishTranslation: "e"})},
		[][]float32{{1, 0, 0}},
	))
	idx := &spyIndex{Index: repo}
	emb := &fakeEmbedder{vectors: map[string][]float32{"short": {1, 0}}}
	e := NewEngine(idx, emb, Options{Dimensions: 3})
	require.NoError(t, e.MarkReady(ctx))

	_, err := e.Retrieve(ctx, "short", 3)
	require.ErrorIs(t, err, models.ErrInvalidQuery)
	assert.Zero(t, idx.queries)
}

func TestRetrieve_EmbedderDimensionMismatchIsInvalid(t *testing.T) {
	ctx := context.Background()
	e, spy, emb := newTestEngine(t)
	require.NoError(t, e.MarkReady(ctx))
	emb.err = fmt.Errorf("query: got 2 dimensions, want 3: %w", services.ErrDimensionMismatch)

	_, err := e.Retrieve(ctx, soulQuery, 3)
	require.ErrorIs(t, err, models.ErrInvalidQuery)
	assert.ErrorIs(t, err, services.ErrDimensionMismatch)
	assert.Zero(t, spy.queries)
}

func TestNewEngine_DefaultThreshold(t *testing.T) {
	e := NewEngine(memory.NewVectorSearchRepository(), &fakeEmbedder{}, Options{})
	assert.Equal(t, DefaultThreshold, e.Threshold())
	assert.Equal(t, DefaultTopK, e.TopK())

	e = NewEngine(memory.NewVectorSearchRepository(), &fakeEmbedder{}, Options{Threshold: 0.5})
	assert.Equal(t, 0.5, e.Threshold())
}
