package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/repository/memory"
	"github.com/gita-knowledge-api/internal/retrieval"
)

type fakeRetriever struct {
	res   *retrieval.Result
	calls int
}

func (f *fakeRetriever) MarkReady(context.Context) error { return nil }

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ int) (*retrieval.Result, error) {
	f.calls++
	return f.res, nil
}

func TestVerifyReport_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	engine := &fakeRetriever{}
	report := verifyReport{Collection: "gita_chapter_2_v3", Backend: "sqlite", Query: defaultVerifyQuery, SizeBytes: 8192}

	require.NoError(t, fillVerifyReport(ctx, memory.NewVectorSearchRepository(), engine, &report))
	assert.Equal(t, statusNotReady, report.Status)
	assert.Zero(t, report.Documents)
	assert.Zero(t, engine.calls)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, printVerifyReport(cmd, report))
	assert.Contains(t, out.String(), "Documents:  0")
	assert.Contains(t, out.String(), "Size:")
	assert.Contains(t, out.String(), "not_ready")
}

func TestVerifyReport_Populated(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewVectorSearchRepository()
	v := models.Verse{Verse: 20, Text: "t", Translation: "k", EnglishTranslation: "e"}
	require.NoError(t, idx.Upsert(ctx, []models.IndexedDocument{models.NewIndexedDocument(v)}, [][]float32{{1, 0}}))

	engine := &fakeRetriever{res: &retrieval.Result{
		Status:        retrieval.StatusAnswered,
		TopSimilarity: 0.72,
		Candidates:    []retrieval.Candidate{{ID: "verse_20", Verse: v}},
	}}
	report := verifyReport{Query: defaultVerifyQuery}

	require.NoError(t, fillVerifyReport(ctx, idx, engine, &report))
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, "answered", report.Status)
	assert.Equal(t, 20, report.TopVerse)
	assert.Equal(t, 1, engine.calls)
}
