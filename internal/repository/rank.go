package repository

import (
	"fmt"
	"sort"

	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/vecmath"
)

// RankByCosine fills Distance for every candidate and returns the k closest,
// ties broken by document id so results are deterministic.
func RankByCosine(query []float32, candidates []models.Match, k int) []models.Match {
	if k <= 0 || len(candidates) == 0 {
		return []models.Match{}
	}

	ranked := make([]models.Match, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].Distance = vecmath.CosineDistance(query, ranked[i].Embedding)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].ID < ranked[j].ID
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

// CheckUpsert validates that documents and embeddings line up
func CheckUpsert(docs []models.IndexedDocument, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return &UpsertMismatchError{Docs: len(docs), Embeddings: len(embeddings)}
	}
	return nil
}

// UpsertMismatchError reports a document/embedding count mismatch
type UpsertMismatchError struct {
	Docs       int
	Embeddings int
}

func (e *UpsertMismatchError) Error() string {
	return fmt.Sprintf("upsert: %d documents but %d embeddings", e.Docs, e.Embeddings)
}
