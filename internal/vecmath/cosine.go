// Package vecmath holds the similarity arithmetic shared by the in-process
// index backends and the retrieval engine.
package vecmath

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Mismatched lengths, empty vectors and zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// clamp rounding drift
	return math.Max(-1, math.Min(1, sim))
}

// CosineDistance returns 1 - Cosine(a, b), the distance reported by pgvector's <=> operator
func CosineDistance(a, b []float32) float64 {
	return 1 - Cosine(a, b)
}

// IsZero reports whether v is empty or has no non-zero component
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
