package vector

import (
	"fmt"
	"math"
	"sort"
)

// Cosine computes the cosine similarity between two equal-length vectors.
// If either vector has zero magnitude the similarity is 0, not NaN, so that
// ranking stays well-defined for degenerate vectors.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / math.Sqrt(normA*normB), nil
}

// Ranked identifies one candidate by its position in the input slice
// together with its similarity to the query.
type Ranked struct {
	Index int
	Score float64
}

// Rank scores every candidate against the query and returns the top k by
// descending similarity. When threshold is non-nil, candidates scoring
// strictly below it are dropped before ranking, even if fewer than k remain.
// The sort is stable: ties keep the candidates' original order. An empty
// candidate set yields an empty result, never an error. k <= 0 means no
// limit.
func Rank(query []float64, candidates [][]float64, k int, threshold *float64) ([]Ranked, error) {
	ranked := make([]Ranked, 0, len(candidates))
	for i, candidate := range candidates {
		score, err := Cosine(query, candidate)
		if err != nil {
			return nil, err
		}
		if threshold != nil && score < *threshold {
			continue
		}
		ranked = append(ranked, Ranked{Index: i, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}
