package semantic

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDimensionMismatch matches any *DimensionMismatchError.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// DimensionMismatchError reports vectors of different lengths.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: got %d, want %d", e.Got, e.Want)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Sums run in float64 and the result is clamped to [-1, 1], so a vector
// scores exactly 1 against itself regardless of dimension.
// Zero-norm or mismatched vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denominator := math.Sqrt(normA * normB)
	if denominator == 0 {
		return 0
	}

	return math.Max(-1, math.Min(1, dot/denominator))
}

// Retrieve scores every entry against query and returns the k best hits,
// highest score first. Equal scores keep corpus order. k <= 0 returns all.
// Any entry whose length differs from the query fails the whole call.
func Retrieve(query []float32, idx *Index, k int) ([]Hit, error) {
	if idx.Len() == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, idx.Len())
	for _, e := range idx.Entries {
		if len(e.Embedding) != len(query) {
			return nil, &DimensionMismatchError{Got: len(query), Want: len(e.Embedding)}
		}
		hits = append(hits, Hit{
			Question: e.Question,
			Answer:   e.Answer,
			Score:    CosineSimilarity(query, e.Embedding),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}

	return hits, nil
}
