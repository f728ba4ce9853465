package featurehash

import (
	"math"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

// Similarity is the cosine similarity of two unit-normalized vectors.
// Vectors of different length are compared over their common prefix.
func Similarity(a, b domain.FeatureVector) float64 {
	return a.Dot(b)
}

// Norm returns the Euclidean norm of v.
func Norm(v domain.FeatureVector) float64 {
	return math.Sqrt(v.Dot(v))
}
