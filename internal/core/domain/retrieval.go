package domain

// FeatureVector is a fixed-length, unit-normalized (or zero) embedding.
type FeatureVector []float64

// Dot returns the dot product over the common prefix of v and other. For
// unit-normalized vectors this is their cosine similarity.
func (v FeatureVector) Dot(other FeatureVector) float64 {
	n := len(v)
	if len(other) < n {
		n = len(other)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += v[i] * other[i]
	}
	return dot
}

type RankedEvidence struct {
	Item  EvidenceItem `json:"item"`
	Score float64      `json:"score"`
}
