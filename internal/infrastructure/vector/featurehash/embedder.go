// Package featurehash implements the hashed word/character n-gram embedding used
// for FAQ retrieval.
//
// Vector layout (HashVersion "fnv1a32-v1"):
//   - text is lower-cased;
//   - the first MaxWords whitespace-separated words add 1/(i+1) at FNV-1a(word) mod Dimensions;
//   - every rune 2-gram and 3-gram of the lower-cased text adds NgramWeight at FNV-1a(ngram) mod Dimensions;
//   - the result is divided by its Euclidean norm unless the norm is zero.
//
// FNV-1a is computed over the UTF-8 bytes of the token, so vectors are identical
// across processes and across implementations that follow the same layout.
package featurehash

import (
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

const (
	HashVersion = "fnv1a32-v1"
	Dimensions  = 300
	MaxWords    = 100
	NgramWeight = 0.5
)

var ngramSizes = [...]int{2, 3}

type Embedder struct {
	mu    sync.Mutex
	cache map[string]domain.FeatureVector
}

func NewEmbedder() *Embedder {
	return &Embedder{cache: make(map[string]domain.FeatureVector)}
}

// Embed returns the memoized vector for text. The returned slice is shared with
// the cache and must not be modified.
func (e *Embedder) Embed(text string) domain.FeatureVector {
	e.mu.Lock()
	defer e.mu.Unlock()

	if vec, ok := e.cache[text]; ok {
		return vec
	}
	vec := encode(text)
	e.cache[text] = vec
	return vec
}

// Reset drops every memoized vector.
func (e *Embedder) Reset() {
	e.mu.Lock()
	e.cache = make(map[string]domain.FeatureVector)
	e.mu.Unlock()
}

// CacheSize reports the number of memoized strings.
func (e *Embedder) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

func encode(text string) domain.FeatureVector {
	vec := make(domain.FeatureVector, Dimensions)
	lower := strings.ToLower(text)

	words := strings.Fields(lower)
	if len(words) > MaxWords {
		words = words[:MaxWords]
	}
	for i, word := range words {
		vec[bucket(word)] += 1.0 / float64(i+1)
	}

	runes := []rune(lower)
	for _, n := range ngramSizes {
		for i := 0; i+n <= len(runes); i++ {
			vec[bucket(string(runes[i:i+n]))] += NgramWeight
		}
	}

	normalize(vec)
	return vec
}

func bucket(token string) int {
	return int(hashToken(token) % Dimensions)
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}

func normalize(vec domain.FeatureVector) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}
