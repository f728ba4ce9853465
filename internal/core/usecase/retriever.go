package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/core/ports"
)

const (
	NoEvidenceContext  = "No relevant information found in knowledge base."
	evidenceHeader     = "### Relevant Knowledge Base Entries:\n"
	defaultRetrieveTop = 3
)

type RetrieverOptions struct {
	TopK                int
	SimilarityThreshold float64
}

// EvidenceRetriever ranks knowledge-base items against a query by feature-hash
// cosine similarity.
type EvidenceRetriever struct {
	source   ports.EvidenceSource
	embedder ports.TextEmbedder
	opts     RetrieverOptions

	mu       sync.Mutex
	revision uint64
}

func NewEvidenceRetriever(source ports.EvidenceSource, embedder ports.TextEmbedder, opts RetrieverOptions) *EvidenceRetriever {
	if opts.TopK <= 0 {
		opts.TopK = defaultRetrieveTop
	}
	return &EvidenceRetriever{
		source:   source,
		embedder: embedder,
		opts:     opts,
		revision: source.Revision(),
	}
}

// Retrieve scores verified items (or every item when none are verified) against
// the query. A non-positive topK uses the configured default.
func (r *EvidenceRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.RankedEvidence, error) {
	if topK <= 0 {
		topK = r.opts.TopK
	}
	r.syncRevision()

	items, err := r.source.VerifiedItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load verified items: %w", err)
	}
	if len(items) == 0 {
		items, err = r.source.AllItems(ctx)
		if err != nil {
			return nil, fmt.Errorf("load items: %w", err)
		}
	}

	queryVec := r.embedder.Embed(query)
	ranked := make([]domain.RankedEvidence, 0, len(items))
	for _, item := range items {
		score := queryVec.Dot(r.embedder.Embed(item.Question))
		if score >= r.opts.SimilarityThreshold {
			ranked = append(ranked, domain.RankedEvidence{Item: item, Score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

// syncRevision drops memoized vectors when the evidence source changed since
// the last retrieval.
func (r *EvidenceRetriever) syncRevision() {
	current := r.source.Revision()
	r.mu.Lock()
	defer r.mu.Unlock()
	if current != r.revision {
		r.embedder.Reset()
		r.revision = current
	}
}

// FormatContext renders results as the grounding block placed in prompts.
func FormatContext(results []domain.RankedEvidence) string {
	if len(results) == 0 {
		return NoEvidenceContext
	}
	parts := make([]string, 0, len(results)+1)
	parts = append(parts, evidenceHeader)
	for i, res := range results {
		parts = append(parts, fmt.Sprintf(
			"%d. [Source: %s, Relevance: %.2f]\n   Q: %s\n   A: %s\n",
			i+1, res.Item.SourceRef(), res.Score, res.Item.Question, res.Item.Answer,
		))
	}
	return strings.Join(parts, "\n")
}

// Sources returns the citation tokens for results in order.
func Sources(results []domain.RankedEvidence) []string {
	out := make([]string, 0, len(results))
	for _, res := range results {
		out = append(out, res.Item.SourceRef())
	}
	return out
}
