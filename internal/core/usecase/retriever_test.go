package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

func TestRetrieveReturnsExactMatchOnly(t *testing.T) {
	r := NewEvidenceRetriever(newMemorySourceFake(domain.DefaultFAQs()...), newCountingEmbedderFake(), RetrieverOptions{TopK: 3, SimilarityThreshold: 0.6})

	results, err := r.Retrieve(context.Background(), "What are your business hours?", 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if diff := cmp.Diff([]string{"FAQ-1"}, Sources(results)); diff != "" {
		t.Fatalf("unexpected sources (-want +got):\n%s", diff)
	}
}

func TestRetrieveRespectsThresholdTopKAndOrder(t *testing.T) {
	r := NewEvidenceRetriever(newMemorySourceFake(domain.DefaultFAQs()...), newCountingEmbedderFake(), RetrieverOptions{TopK: 3, SimilarityThreshold: 0.3})
	ctx := context.Background()

	results, err := r.Retrieve(ctx, "What are your business hours?", 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if diff := cmp.Diff([]string{"FAQ-1", "FAQ-5", "FAQ-3"}, Sources(results)); diff != "" {
		t.Fatalf("unexpected ranking (-want +got):\n%s", diff)
	}
	for i, res := range results {
		if res.Score < 0.3 {
			t.Fatalf("result %d below threshold: %f", i, res.Score)
		}
		if i > 0 && res.Score > results[i-1].Score {
			t.Fatalf("results not sorted by score: %v", results)
		}
	}

	limited, err := r.Retrieve(ctx, "What are your business hours?", 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if diff := cmp.Diff([]string{"FAQ-1", "FAQ-5"}, Sources(limited)); diff != "" {
		t.Fatalf("unexpected truncated ranking (-want +got):\n%s", diff)
	}
}

func TestRetrieveKeepsSourceOrderForTiedScores(t *testing.T) {
	const question = "How do I track my order?"
	source := newMemorySourceFake(
		domain.EvidenceItem{ID: 9, Question: question, Answer: "a", Verified: true},
		domain.EvidenceItem{ID: 2, Question: question, Answer: "b", Verified: true},
		domain.EvidenceItem{ID: 5, Question: question, Answer: "c", Verified: true},
	)
	r := NewEvidenceRetriever(source, newCountingEmbedderFake(), RetrieverOptions{TopK: 3, SimilarityThreshold: 0.6})

	results, err := r.Retrieve(context.Background(), question, 0)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if diff := cmp.Diff([]string{"FAQ-9", "FAQ-2", "FAQ-5"}, Sources(results)); diff != "" {
		t.Fatalf("tied items must keep source order (-want +got):\n%s", diff)
	}
}

func TestRetrieveKeepsSourceOrderAcrossManyTies(t *testing.T) {
	const question = "Can I change my delivery address?"
	var (
		items []domain.EvidenceItem
		want  []string
	)
	// Interleave tied items with unrelated ones so ranking has to move them.
	for i := 0; i < 40; i++ {
		id := (i*17)%41 + 1
		if i%3 == 0 {
			items = append(items, domain.EvidenceItem{ID: id, Question: "Do you sell gift cards?", Answer: "x", Verified: true})
			continue
		}
		items = append(items, domain.EvidenceItem{ID: id, Question: question, Answer: "y", Verified: true})
		want = append(want, fmt.Sprintf("FAQ-%d", id))
	}
	r := NewEvidenceRetriever(newMemorySourceFake(items...), newCountingEmbedderFake(), RetrieverOptions{TopK: 3, SimilarityThreshold: 0.6})

	results, err := r.Retrieve(context.Background(), question, len(items))
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if diff := cmp.Diff(want, Sources(results)); diff != "" {
		t.Fatalf("tied items must keep source order (-want +got):\n%s", diff)
	}
}

func TestRetrieveNoMatchIsNotAnError(t *testing.T) {
	r := NewEvidenceRetriever(newMemorySourceFake(domain.DefaultFAQs()...), newCountingEmbedderFake(), RetrieverOptions{TopK: 3, SimilarityThreshold: 0.6})
	results, err := r.Retrieve(context.Background(), "Tell me about quantum physics", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestRetrievePrefersVerifiedItems(t *testing.T) {
	source := newMemorySourceFake(
		domain.EvidenceItem{ID: 1, Question: "What are your business hours?", Answer: "unverified", Verified: false},
		domain.EvidenceItem{ID: 2, Question: "How do I reset my password?", Answer: "verified", Verified: true},
	)
	r := NewEvidenceRetriever(source, newCountingEmbedderFake(), RetrieverOptions{TopK: 3, SimilarityThreshold: 0.6})

	results, err := r.Retrieve(context.Background(), "What are your business hours?", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("unverified item must be ignored while verified items exist, got %v", Sources(results))
	}
}

func TestRetrieveFallsBackToAllItemsWhenNoneVerified(t *testing.T) {
	source := newMemorySourceFake(
		domain.EvidenceItem{ID: 7, Question: "What are your business hours?", Answer: "9 to 6", Verified: false},
	)
	r := NewEvidenceRetriever(source, newCountingEmbedderFake(), RetrieverOptions{TopK: 3, SimilarityThreshold: 0.6})

	results, err := r.Retrieve(context.Background(), "What are your business hours?", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if diff := cmp.Diff([]string{"FAQ-7"}, Sources(results)); diff != "" {
		t.Fatalf("unexpected sources (-want +got):\n%s", diff)
	}
}

func TestRetrieveResetsEmbeddingsAfterSourceChange(t *testing.T) {
	source := newMemorySourceFake(domain.DefaultFAQs()...)
	embedder := newCountingEmbedderFake()
	r := NewEvidenceRetriever(source, embedder, RetrieverOptions{TopK: 3, SimilarityThreshold: 0.6})
	ctx := context.Background()

	if _, err := r.Retrieve(ctx, "business hours", 3); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if embedder.resets != 0 {
		t.Fatalf("expected no reset before any change, got %d", embedder.resets)
	}

	if _, err := source.AddItem(ctx, domain.FAQDraft{Question: "Do you offer gift cards?", Answer: "Yes.", Verified: true}); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if _, err := r.Retrieve(ctx, "business hours", 3); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if embedder.resets != 1 {
		t.Fatalf("expected one reset after AddItem, got %d", embedder.resets)
	}
	if _, err := r.Retrieve(ctx, "business hours", 3); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if embedder.resets != 1 {
		t.Fatalf("unchanged source must not reset again, got %d", embedder.resets)
	}
}

func TestRetrievePropagatesSourceError(t *testing.T) {
	source := newMemorySourceFake()
	source.loadErr = errors.New("db down")
	r := NewEvidenceRetriever(source, newCountingEmbedderFake(), RetrieverOptions{})
	if _, err := r.Retrieve(context.Background(), "q", 1); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormatContext(t *testing.T) {
	if got := FormatContext(nil); got != NoEvidenceContext {
		t.Fatalf("expected sentinel, got %q", got)
	}

	results := []domain.RankedEvidence{
		{Item: domain.EvidenceItem{ID: 1, Question: "Q1?", Answer: "A1."}, Score: 0.987},
		{Item: domain.EvidenceItem{ID: 4, Question: "Q4?", Answer: "A4."}, Score: 0.61},
	}
	want := strings.Join([]string{
		"### Relevant Knowledge Base Entries:\n",
		"1. [Source: FAQ-1, Relevance: 0.99]\n   Q: Q1?\n   A: A1.\n",
		"2. [Source: FAQ-4, Relevance: 0.61]\n   Q: Q4?\n   A: A4.\n",
	}, "\n")
	if diff := cmp.Diff(want, FormatContext(results)); diff != "" {
		t.Fatalf("unexpected context (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"FAQ-1", "FAQ-4"}, Sources(results)); diff != "" {
		t.Fatalf("unexpected sources (-want +got):\n%s", diff)
	}
}
