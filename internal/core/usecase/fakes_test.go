package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/infrastructure/vector/featurehash"
)

type memorySourceFake struct {
	mu       sync.Mutex
	items    []domain.EvidenceItem
	revision uint64
	loadErr  error
	addErr   error
}

func newMemorySourceFake(items ...domain.EvidenceItem) *memorySourceFake {
	return &memorySourceFake{items: items}
}

func (f *memorySourceFake) AllItems(context.Context) ([]domain.EvidenceItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]domain.EvidenceItem(nil), f.items...), nil
}

func (f *memorySourceFake) VerifiedItems(context.Context) ([]domain.EvidenceItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]domain.EvidenceItem, 0, len(f.items))
	for _, item := range f.items {
		if item.Verified {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *memorySourceFake) FindByID(_ context.Context, id int) (domain.EvidenceItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.EvidenceItem{}, domain.WrapError(domain.ErrFAQNotFound, "find faq", fmt.Errorf("id %d", id))
}

func (f *memorySourceFake) AddItem(_ context.Context, draft domain.FAQDraft) (domain.EvidenceItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return domain.EvidenceItem{}, f.addErr
	}
	item := domain.EvidenceItem{
		ID:       domain.NextFAQID(f.items),
		Question: draft.Question,
		Answer:   draft.Answer,
		Category: draft.Category,
		Verified: draft.Verified,
	}
	f.items = append(f.items, item)
	f.revision++
	return item, nil
}

func (f *memorySourceFake) Revision() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revision
}

type countingEmbedderFake struct {
	inner  *featurehash.Embedder
	embeds int
	resets int
}

func newCountingEmbedderFake() *countingEmbedderFake {
	return &countingEmbedderFake{inner: featurehash.NewEmbedder()}
}

func (f *countingEmbedderFake) Embed(text string) domain.FeatureVector {
	f.embeds++
	return f.inner.Embed(text)
}

func (f *countingEmbedderFake) Reset() {
	f.resets++
	f.inner.Reset()
}

type chatCall struct {
	messages []domain.ChatMessage
	params   domain.CompletionParams
	deadline time.Duration
}

// scriptedChatModelFake answers by the system prompt of the request.
type scriptedChatModelFake struct {
	answer    string
	answerErr error
	critique  string
	critErr   error
	repair    string
	repairErr error
	block     bool

	calls []chatCall
}

func (f *scriptedChatModelFake) Complete(ctx context.Context, messages []domain.ChatMessage, params domain.CompletionParams) (domain.Completion, error) {
	var deadline time.Duration
	if d, ok := ctx.Deadline(); ok {
		deadline = time.Until(d)
	}
	f.calls = append(f.calls, chatCall{messages: messages, params: params, deadline: deadline})

	if f.block {
		<-ctx.Done()
		return domain.Completion{}, ctx.Err()
	}

	switch messages[0].Content {
	case validatorSystemPrompt:
		return f.reply(f.critique, f.critErr)
	case repairSystemPrompt:
		return f.reply(f.repair, f.repairErr)
	default:
		return f.reply(f.answer, f.answerErr)
	}
}

func (f *scriptedChatModelFake) reply(text string, err error) (domain.Completion, error) {
	if err != nil {
		return domain.Completion{}, err
	}
	return domain.Completion{Text: text, InputTokens: 100, OutputTokens: 20}, nil
}

func (f *scriptedChatModelFake) Model() string { return "fake-model" }

func (f *scriptedChatModelFake) callsWithSystem(system string) []chatCall {
	out := make([]chatCall, 0)
	for _, c := range f.calls {
		if c.messages[0].Content == system {
			out = append(out, c)
		}
	}
	return out
}

type usageCall struct {
	model  string
	input  int
	output int
}

type usageTrackerFake struct {
	events []string
	data   []map[string]any
	usage  []usageCall
}

func (f *usageTrackerFake) Record(_ context.Context, eventType string, data map[string]any) {
	f.events = append(f.events, eventType)
	f.data = append(f.data, data)
}

func (f *usageTrackerFake) TrackLLMUsage(_ context.Context, model string, in, out int) {
	f.usage = append(f.usage, usageCall{model: model, input: in, output: out})
}

func (f *usageTrackerFake) Summary() domain.SessionSummary {
	return domain.SessionSummary{TotalInteractions: len(f.events)}
}

type metricsFake struct {
	results []domain.QueryResult
	tokens  int
}

func (f *metricsFake) RecordQuery(result domain.QueryResult, _ time.Duration) {
	f.results = append(f.results, result)
}

func (f *metricsFake) RecordTokenUsage(_ string, in, out int) {
	f.tokens += in + out
}

var errTransport = errors.New("connection refused")
