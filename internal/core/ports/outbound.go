package ports

import (
	"context"
	"time"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

// EvidenceSource is the read/write view of the FAQ knowledge base.
// Revision changes every time AddItem succeeds.
type EvidenceSource interface {
	AllItems(ctx context.Context) ([]domain.EvidenceItem, error)
	VerifiedItems(ctx context.Context) ([]domain.EvidenceItem, error)
	FindByID(ctx context.Context, id int) (domain.EvidenceItem, error)
	AddItem(ctx context.Context, draft domain.FAQDraft) (domain.EvidenceItem, error)
	Revision() uint64
}

// ChatModel is the LLM completion capability.
type ChatModel interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, params domain.CompletionParams) (domain.Completion, error)
	Model() string
}

// TextEmbedder turns text into feature vectors.
type TextEmbedder interface {
	Embed(text string) domain.FeatureVector
	Reset()
}

// EventSink receives accounting events. Implementations must be safe to call
// from a single writer; failures are reported but never fatal.
type EventSink interface {
	Write(ctx context.Context, event domain.Event) error
}

// EventArchive persists events consumed from the event bus.
type EventArchive interface {
	Append(ctx context.Context, event domain.Event) error
}

// UsageTracker is the accounting surface the pipeline writes to.
type UsageTracker interface {
	Record(ctx context.Context, eventType string, data map[string]any)
	TrackLLMUsage(ctx context.Context, model string, inputTokens, outputTokens int)
	Summary() domain.SessionSummary
}

// PipelineMetrics observes finished queries.
type PipelineMetrics interface {
	RecordQuery(result domain.QueryResult, duration time.Duration)
	RecordTokenUsage(model string, inputTokens, outputTokens int)
}

// ArchiveMetrics observes the event archive worker.
type ArchiveMetrics interface {
	StartEvent()
	FinishEvent(eventType string, duration time.Duration, err error)
	ObserveEventLag(lag time.Duration)
}
