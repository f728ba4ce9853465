// Package accounting keeps the per-session event log and LLM cost totals.
package accounting

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/core/ports"
)

const EventLLMCall = "llm_call"

type Options struct {
	CostTracking          bool
	CostPer1KInputTokens  float64
	CostPer1KOutputTokens float64
}

// Recorder is an append-only event log with running token and cost totals.
// Every event is forwarded to the configured sinks; sink failures are logged
// and otherwise ignored.
type Recorder struct {
	opts      Options
	sessionID string
	sinks     []ports.EventSink
	logger    *slog.Logger
	now       func() time.Time

	mu           sync.Mutex
	events       []domain.Event
	inputTokens  int
	outputTokens int
	totalCost    float64
}

func NewRecorder(opts Options, logger *slog.Logger, sinks ...ports.EventSink) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		opts:      opts,
		sessionID: uuid.NewString(),
		sinks:     sinks,
		logger:    logger,
		now:       time.Now,
		events:    make([]domain.Event, 0, 64),
	}
}

func (r *Recorder) SessionID() string {
	return r.sessionID
}

func (r *Recorder) Record(ctx context.Context, eventType string, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(ctx, eventType, data)
}

// TrackLLMUsage adds token counts and, when cost tracking is on, the call cost.
// An llm_call event is recorded only when cost tracking is enabled.
func (r *Recorder) TrackLLMUsage(ctx context.Context, model string, inputTokens, outputTokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inputTokens += inputTokens
	r.outputTokens += outputTokens
	if !r.opts.CostTracking {
		return
	}
	cost := r.Cost(inputTokens, outputTokens)
	r.totalCost += cost
	r.appendLocked(ctx, EventLLMCall, map[string]any{
		"model":         model,
		"input_tokens":  inputTokens,
		"output_tokens": outputTokens,
		"cost":          cost,
	})
}

// Cost prices a call with the configured per-1000-token rates.
func (r *Recorder) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*r.opts.CostPer1KInputTokens +
		float64(outputTokens)/1000*r.opts.CostPer1KOutputTokens
}

func (r *Recorder) Summary() domain.SessionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := domain.SessionSummary{
		SessionID:         r.sessionID,
		TotalInteractions: len(r.events),
		TotalCost:         math.Round(r.totalCost*10000) / 10000,
		InputTokens:       r.inputTokens,
		OutputTokens:      r.outputTokens,
	}
	if len(r.events) > 0 {
		start := r.events[0].Timestamp
		end := r.events[len(r.events)-1].Timestamp
		summary.SessionStart = &start
		summary.SessionEnd = &end
	}
	return summary
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) appendLocked(ctx context.Context, eventType string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	event := domain.Event{
		ID:        uuid.NewString(),
		SessionID: r.sessionID,
		Timestamp: r.now(),
		EventType: eventType,
		Data:      data,
	}
	r.events = append(r.events, event)

	for _, sink := range r.sinks {
		if err := sink.Write(ctx, event); err != nil {
			r.logger.Warn("event sink write failed", "event_type", eventType, "error", err)
		}
	}
}
