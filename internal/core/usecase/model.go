package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/core/ports"
)

// meteredModel bounds every chat call with a timeout and reports token usage
// of successful calls.
type meteredModel struct {
	model   ports.ChatModel
	usage   ports.UsageTracker
	metrics ports.PipelineMetrics
	logger  *slog.Logger
}

func newMeteredModel(model ports.ChatModel, usage ports.UsageTracker, metrics ports.PipelineMetrics, logger *slog.Logger) *meteredModel {
	if logger == nil {
		logger = slog.Default()
	}
	return &meteredModel{model: model, usage: usage, metrics: metrics, logger: logger}
}

func (m *meteredModel) complete(
	ctx context.Context,
	messages []domain.ChatMessage,
	params domain.CompletionParams,
	timeout time.Duration,
) (domain.Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	completion, err := m.model.Complete(callCtx, messages, params)
	if err != nil {
		return domain.Completion{}, err
	}
	name := m.model.Model()
	if m.usage != nil {
		m.usage.TrackLLMUsage(ctx, name, completion.InputTokens, completion.OutputTokens)
	}
	if m.metrics != nil {
		m.metrics.RecordTokenUsage(name, completion.InputTokens, completion.OutputTokens)
	}
	return completion, nil
}
