package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/core/ports"
)

const defaultValidationTimeout = 30 * time.Second

type ValidatorOptions struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Validator asks the chat model to critique a drafted answer and, when the
// critique fails, to produce one repaired answer. Its calls feed the token
// metrics but not the session usage tracker, so session cost and interaction
// counts cover answer generation only.
type Validator struct {
	model *meteredModel
	opts  ValidatorOptions
}

func NewValidator(
	model ports.ChatModel,
	metrics ports.PipelineMetrics,
	logger *slog.Logger,
	opts ValidatorOptions,
) *Validator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultValidationTimeout
	}
	return &Validator{model: newMeteredModel(model, nil, metrics, logger), opts: opts}
}

// Critique runs the validation prompt and decodes the reply. A transport failure
// yields an empty unstructured outcome.
func (v *Validator) Critique(ctx context.Context, query, answer, evidenceContext string, sources []string) domain.CritiqueOutcome {
	completion, err := v.model.complete(ctx, buildValidationMessages(query, answer, evidenceContext, sources), v.params(), v.opts.Timeout)
	if err != nil {
		v.model.logger.Warn("validator call failed", "error", err)
		return domain.CritiqueOutcome{}
	}
	return ParseCritique(completion.Text)
}

// Validate is Critique followed by ResolveVerdict.
func (v *Validator) Validate(ctx context.Context, query, answer, evidenceContext string, sources []string) domain.ValidationVerdict {
	return ResolveVerdict(v.Critique(ctx, query, answer, evidenceContext, sources))
}

// SuggestImprovement makes the single repair call. An empty reply is an error.
func (v *Validator) SuggestImprovement(ctx context.Context, query, answer, feedback string) (string, error) {
	completion, err := v.model.complete(ctx, buildRepairMessages(query, answer, feedback), v.params(), v.opts.Timeout)
	if err != nil {
		return "", fmt.Errorf("repair answer: %w", err)
	}
	text := strings.TrimSpace(completion.Text)
	if text == "" {
		return "", errors.New("repair answer: empty completion")
	}
	return completion.Text, nil
}

func (v *Validator) params() domain.CompletionParams {
	return domain.CompletionParams{Temperature: v.opts.Temperature, MaxTokens: v.opts.MaxTokens}
}

type critiquePayload struct {
	IsValid    *bool    `json:"is_valid"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues"`
	Feedback   string   `json:"feedback"`
}

// ParseCritique decodes a JSON verdict, tolerating markdown fences and prose
// around the object. Anything else is kept as raw text.
func ParseCritique(raw string) domain.CritiqueOutcome {
	body, ok := extractJSONObject(raw)
	if !ok {
		return domain.CritiqueOutcome{Raw: raw}
	}
	var payload critiquePayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return domain.CritiqueOutcome{Raw: raw}
	}
	verdict := &domain.ValidationVerdict{
		IsValid:    true,
		Confidence: payload.Confidence,
		Issues:     payload.Issues,
		Feedback:   payload.Feedback,
	}
	if payload.IsValid != nil {
		verdict.IsValid = *payload.IsValid
	}
	if verdict.Issues == nil {
		verdict.Issues = []string{}
	}
	return domain.CritiqueOutcome{Structured: verdict, Raw: raw}
}

// ResolveVerdict turns an outcome into a verdict. Unstructured replies count as
// valid unless they contain "false" anywhere; the raw text becomes the feedback.
func ResolveVerdict(outcome domain.CritiqueOutcome) domain.ValidationVerdict {
	if outcome.IsStructured() {
		return *outcome.Structured
	}
	return domain.ValidationVerdict{
		IsValid:  !strings.Contains(strings.ToLower(outcome.Raw), "false"),
		Issues:   []string{},
		Feedback: outcome.Raw,
	}
}

func extractJSONObject(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return trimmed[start : end+1], true
}
