package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/core/ports"
)

const (
	ApologyAnswer = "I apologize, but I'm experiencing technical difficulties. Please try again later."
	BlockedAnswer = "I cannot process this request due to safety concerns."

	EventSafetyCheck          = "safety_check"
	EventIntentClassification = "intent_classification"
	EventRAGRetrieval         = "rag_retrieval"
	EventResponse             = "response"

	defaultGenerationTimeout = 60 * time.Second
	responsePreviewRunes     = 200
)

type AgentOptions struct {
	Temperature       float64
	MaxTokens         int
	TopK              int
	GenerationTimeout time.Duration
}

// SupportAgentUseCase drives a query through input check, intent classification,
// retrieval, generation, validation with at most one repair, output filtering
// and accounting. It serves one query at a time; callers serialize access.
type SupportAgentUseCase struct {
	model      *meteredModel
	safety     *SafetyFilter
	classifier *IntentClassifier
	retriever  *EvidenceRetriever
	validator  *Validator
	usage      ports.UsageTracker
	metrics    ports.PipelineMetrics
	logger     *slog.Logger
	opts       AgentOptions

	mu      sync.RWMutex
	history []domain.ConversationTurn
}

func NewSupportAgentUseCase(
	model ports.ChatModel,
	safety *SafetyFilter,
	classifier *IntentClassifier,
	retriever *EvidenceRetriever,
	validator *Validator,
	usage ports.UsageTracker,
	metrics ports.PipelineMetrics,
	logger *slog.Logger,
	opts AgentOptions,
) *SupportAgentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = defaultGenerationTimeout
	}
	return &SupportAgentUseCase{
		model:      newMeteredModel(model, usage, metrics, logger),
		safety:     safety,
		classifier: classifier,
		retriever:  retriever,
		validator:  validator,
		usage:      usage,
		metrics:    metrics,
		logger:     logger,
		opts:       opts,
		history:    make([]domain.ConversationTurn, 0),
	}
}

// ProcessQuery never fails: every stage degrades to a defined fallback.
func (uc *SupportAgentUseCase) ProcessQuery(ctx context.Context, query string) domain.QueryResult {
	started := time.Now()

	safe, message := uc.safety.CheckInput(query)
	if !safe {
		uc.record(ctx, EventSafetyCheck, map[string]any{
			"input_safe":      false,
			"output_filtered": false,
			"messages":        message,
		})
		uc.logger.Warn("query blocked by safety filter", "reason", message)
		result := domain.QueryResult{
			Answer:           BlockedAnswer,
			Sources:          []string{},
			ValidationPassed: false,
			Metadata:         domain.QueryMetadata{SafetyBlocked: true},
		}
		uc.observe(result, started)
		return result
	}
	if message != MessageInputSafe {
		uc.logger.Info("input check warning", "message", message)
	}
	query = uc.safety.SanitizeInput(query)

	intent, confidence := uc.classifier.Classify(query)
	uc.logger.Debug("intent classified", "intent", intent, "confidence", confidence)
	uc.record(ctx, EventIntentClassification, map[string]any{
		"query":      query,
		"intent":     string(intent),
		"confidence": confidence,
	})

	var retrieved []domain.RankedEvidence
	evidenceContext := ""
	sources := []string{}
	if uc.classifier.ShouldUseRAG(intent, confidence) {
		var err error
		retrieved, err = uc.retriever.Retrieve(ctx, query, uc.opts.TopK)
		if err != nil {
			uc.logger.Warn("evidence retrieval failed", "error", err)
			retrieved = nil
		}
		if len(retrieved) > 0 {
			evidenceContext = FormatContext(retrieved)
			sources = Sources(retrieved)
			uc.record(ctx, EventRAGRetrieval, map[string]any{
				"query":       query,
				"num_results": len(retrieved),
				"sources":     sources,
			})
		}
		uc.logger.Debug("evidence retrieved", "count", len(retrieved))
	}

	// An empty evidence block is passed through as-is; the grounded persona
	// already covers the "not in the knowledge base" answer.
	answer := uc.generate(ctx, query, intent, evidenceContext)

	validationPassed := true
	var feedback *string
	if intent != domain.IntentChitchat && evidenceContext != "" {
		verdict := uc.validate(ctx, query, answer, evidenceContext, sources)
		validationPassed = verdict.IsValid
		if !verdict.IsValid {
			text := verdict.Feedback
			feedback = &text
			repaired, err := uc.validator.SuggestImprovement(ctx, query, answer, verdict.Feedback)
			if err != nil {
				uc.logger.Warn("answer repair failed, keeping original answer", "error", err)
			} else {
				answer = repaired
			}
		}
	}

	answer, filtered := uc.safety.FilterOutput(answer)
	uc.record(ctx, EventSafetyCheck, map[string]any{
		"input_safe":      true,
		"output_filtered": filtered,
		"messages":        "Output check completed",
	})
	uc.record(ctx, EventResponse, map[string]any{
		"query":             query,
		"response":          previewText(answer),
		"sources":           sources,
		"validation_passed": validationPassed,
	})

	uc.mu.Lock()
	uc.history = append(uc.history, domain.ConversationTurn{User: query, Assistant: answer})
	uc.mu.Unlock()

	result := domain.QueryResult{
		Answer:             answer,
		Sources:            sources,
		Intent:             intent,
		Confidence:         confidence,
		ValidationPassed:   validationPassed,
		ValidationFeedback: feedback,
		Metadata: domain.QueryMetadata{
			NumRetrieved:   len(retrieved),
			OutputFiltered: filtered,
		},
	}
	uc.observe(result, started)
	return result
}

func (uc *SupportAgentUseCase) generate(ctx context.Context, query string, intent domain.Intent, evidenceContext string) string {
	messages := buildGenerationMessages(query, intent, evidenceContext, uc.History())
	params := domain.CompletionParams{Temperature: uc.opts.Temperature, MaxTokens: uc.opts.MaxTokens}

	completion, err := uc.model.complete(ctx, messages, params, uc.opts.GenerationTimeout)
	if err != nil {
		uc.logger.Error("answer generation failed", "error", err)
		return ApologyAnswer
	}
	return completion.Text
}

// validate resolves the critique outcome here so that the fallback for
// unstructured replies stays visible in the pipeline.
func (uc *SupportAgentUseCase) validate(ctx context.Context, query, answer, evidenceContext string, sources []string) domain.ValidationVerdict {
	outcome := uc.validator.Critique(ctx, query, answer, evidenceContext, sources)
	if !outcome.IsStructured() {
		uc.logger.Info("validator reply was not structured, applying text heuristic")
	}
	verdict := ResolveVerdict(outcome)
	uc.logger.Debug("answer validated", "valid", verdict.IsValid, "confidence", verdict.Confidence)
	return verdict
}

// ResetConversation clears the history. Accounting state is kept.
func (uc *SupportAgentUseCase) ResetConversation() {
	uc.mu.Lock()
	uc.history = make([]domain.ConversationTurn, 0)
	uc.mu.Unlock()
	uc.logger.Info("conversation history reset")
}

// History returns a copy of the completed turns.
func (uc *SupportAgentUseCase) History() []domain.ConversationTurn {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	out := make([]domain.ConversationTurn, len(uc.history))
	copy(out, uc.history)
	return out
}

func (uc *SupportAgentUseCase) SessionSummary() domain.SessionSummary {
	if uc.usage == nil {
		return domain.SessionSummary{}
	}
	return uc.usage.Summary()
}

func (uc *SupportAgentUseCase) record(ctx context.Context, eventType string, data map[string]any) {
	if uc.usage != nil {
		uc.usage.Record(ctx, eventType, data)
	}
}

func (uc *SupportAgentUseCase) observe(result domain.QueryResult, started time.Time) {
	if uc.metrics != nil {
		uc.metrics.RecordQuery(result, time.Since(started))
	}
}

func previewText(text string) string {
	runes := []rune(text)
	if len(runes) <= responsePreviewRunes {
		return text
	}
	return string(runes[:responsePreviewRunes]) + "..."
}
