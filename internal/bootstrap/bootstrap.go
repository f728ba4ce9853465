package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/support-agent/internal/config"
	"github.com/kirillkom/support-agent/internal/core/ports"
	"github.com/kirillkom/support-agent/internal/core/usecase"
	"github.com/kirillkom/support-agent/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/support-agent/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/support-agent/internal/infrastructure/queue/nats"
	"github.com/kirillkom/support-agent/internal/infrastructure/repository/fallback"
	"github.com/kirillkom/support-agent/internal/infrastructure/repository/faqfile"
	"github.com/kirillkom/support-agent/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/support-agent/internal/infrastructure/resilience"
	"github.com/kirillkom/support-agent/internal/infrastructure/vector/featurehash"
	"github.com/kirillkom/support-agent/internal/observability/accounting"
	"github.com/kirillkom/support-agent/internal/observability/metrics"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Agent     *usecase.SupportAgentUseCase
	Knowledge *usecase.KnowledgeUseCase
	Recorder  *accounting.Recorder
	Metrics   *metrics.HTTPServerMetrics

	// Events is set only with the postgres backend.
	Events *postgres.EventRepository

	closers []func()
}

// New assembles the query pipeline for one process. service labels logs and
// metrics.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, service string) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	policy, err := config.LoadPolicy(cfg.PolicyFile, cfg.SensitiveWordsFile)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	source, err := app.openEvidenceSource(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	sinks, err := app.openEventSinks()
	if err != nil {
		app.Close()
		return nil, err
	}
	recorder := accounting.NewRecorder(accounting.Options{
		CostTracking:          cfg.EnableCostTracking,
		CostPer1KInputTokens:  cfg.CostPer1KInputTokens,
		CostPer1KOutputTokens: cfg.CostPer1KOutputTokens,
	}, logger, sinks...)

	pipelineMetrics := metrics.NewHTTPServerMetrics(service)
	pipelineMetrics.RegisterSessionCost(func() float64 {
		return recorder.Summary().TotalCost
	})

	model, err := NewChatModel(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	retriever := usecase.NewEvidenceRetriever(source, featurehash.NewEmbedder(), usecase.RetrieverOptions{
		TopK:                cfg.RAGTopK,
		SimilarityThreshold: cfg.RAGSimilarityThreshold,
	})
	validator := usecase.NewValidator(model, pipelineMetrics, logger, usecase.ValidatorOptions{
		Temperature: cfg.ValidatorTemperature,
		MaxTokens:   cfg.ValidatorMaxTokens,
		Timeout:     cfg.ValidationTimeout,
	})

	app.Agent = usecase.NewSupportAgentUseCase(
		model,
		usecase.NewSafetyFilter(usecase.SafetyOptions{
			MaxInputLength: cfg.MaxInputLength,
			SensitiveWords: policy.SensitiveWords,
		}),
		usecase.NewIntentClassifier(usecase.IntentOptions{
			ChitchatKeywords:       policy.ChitchatKeywords,
			FAQKeywords:            policy.FAQKeywords,
			FAQConfidenceThreshold: cfg.FAQConfidenceThreshold,
		}),
		retriever,
		validator,
		recorder,
		pipelineMetrics,
		logger,
		usecase.AgentOptions{
			Temperature:       cfg.LLMTemperature,
			MaxTokens:         cfg.LLMMaxTokens,
			TopK:              cfg.RAGTopK,
			GenerationTimeout: cfg.GenerationTimeout,
		},
	)
	app.Knowledge = usecase.NewKnowledgeUseCase(source, logger)
	app.Recorder = recorder
	app.Metrics = pipelineMetrics

	logger.Info("support agent ready",
		"session_id", recorder.SessionID(),
		"llm_provider", cfg.LLMProvider,
		"llm_model", model.Model(),
		"evidence_backend", cfg.EvidenceBackend,
		"hash_version", featurehash.HashVersion,
	)
	return app, nil
}

// NewChatModel picks the LLM transport. Generation is never retried; the
// breaker still sheds load from a failing backend.
func NewChatModel(cfg config.Config, logger *slog.Logger) (ports.ChatModel, error) {
	executor := resilience.NewExecutor(resilience.LLMConfig(
		cfg.LLMBreakerEnabled,
		cfg.LLMBreakerMinRequests,
		cfg.LLMBreakerFailureRatio,
		cfg.LLMBreakerOpenTimeout,
	), logger)

	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "ollama":
		return ollama.New(cfg.LLMURL, cfg.LLMModel, executor), nil
	case "openai", "openai-compatible", "deepseek":
		return openaicompat.New(cfg.LLMURL, cfg.LLMModel, cfg.LLMAPIKey, executor), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

func (a *App) openEvidenceSource(ctx context.Context) (ports.EvidenceSource, error) {
	switch strings.ToLower(strings.TrimSpace(a.Config.EvidenceBackend)) {
	case "", BackendFile:
		repo, err := faqfile.Open(a.Config.FAQFile, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("open faq file: %w", err)
		}
		return repo, nil
	case BackendPostgres:
		db, err := OpenPostgres(ctx, a.Config.PostgresDSN)
		if err != nil {
			a.Logger.Warn("postgres unavailable, serving built-in faqs read-only", "error", err)
			return fallback.New(nil, a.Logger), nil
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.Events = postgres.NewEventRepository(db)
		return fallback.New(postgres.NewFAQRepository(db), a.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported evidence backend %q", a.Config.EvidenceBackend)
	}
}

func (a *App) openEventSinks() ([]ports.EventSink, error) {
	var sinks []ports.EventSink
	if path := strings.TrimSpace(a.Config.EventLogFile); path != "" {
		sink, err := accounting.NewJSONLSink(path)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if url := strings.TrimSpace(a.Config.NATSURL); url != "" {
		bus, err := nats.Connect(url, a.Config.NATSEventsSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.PublishConfig(), a.Logger),
			Logger:             a.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init event bus: %w", err)
		}
		a.closers = append(a.closers, bus.Close)
		sinks = append(sinks, bus)
	}
	return sinks, nil
}

// OpenPostgres connects and makes sure the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
