package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/support-agent/internal/config"
	"github.com/kirillkom/support-agent/internal/core/usecase"
	"github.com/kirillkom/support-agent/internal/infrastructure/queue/nats"
	"github.com/kirillkom/support-agent/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/support-agent/internal/observability/metrics"
)

// Worker archives events published by api and cli processes.
type Worker struct {
	Bus      *nats.EventBus
	Archiver *usecase.ArchiveEventUseCase
	Metrics  *metrics.WorkerMetrics

	closers []func()
}

func NewWorker(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Worker, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("NATS_URL is required for the event worker")
	}
	db, err := OpenPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	bus, err := nats.Connect(cfg.NATSURL, cfg.NATSEventsSubject, nats.Options{Logger: logger})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	workerMetrics := metrics.NewWorkerMetrics("worker")
	return &Worker{
		Bus:      bus,
		Archiver: usecase.NewArchiveEventUseCase(postgres.NewEventRepository(db), workerMetrics, logger, 0),
		Metrics:  workerMetrics,
		closers: []func(){
			bus.Close,
			func() { _ = db.Close() },
		},
	}, nil
}

func (w *Worker) Close() {
	for _, closeFn := range w.closers {
		closeFn()
	}
}
