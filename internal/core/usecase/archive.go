package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/support-agent/internal/core/domain"
	"github.com/kirillkom/support-agent/internal/core/ports"
)

// ArchiveEventUseCase stores events consumed from the event bus.
type ArchiveEventUseCase struct {
	archive ports.EventArchive
	metrics ports.ArchiveMetrics
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewArchiveEventUseCase(archive ports.EventArchive, metrics ports.ArchiveMetrics, logger *slog.Logger, timeout time.Duration) *ArchiveEventUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ArchiveEventUseCase{
		archive: archive,
		metrics: metrics,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

func (uc *ArchiveEventUseCase) Handle(ctx context.Context, event domain.Event) error {
	started := uc.now()
	if uc.metrics != nil {
		uc.metrics.StartEvent()
		if !event.Timestamp.IsZero() {
			uc.metrics.ObserveEventLag(started.Sub(event.Timestamp))
		}
	}

	archiveCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	err := uc.archive.Append(archiveCtx, event)

	if uc.metrics != nil {
		uc.metrics.FinishEvent(event.EventType, uc.now().Sub(started), err)
	}
	if err != nil {
		return fmt.Errorf("archive event %s: %w", event.ID, err)
	}
	uc.logger.Debug("event archived", "event_id", event.ID, "event_type", event.EventType, "session_id", event.SessionID)
	return nil
}
