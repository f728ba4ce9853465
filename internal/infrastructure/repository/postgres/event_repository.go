package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

// EventRepository archives accounting events. Appends are idempotent on the
// event id so redelivered bus messages are harmless.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, event domain.Event) error {
	if event.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "append event", fmt.Errorf("event id is empty"))
	}
	data := event.Data
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO agent_events (id, session_id, event_type, data, occurred_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO NOTHING
`, event.ID, event.SessionID, event.EventType, dataJSON, event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListBySession returns a session's events in occurrence order.
func (r *EventRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, event_type, data, occurred_at
FROM agent_events
WHERE session_id = $1
ORDER BY occurred_at
LIMIT $2
`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0, limit)
	for rows.Next() {
		var event domain.Event
		var dataRaw []byte
		if err := rows.Scan(&event.ID, &event.SessionID, &event.EventType, &dataRaw, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal(dataRaw, &event.Data); err != nil {
			return nil, fmt.Errorf("decode event data: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
