package accounting

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

type logLine struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
}

// JSONLSink appends one JSON object per event to a file.
type JSONLSink struct {
	mu   sync.Mutex
	path string
}

// NewJSONLSink creates the parent directory of path.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create event log dir: %w", err)
		}
	}
	return &JSONLSink{path: path}, nil
}

func (s *JSONLSink) Write(_ context.Context, event domain.Event) error {
	line, err := json.Marshal(logLine{
		Timestamp: event.Timestamp,
		EventType: event.EventType,
		Data:      event.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append event log: %w", err)
	}
	return nil
}
