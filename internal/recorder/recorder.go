package recorder

import (
	"context"
	"time"

	"YieldOptimizer/internal/model"
)

// Entry is one persisted audit event.
type Entry struct {
	ID        string          `json:"id"`
	Type      model.EventType `json:"type"`
	Owner     string          `json:"owner,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   []byte          `json:"payload"`
}

// Filter narrows ListEvents. Zero values match everything.
type Filter struct {
	Owner string
	Type  model.EventType
	Limit int
}

// Recorder persists audit events for operators and external monitors.
type Recorder interface {
	RecordEvent(ctx context.Context, e *Entry) error
	ListEvents(ctx context.Context, f Filter) ([]Entry, error)
	Close() error
}
