package recorder

import "context"

// NoopRecorder is used when no events database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvent(_ context.Context, _ *Entry) error { return nil }
func (n *NoopRecorder) ListEvents(_ context.Context, _ Filter) ([]Entry, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
