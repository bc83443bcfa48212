package recorder

import (
	"context"
	"encoding/json"
	"time"

	"YieldOptimizer/internal/model"

	"github.com/rs/zerolog"
)

// Sink receives audit events. Emission is fire-and-forget: a sink that
// cannot deliver logs the failure instead of failing the operation.
type Sink interface {
	Emit(ctx context.Context, evt model.Event)
}

// NewEntry wraps evt in a persisted envelope.
func NewEntry(evt model.Event, at time.Time) (*Entry, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:        NewID(at),
		Type:      evt.EventType(),
		Owner:     evt.EventOwner(),
		Timestamp: at.UTC(),
		Payload:   payload,
	}, nil
}

// RecorderSink writes every event to a Recorder and the log.
type RecorderSink struct {
	rec Recorder
	log zerolog.Logger
	now func() time.Time
}

func NewRecorderSink(rec Recorder, log zerolog.Logger) *RecorderSink {
	return &RecorderSink{
		rec: rec,
		log: log.With().Str("component", "events").Logger(),
		now: time.Now,
	}
}

func (s *RecorderSink) Emit(ctx context.Context, evt model.Event) {
	entry, err := NewEntry(evt, s.now())
	if err != nil {
		s.log.Error().Err(err).Str("event", string(evt.EventType())).Msg("encode event")
		return
	}
	s.log.Info().
		Str("event", string(entry.Type)).
		Str("owner", entry.Owner).
		RawJSON("payload", entry.Payload).
		Msg("event emitted")
	if err := s.rec.RecordEvent(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("event", string(entry.Type)).Msg("record event")
	}
}

// MultiSink fans every event out to each sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, evt model.Event) {
	for _, s := range m {
		s.Emit(ctx, evt)
	}
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(context.Context, model.Event) {}
