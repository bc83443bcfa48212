package notifier

import (
	"context"

	"YieldOptimizer/internal/model"

	"github.com/rs/zerolog"
)

const alarmQueueSize = 64

// Sender delivers one formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, msg Message, maxRetries int) error
}

// AlarmSink turns failed reallocations into operator messages. Emit only
// queues; Run delivers, so a slow chat never delays a reallocation.
type AlarmSink struct {
	sender Sender
	queue  chan string
	log    zerolog.Logger

	// StrandedOnly drops withdraw-stage failures, which leave funds in place.
	StrandedOnly bool
}

func NewAlarmSink(sender Sender, log zerolog.Logger) *AlarmSink {
	return &AlarmSink{
		sender: sender,
		queue:  make(chan string, alarmQueueSize),
		log:    log.With().Str("component", "alarm").Logger(),
	}
}

func (s *AlarmSink) Emit(_ context.Context, evt model.Event) {
	failed, ok := evt.(*model.ReallocationFailedData)
	if !ok {
		return
	}
	if s.StrandedOnly && !failed.Stranded() {
		return
	}
	select {
	case s.queue <- FormatAlarm(failed):
	default:
		s.log.Error().Str("owner", failed.Owner).Str("stage", failed.Stage).Msg("alarm queue full, alarm dropped")
	}
}

// Run delivers queued alarms until ctx is cancelled.
func (s *AlarmSink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-s.queue:
			if err := s.sender.SendWithRetry(ctx, Alarm(text), 3); err != nil {
				s.log.Error().Err(err).Msg("deliver alarm")
			}
		}
	}
}
