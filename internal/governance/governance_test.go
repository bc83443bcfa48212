package governance

import (
	"context"
	"sync"
	"testing"

	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *captureSink) Emit(_ context.Context, evt model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func newService(t *testing.T) (*Service, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	svc := NewService(store.NewMemoryStore(), sink, zerolog.Nop())
	_, err := svc.Bootstrap(context.Background(), "gov", 100)
	require.NoError(t, err)
	return svc, sink
}

func TestBootstrapIsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	rec, err := svc.Bootstrap(ctx, "someone-else", 250)
	require.NoError(t, err)
	assert.Equal(t, "gov", rec.Authority)
	assert.Equal(t, uint64(100), rec.FeeRate)

	_, err = NewService(store.NewMemoryStore(), nil, zerolog.Nop()).Bootstrap(ctx, "gov", 10001)
	assert.ErrorIs(t, err, model.ErrInvalidFeeRate)
}

func TestGetMissing(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil, zerolog.Nop())
	_, err := svc.Get(context.Background())
	assert.ErrorIs(t, err, model.ErrGovernanceMissing)
}

func TestUpdateFeeRate(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		rate    uint64
		wantErr error
		want    uint64
	}{
		{"authority sets rate", "gov", 250, nil, 250},
		{"full rate allowed", "gov", 10000, nil, 10000},
		{"zero allowed", "gov", 0, nil, 0},
		{"non authority rejected", "mallory", 5, model.ErrUnauthorized, 100},
		{"above bound rejected", "gov", 10001, model.ErrInvalidFeeRate, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sink := newService(t)
			ctx := context.Background()

			_, err := svc.UpdateFeeRate(ctx, tt.caller, tt.rate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, sink.events)
			} else {
				require.NoError(t, err)
				require.Len(t, sink.events, 1)
				evt := sink.events[0].(*model.FeeRateUpdatedData)
				assert.Equal(t, uint64(100), evt.OldRate)
				assert.Equal(t, tt.rate, evt.NewRate)
			}

			rate, err := svc.FeeRate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rate)
		})
	}
}
