package recorder

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"YieldOptimizer/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "events.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRecordAndList(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	events := []model.Event{
		&model.YieldRateObservedData{Owner: "alice", Protocol: model.ProtocolRaydium, Rate: 5},
		&model.YieldRateObservedData{Owner: "alice", Protocol: model.ProtocolSolend, Rate: 8},
		&model.FundsReallocatedData{Owner: "alice", FromProtocol: model.ProtocolRaydium, ToProtocol: model.ProtocolSolend, Amount: 990, Timestamp: 3600},
		&model.FundsInitializedData{Owner: "bob", Timestamp: 1},
	}
	for i, evt := range events {
		e, err := NewEntry(evt, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, r.RecordEvent(ctx, e))
	}

	all, err := r.ListEvents(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, model.EventFundsInitialized, all[0].Type, "newest first")

	alice, err := r.ListEvents(ctx, Filter{Owner: "alice", Type: model.EventFundsReallocated})
	require.NoError(t, err)
	require.Len(t, alice, 1)

	var got model.FundsReallocatedData
	require.NoError(t, json.Unmarshal(alice[0].Payload, &got))
	assert.Equal(t, uint64(990), got.Amount)
	assert.Equal(t, base.Add(2*time.Second), alice[0].Timestamp)

	limited, err := r.ListEvents(ctx, Filter{Owner: "alice", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRecorderSinkPersists(t *testing.T) {
	r := newTestRecorder(t)
	sink := NewRecorderSink(r, zerolog.Nop())

	sink.Emit(context.Background(), &model.FeeRateUpdatedData{Authority: "gov", OldRate: 100, NewRate: 250})

	got, err := r.ListEvents(context.Background(), Filter{Type: model.EventFeeRateUpdated})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Owner)
	assert.Len(t, got[0].ID, 26)
}

type countingSink struct{ n int }

func (c *countingSink) Emit(context.Context, model.Event) { c.n++ }

func TestMultiSink(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	MultiSink{a, NopSink{}, b}.Emit(context.Background(), &model.FundsInitializedData{Owner: "x"})
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}

func TestNewIDMonotonic(t *testing.T) {
	at := time.Now()
	first := NewID(at)
	second := NewID(at)
	assert.Less(t, first, second)
}
