package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"YieldOptimizer/internal/fund"
	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/notifier"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOptimizer struct {
	mu       sync.Mutex
	ledgers  map[string]*model.FundLedger
	outcomes map[model.ProtocolID]error
	calls    []fund.Request
}

func (f *fakeOptimizer) OptimizeYield(_ context.Context, req fund.Request) (*fund.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err := f.outcomes[req.NewProtocol]; err != nil {
		return nil, err
	}
	return &fund.Result{From: req.CurrentProtocol, To: req.NewProtocol, Net: req.Amount}, nil
}

func (f *fakeOptimizer) Ledger(_ context.Context, owner string) (*model.FundLedger, error) {
	l, ok := f.ledgers[owner]
	if !ok {
		return nil, model.ErrNotInitialized
	}
	return l, nil
}

type fakeGov struct{}

func (fakeGov) Get(context.Context) (*model.GovernanceRecord, error) {
	return &model.GovernanceRecord{Authority: "gov", FeeRate: 100}, nil
}

type fakeMessenger struct {
	sent   []string
	silent []bool
}

func (m *fakeMessenger) SendWithRetry(_ context.Context, msg notifier.Message, _ int) error {
	m.sent = append(m.sent, msg.Text)
	m.silent = append(m.silent, msg.Silent)
	return nil
}

func newLedger(owner string, p model.ProtocolID) *model.FundLedger {
	l := model.NewFundLedger(owner, time.Unix(0, 0))
	l.CurrentProtocol = p
	return l
}

func TestSweepTriesCandidatesInOrder(t *testing.T) {
	opt := &fakeOptimizer{
		ledgers: map[string]*model.FundLedger{"alice": newLedger("alice", model.ProtocolRaydium)},
		outcomes: map[model.ProtocolID]error{
			model.ProtocolSerum: model.ErrLowerYieldRate,
		},
	}
	msg := &fakeMessenger{}
	s := NewScheduler(context.Background(), opt, fakeGov{}, msg, []Job{{
		Owner:      "alice",
		AssetMint:  "USDC",
		Amount:     1000,
		Candidates: []model.ProtocolID{model.ProtocolRaydium, model.ProtocolSerum, model.ProtocolSolend},
	}}, time.Hour, zerolog.Nop())

	sum := s.RunSweepNow()
	assert.Equal(t, Summary{Moved: 1}, sum)
	require.Len(t, opt.calls, 2)
	assert.Equal(t, model.ProtocolSerum, opt.calls[0].NewProtocol)
	assert.Equal(t, model.ProtocolSolend, opt.calls[1].NewProtocol)
	assert.Equal(t, "alice", opt.calls[1].Caller)
	assert.Equal(t, model.ProtocolRaydium, opt.calls[1].CurrentProtocol)
	require.Len(t, msg.sent, 1)
	assert.Contains(t, msg.sent[0], "Moved: 1")
	assert.Equal(t, []bool{true}, msg.silent, "sweep reports are silent")
}

func TestSweepOutcomes(t *testing.T) {
	opt := &fakeOptimizer{
		ledgers: map[string]*model.FundLedger{
			"fresh":    newLedger("fresh", model.ProtocolNone),
			"orphan":   newLedger("orphan", model.ProtocolNone),
			"cooling":  newLedger("cooling", model.ProtocolRaydium),
			"stranded": newLedger("stranded", model.ProtocolSolend),
		},
		outcomes: map[model.ProtocolID]error{
			model.ProtocolSolend: model.ErrReallocationTooFrequent,
			model.ProtocolSerum:  errors.Join(model.ErrDepositFailed, errors.New("paused")),
		},
	}
	jobs := []Job{
		{Owner: "fresh", From: model.ProtocolSolend, Candidates: []model.ProtocolID{model.ProtocolRaydium}},
		{Owner: "orphan", Candidates: []model.ProtocolID{model.ProtocolRaydium}},
		{Owner: "cooling", Candidates: []model.ProtocolID{model.ProtocolSolend}},
		{Owner: "stranded", Candidates: []model.ProtocolID{model.ProtocolSerum}},
		{Owner: "missing", Candidates: []model.ProtocolID{model.ProtocolSerum}},
	}
	s := NewScheduler(context.Background(), opt, fakeGov{}, nil, jobs, time.Hour, zerolog.Nop())

	sum := s.RunSweepNow()
	assert.Equal(t, Summary{Moved: 1, Skipped: 2, Failed: 2}, sum)
	assert.Equal(t, model.ProtocolSolend, opt.calls[0].CurrentProtocol, "configured origin used for fresh ledgers")
}

func TestSweepStopsWhenGuardIsLeftHeld(t *testing.T) {
	stuck := errors.Join(
		model.ErrLowerYieldRate,
		fmt.Errorf("%w: %w", model.ErrGuardReleaseFailed, errors.New("disk full")),
	)
	opt := &fakeOptimizer{
		ledgers:  map[string]*model.FundLedger{"alice": newLedger("alice", model.ProtocolRaydium)},
		outcomes: map[model.ProtocolID]error{model.ProtocolSerum: stuck},
	}
	msg := &fakeMessenger{}
	s := NewScheduler(context.Background(), opt, fakeGov{}, msg, []Job{{
		Owner:      "alice",
		Candidates: []model.ProtocolID{model.ProtocolSerum, model.ProtocolSolend},
	}}, time.Hour, zerolog.Nop())

	sum := s.RunSweepNow()
	assert.Equal(t, Summary{Failed: 1}, sum)
	require.Len(t, opt.calls, 1, "no further candidates once the guard is stuck")
	require.Len(t, msg.sent, 1)
	assert.Contains(t, msg.sent[0], "Failed: 1")
}

func TestRegisterRejectsBadCronExpression(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeOptimizer{}, fakeGov{}, nil, nil, time.Hour, zerolog.Nop())
	assert.Error(t, s.Register("not a cron"))
	assert.NoError(t, s.Register("0 */15 * * * *"))
}

func TestHandleCommand(t *testing.T) {
	opt := &fakeOptimizer{ledgers: map[string]*model.FundLedger{"alice": newLedger("alice", model.ProtocolSolend)}}
	s := NewScheduler(context.Background(), opt, fakeGov{}, nil, nil, time.Hour, zerolog.Nop())
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/ledger alice"), "Protocol: solend")
	assert.Contains(t, s.HandleCommand(ctx, "/ledger bob"), "not initialized")
	assert.Contains(t, s.HandleCommand(ctx, "/ledger"), "usage")
	assert.Contains(t, s.HandleCommand(ctx, "/fee"), "100 bps")
	assert.Contains(t, s.HandleCommand(ctx, "/sweep"), "Moved: 0")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/help")
}
