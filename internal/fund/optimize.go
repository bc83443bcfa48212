package fund

import (
	"context"
	"errors"
	"fmt"
	"time"

	"YieldOptimizer/internal/fee"
	"YieldOptimizer/internal/metrics"
	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/protocol"
	"YieldOptimizer/internal/store"

	"github.com/rs/zerolog"
)

// Request asks to move Amount of AssetMint from CurrentProtocol to NewProtocol.
type Request struct {
	Caller          string
	Owner           string
	CurrentProtocol model.ProtocolID
	NewProtocol     model.ProtocolID
	AssetMint       string
	Amount          uint64
}

// Result describes a completed reallocation.
type Result struct {
	From        model.ProtocolID `json:"from_protocol"`
	To          model.ProtocolID `json:"to_protocol"`
	CurrentRate uint64           `json:"current_rate"`
	NewRate     uint64           `json:"new_rate"`
	Gross       uint64           `json:"gross"`
	Fee         uint64           `json:"fee"`
	Net         uint64           `json:"net"`
	FeeRate     uint64           `json:"fee_rate"`
	Timestamp   int64            `json:"timestamp"`
}

// OptimizeYield moves funds to NewProtocol when it pays strictly more than
// CurrentProtocol. ErrLowerYieldRate reports that nothing was moved.
//
// The cooldown check and guard acquisition commit together before any rate
// or adapter call, so a concurrent or nested call for the same owner sees
// the guard held. Once acquired, the attempt runs to a terminal outcome
// regardless of ctx cancellation and always releases the guard.
func (m *Manager) OptimizeYield(ctx context.Context, req Request) (res *Result, err error) {
	log := m.log.With().
		Str("owner", req.Owner).
		Str("from", req.CurrentProtocol.String()).
		Str("to", req.NewProtocol.String()).
		Uint64("amount", req.Amount).
		Logger()

	from, to, err := m.preflight(ctx, req)
	if err != nil {
		m.finish(log, nil, err)
		return nil, err
	}

	now := m.now()
	if err := m.acquire(ctx, req, now); err != nil {
		m.finish(log, nil, err)
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	defer func() {
		if rerr := m.release(ctx, req.Owner, res, now); rerr != nil {
			metrics.RecordGuardReleaseFailure()
			log.Error().Err(rerr).Bool("completed", res != nil).Msg("guard release failed")
			err = errors.Join(err, fmt.Errorf("%w: %w", model.ErrGuardReleaseFailed, rerr))
			res = nil
		}
		if res != nil {
			m.events.Emit(ctx, &model.FundsReallocatedData{
				Owner:        req.Owner,
				FromProtocol: res.From,
				ToProtocol:   res.To,
				Amount:       res.Net,
				Timestamp:    res.Timestamp,
			})
		}
		m.finish(log, res, err)
	}()

	return m.reallocate(ctx, log, req, from, to, now)
}

// preflight runs the checks that need no stored state.
func (m *Manager) preflight(ctx context.Context, req Request) (from, to protocol.Adapter, err error) {
	if err := m.auth.Authorize(ctx, req.Caller, req.Owner); err != nil {
		return nil, nil, err
	}
	if from, err = m.adapters.Get(req.CurrentProtocol); err != nil {
		return nil, nil, err
	}
	if to, err = m.adapters.Get(req.NewProtocol); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// acquire checks the ledger and cooldown and takes the guard in one update.
func (m *Manager) acquire(ctx context.Context, req Request, now time.Time) error {
	return m.store.Update(ctx, func(tx store.Tx) error {
		ledger, err := loadLedger(tx, req.Owner)
		if err != nil {
			return err
		}
		if m.strict {
			if req.CurrentProtocol == req.NewProtocol {
				return model.ErrSameProtocol
			}
			if !ledger.CurrentProtocol.IsNone() && ledger.CurrentProtocol != req.CurrentProtocol {
				return fmt.Errorf("%w: ledger holds %s", model.ErrProtocolMismatch, ledger.CurrentProtocol)
			}
		}
		if !ledger.CooldownElapsed(now, m.cooldown) {
			return fmt.Errorf("%w: next eligible at %s", model.ErrReallocationTooFrequent,
				ledger.NextEligible(m.cooldown).UTC().Format(time.RFC3339))
		}
		g, err := loadGuard(tx, req.Owner)
		if err != nil {
			return err
		}
		if err := g.Start(); err != nil {
			return err
		}
		return saveGuard(tx, req.Owner, g)
	})
}

// release clears the guard. When res is non-nil the ledger records the move
// in the same update.
func (m *Manager) release(ctx context.Context, owner string, res *Result, now time.Time) error {
	return m.store.Update(ctx, func(tx store.Tx) error {
		if res != nil {
			ledger, err := loadLedger(tx, owner)
			if err != nil {
				return err
			}
			ledger.CurrentProtocol = res.To
			if ts := now.Unix(); ts > ledger.LastReallocation {
				ledger.LastReallocation = ts
			}
			if err := saveLedger(tx, ledger); err != nil {
				return err
			}
		}
		g, err := loadGuard(tx, owner)
		if err != nil {
			return err
		}
		g.End()
		return saveGuard(tx, owner, g)
	})
}

func (m *Manager) reallocate(ctx context.Context, log zerolog.Logger, req Request, from, to protocol.Adapter, now time.Time) (*Result, error) {
	currentRate, err := m.observeRate(ctx, req.Owner, req.CurrentProtocol)
	if err != nil {
		return nil, err
	}
	newRate, err := m.observeRate(ctx, req.Owner, req.NewProtocol)
	if err != nil {
		return nil, err
	}
	if newRate <= currentRate {
		return nil, fmt.Errorf("%w: %s pays %d, %s pays %d", model.ErrLowerYieldRate,
			req.NewProtocol, newRate, req.CurrentProtocol, currentRate)
	}

	feeRate, err := m.fees.FeeRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("read fee rate: %w", err)
	}
	feeAmount, net, err := fee.Split(req.Amount, feeRate)
	if err != nil {
		return nil, err
	}

	acct := protocol.AssetAccount{Owner: req.Owner, Mint: req.AssetMint}
	failure := &model.ReallocationFailedData{
		Owner:        req.Owner,
		FromProtocol: req.CurrentProtocol,
		ToProtocol:   req.NewProtocol,
		AssetMint:    req.AssetMint,
		Timestamp:    now.Unix(),
	}

	if werr := from.Withdraw(ctx, acct, req.Amount); werr != nil {
		failure.Stage = model.StageWithdraw
		failure.Amount = req.Amount
		failure.Error = werr.Error()
		m.events.Emit(ctx, failure)
		return nil, fmt.Errorf("%w: %s: %w", model.ErrWithdrawalFailed, req.CurrentProtocol, werr)
	}
	m.events.Emit(ctx, &model.FundsWithdrawnData{Owner: req.Owner, Protocol: req.CurrentProtocol, Amount: req.Amount})

	if derr := to.Deposit(ctx, acct, net); derr != nil {
		metrics.RecordDepositFailure()
		log.Error().Err(derr).
			Str("asset", req.AssetMint).
			Uint64("net", net).
			Msg("deposit failed after withdrawal, funds need manual reconciliation")
		failure.Stage = model.StageDeposit
		failure.Amount = net
		failure.Error = derr.Error()
		m.events.Emit(ctx, failure)
		return nil, fmt.Errorf("%w: %s: %w", model.ErrDepositFailed, req.NewProtocol, derr)
	}
	m.events.Emit(ctx, &model.FundsDepositedData{Owner: req.Owner, Protocol: req.NewProtocol, Amount: net})
	metrics.RecordFee(feeAmount)

	return &Result{
		From:        req.CurrentProtocol,
		To:          req.NewProtocol,
		CurrentRate: currentRate,
		NewRate:     newRate,
		Gross:       req.Amount,
		Fee:         feeAmount,
		Net:         net,
		FeeRate:     feeRate,
		Timestamp:   now.Unix(),
	}, nil
}

func (m *Manager) observeRate(ctx context.Context, owner string, p model.ProtocolID) (uint64, error) {
	rate, err := m.rates.CurrentRate(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", model.ErrRateUnavailable, p, err)
	}
	metrics.RecordRate(string(p), rate)
	m.events.Emit(ctx, &model.YieldRateObservedData{Owner: owner, Protocol: p, Rate: rate})
	return rate, nil
}

// Outcome labels one attempt for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "reallocated"
	case errors.Is(err, model.ErrGuardReleaseFailed):
		return "guard_stuck"
	case model.IsBusinessOutcome(err):
		return "lower_yield"
	case errors.Is(err, model.ErrDepositFailed):
		return "deposit_failed"
	case errors.Is(err, model.ErrWithdrawalFailed):
		return "withdraw_failed"
	case errors.Is(err, model.ErrRateUnavailable):
		return "rate_unavailable"
	case model.IsFatal(err):
		return "fatal"
	case model.IsPrecondition(err):
		return "rejected"
	default:
		return "error"
	}
}

func (m *Manager) finish(log zerolog.Logger, res *Result, err error) {
	outcome := Outcome(err)
	metrics.RecordOutcome(outcome)
	switch outcome {
	case "reallocated":
		log.Info().Uint64("net", res.Net).Uint64("fee", res.Fee).
			Uint64("current_rate", res.CurrentRate).Uint64("new_rate", res.NewRate).
			Msg("funds reallocated")
	case "lower_yield", "rejected":
		log.Info().Str("outcome", outcome).Err(err).Msg("reallocation skipped")
	case "deposit_failed":
		// already logged at error level with the stranded amount
	case "guard_stuck":
		// already logged at error level by the release
	case "fatal":
		log.Error().Err(err).Msg("fee invariant violated")
	default:
		log.Warn().Str("outcome", outcome).Err(err).Msg("reallocation failed")
	}
}
