package protocol

import (
	"context"
	"errors"
	"sync"

	"YieldOptimizer/internal/model"

	"github.com/rs/zerolog"
)

var errInsufficientPosition = errors.New("position smaller than requested amount")

// SimVenue is an in-memory venue. With EnforcePositions set, withdrawals
// larger than the recorded position fail; otherwise positions are tracked
// but never block a withdrawal.
type SimVenue struct {
	id               model.ProtocolID
	enforcePositions bool
	log              zerolog.Logger

	mu        sync.Mutex
	positions map[AssetAccount]uint64

	// Hooks run before the corresponding operation and may fail it. Tests
	// use them to inject failures and nested calls.
	BeforeWithdraw func(ctx context.Context, acct AssetAccount, amount uint64) error
	BeforeDeposit  func(ctx context.Context, acct AssetAccount, amount uint64) error
}

func NewSimVenue(id model.ProtocolID, enforcePositions bool, log zerolog.Logger) *SimVenue {
	return &SimVenue{
		id:               id,
		enforcePositions: enforcePositions,
		log:              log.With().Str("protocol", string(id)).Logger(),
		positions:        make(map[AssetAccount]uint64),
	}
}

func (v *SimVenue) ID() model.ProtocolID { return v.id }

func (v *SimVenue) Withdraw(ctx context.Context, acct AssetAccount, amount uint64) error {
	if v.BeforeWithdraw != nil {
		if err := v.BeforeWithdraw(ctx, acct, amount); err != nil {
			return err
		}
	}
	if amount == 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	have := v.positions[acct]
	if have < amount {
		if v.enforcePositions {
			return errInsufficientPosition
		}
		have = amount
	}
	if have-amount == 0 {
		delete(v.positions, acct)
	} else {
		v.positions[acct] = have - amount
	}
	v.log.Debug().Str("owner", acct.Owner).Str("mint", acct.Mint).Uint64("amount", amount).Msg("withdraw")
	return nil
}

func (v *SimVenue) Deposit(ctx context.Context, acct AssetAccount, amount uint64) error {
	if v.BeforeDeposit != nil {
		if err := v.BeforeDeposit(ctx, acct, amount); err != nil {
			return err
		}
	}
	if amount == 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.positions[acct] += amount
	v.log.Debug().Str("owner", acct.Owner).Str("mint", acct.Mint).Uint64("amount", amount).Msg("deposit")
	return nil
}

// Position returns the amount held for acct.
func (v *SimVenue) Position(acct AssetAccount) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.positions[acct]
}

// Seed sets the position for acct directly.
func (v *SimVenue) Seed(acct AssetAccount, amount uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.positions[acct] = amount
}
