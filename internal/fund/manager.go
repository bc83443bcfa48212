// Package fund implements custody ledgers and the reallocation state machine
// that moves an owner's funds to the venue paying the higher yield.
package fund

import (
	"context"
	"fmt"
	"time"

	"YieldOptimizer/internal/auth"
	"YieldOptimizer/internal/guard"
	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/protocol"
	"YieldOptimizer/internal/rates"
	"YieldOptimizer/internal/recorder"
	"YieldOptimizer/internal/store"

	"github.com/rs/zerolog"
)

// FeeSource returns the platform fee rate in basis points.
type FeeSource interface {
	FeeRate(ctx context.Context) (uint64, error)
}

// Config wires a Manager to its collaborators.
type Config struct {
	Store    store.Store
	Adapters *protocol.Registry
	Rates    rates.Source
	Fees     FeeSource
	Auth     auth.Authorizer
	Events   recorder.Sink
	Log      zerolog.Logger

	// Cooldown is the minimum time between completed reallocations.
	Cooldown time.Duration
	// StrictProtocolChecks rejects same-protocol moves and requests whose
	// current protocol disagrees with the ledger.
	StrictProtocolChecks bool
	Clock                func() time.Time
}

// Manager owns every ledger and guard mutation.
type Manager struct {
	store    store.Store
	adapters *protocol.Registry
	rates    rates.Source
	fees     FeeSource
	auth     auth.Authorizer
	events   recorder.Sink
	log      zerolog.Logger
	cooldown time.Duration
	strict   bool
	now      func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil || cfg.Adapters == nil || cfg.Rates == nil || cfg.Fees == nil {
		return nil, fmt.Errorf("fund manager: store, adapters, rates and fees are required")
	}
	m := &Manager{
		store:    cfg.Store,
		adapters: cfg.Adapters,
		rates:    cfg.Rates,
		fees:     cfg.Fees,
		auth:     cfg.Auth,
		events:   cfg.Events,
		log:      cfg.Log.With().Str("component", "fund").Logger(),
		cooldown: cfg.Cooldown,
		strict:   cfg.StrictProtocolChecks,
		now:      cfg.Clock,
	}
	if m.auth == nil {
		m.auth = auth.OwnerAuthorizer{}
	}
	if m.events == nil {
		m.events = recorder.NopSink{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Initialize creates the owner's ledger and guard.
func (m *Manager) Initialize(ctx context.Context, caller, owner string) (*model.FundLedger, error) {
	if err := m.auth.Authorize(ctx, caller, owner); err != nil {
		return nil, err
	}
	now := m.now()
	ledger := model.NewFundLedger(owner, now)
	err := m.store.Update(ctx, func(tx store.Tx) error {
		exists, err := tx.Exists(store.NamespaceUserFunds, owner)
		if err != nil {
			return err
		}
		if exists {
			return model.ErrAlreadyInitialized
		}
		if err := saveLedger(tx, ledger); err != nil {
			return err
		}
		return saveGuard(tx, owner, &guard.Guard{})
	})
	if err != nil {
		return nil, err
	}

	m.log.Info().Str("owner", owner).Msg("funds initialized")
	m.events.Emit(ctx, &model.FundsInitializedData{Owner: owner, Timestamp: now.Unix()})
	return ledger, nil
}

// Ledger returns the owner's ledger.
func (m *Manager) Ledger(ctx context.Context, owner string) (*model.FundLedger, error) {
	var ledger *model.FundLedger
	err := m.store.View(ctx, func(tx store.Tx) error {
		var err error
		ledger, err = loadLedger(tx, owner)
		return err
	})
	return ledger, err
}

// InProgress reports whether a reallocation currently holds the owner's guard.
func (m *Manager) InProgress(ctx context.Context, owner string) (bool, error) {
	var busy bool
	err := m.store.View(ctx, func(tx store.Tx) error {
		g, err := loadGuard(tx, owner)
		if err != nil {
			return err
		}
		busy = g.InProgress
		return nil
	})
	return busy, err
}

// CreditBalance records amount of asset entering custody.
func (m *Manager) CreditBalance(ctx context.Context, caller, owner, asset string, amount uint64) (*model.FundLedger, error) {
	return m.changeBalance(ctx, caller, owner, asset, amount, model.DirectionCredit)
}

// DebitBalance records amount of asset leaving custody.
func (m *Manager) DebitBalance(ctx context.Context, caller, owner, asset string, amount uint64) (*model.FundLedger, error) {
	return m.changeBalance(ctx, caller, owner, asset, amount, model.DirectionDebit)
}

func (m *Manager) changeBalance(ctx context.Context, caller, owner, asset string, amount uint64, direction string) (*model.FundLedger, error) {
	if err := m.auth.Authorize(ctx, caller, owner); err != nil {
		return nil, err
	}
	var ledger *model.FundLedger
	err := m.store.Update(ctx, func(tx store.Tx) error {
		var err error
		ledger, err = loadLedger(tx, owner)
		if err != nil {
			return err
		}
		if direction == model.DirectionCredit {
			err = ledger.Credit(asset, amount)
		} else {
			err = ledger.Debit(asset, amount)
		}
		if err != nil {
			return err
		}
		return saveLedger(tx, ledger)
	})
	if err != nil {
		return nil, err
	}

	m.log.Info().Str("owner", owner).Str("asset", asset).Str("direction", direction).Uint64("amount", amount).Msg("balance changed")
	m.events.Emit(ctx, &model.BalanceChangedData{
		Owner:     owner,
		AssetMint: asset,
		Direction: direction,
		Amount:    amount,
		Balance:   ledger.Balance(asset),
	})
	return ledger, nil
}
