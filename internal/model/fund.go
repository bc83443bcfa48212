package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	// MaxAssets caps the number of distinct assets a single ledger may hold.
	MaxAssets = 10

	// MinReallocationPeriod is the default cooldown between completed reallocations.
	MinReallocationPeriod = time.Hour
)

// FundLedger is the per-owner custody record.
type FundLedger struct {
	Owner            string            `msgpack:"owner" json:"owner"`
	Balances         map[string]uint64 `msgpack:"balances" json:"balances"`
	CurrentProtocol  ProtocolID        `msgpack:"current_protocol" json:"current_protocol"`
	LastReallocation int64             `msgpack:"last_reallocation" json:"last_reallocation"`
}

// NewFundLedger returns a ledger with no balances and no active protocol.
func NewFundLedger(owner string, now time.Time) *FundLedger {
	return &FundLedger{
		Owner:            owner,
		Balances:         map[string]uint64{},
		CurrentProtocol:  ProtocolNone,
		LastReallocation: now.Unix(),
	}
}

// Balance returns the held amount of asset, zero if absent.
func (l *FundLedger) Balance(asset string) uint64 {
	return l.Balances[asset]
}

// Assets returns the held asset identifiers in sorted order.
func (l *FundLedger) Assets() []string {
	assets := make([]string, 0, len(l.Balances))
	for a := range l.Balances {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets
}

// Credit adds amount to the asset balance. A new asset is rejected once the
// ledger already tracks MaxAssets distinct assets.
func (l *FundLedger) Credit(asset string, amount uint64) error {
	if asset == "" {
		return fmt.Errorf("credit: empty asset identifier")
	}
	if l.Balances == nil {
		l.Balances = map[string]uint64{}
	}
	cur, ok := l.Balances[asset]
	if !ok && len(l.Balances) >= MaxAssets {
		return fmt.Errorf("%w: ledger already holds %d assets", ErrTooManyAssets, MaxAssets)
	}
	if amount > math.MaxUint64-cur {
		return fmt.Errorf("credit %s: balance overflow", asset)
	}
	l.Balances[asset] = cur + amount
	return nil
}

// Debit removes amount from the asset balance. Emptied assets are dropped so
// they stop counting against MaxAssets.
func (l *FundLedger) Debit(asset string, amount uint64) error {
	cur := l.Balances[asset]
	if amount > cur {
		return fmt.Errorf("%w: %s holds %d, requested %d", ErrInsufficientFunds, asset, cur, amount)
	}
	if cur-amount == 0 {
		delete(l.Balances, asset)
		return nil
	}
	l.Balances[asset] = cur - amount
	return nil
}

// CooldownElapsed reports whether at least period has passed since the last
// completed reallocation.
func (l *FundLedger) CooldownElapsed(now time.Time, period time.Duration) bool {
	return now.Unix()-l.LastReallocation >= int64(period/time.Second)
}

// NextEligible returns the earliest time a reallocation may run.
func (l *FundLedger) NextEligible(period time.Duration) time.Time {
	return time.Unix(l.LastReallocation, 0).Add(period)
}
