// Package protocol defines the venue adapters funds are moved through.
package protocol

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"YieldOptimizer/internal/model"
)

// AssetAccount addresses one owner's holding of one asset inside a venue.
type AssetAccount struct {
	Owner string
	Mint  string
}

// Adapter moves funds in and out of a single venue. Implementations may call
// back into the fund manager; the reentrancy guard rejects such calls.
type Adapter interface {
	ID() model.ProtocolID
	Withdraw(ctx context.Context, acct AssetAccount, amount uint64) error
	Deposit(ctx context.Context, acct AssetAccount, amount uint64) error
}

// Registry maps protocol identifiers to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.ProtocolID]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[model.ProtocolID]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.ID().
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

// Get returns the adapter for id or ErrUnsupportedProtocol.
func (r *Registry) Get(id model.ProtocolID) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedProtocol, id)
	}
	return a, nil
}

// Protocols returns the registered identifiers in sorted order.
func (r *Registry) Protocols() []model.ProtocolID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ProtocolID, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
