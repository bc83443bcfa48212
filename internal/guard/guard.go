// Package guard holds the per-owner reentrancy flag protecting reallocation.
package guard

import "YieldOptimizer/internal/model"

// Guard is persisted next to the owner's ledger. InProgress is true only
// between the start and the end of one reallocation.
type Guard struct {
	InProgress bool `msgpack:"in_progress" json:"in_progress"`
}

// Start claims the guard or reports ErrReentrancyDetected.
func (g *Guard) Start() error {
	if g.InProgress {
		return model.ErrReentrancyDetected
	}
	g.InProgress = true
	return nil
}

// End releases the guard.
func (g *Guard) End() {
	g.InProgress = false
}
