// Package rates supplies the current yield rate of each protocol. Sources
// are trusted: staleness and manipulation checks belong to the oracle behind
// them.
package rates

import (
	"context"

	"YieldOptimizer/internal/model"
)

// Source returns the current yield rate for a protocol.
type Source interface {
	CurrentRate(ctx context.Context, protocol model.ProtocolID) (uint64, error)
	Name() string
}
