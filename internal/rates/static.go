package rates

import (
	"context"
	"sync"

	"YieldOptimizer/internal/model"
)

// StaticSource serves fixed rates, falling back to a default for protocols
// it has no entry for. Rates can be changed at runtime with Set.
type StaticSource struct {
	mu       sync.RWMutex
	rates    map[model.ProtocolID]uint64
	fallback uint64
}

func NewStaticSource(rates map[model.ProtocolID]uint64, fallback uint64) *StaticSource {
	cp := make(map[model.ProtocolID]uint64, len(rates))
	for k, v := range rates {
		cp[k] = v
	}
	return &StaticSource{rates: cp, fallback: fallback}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) CurrentRate(_ context.Context, protocol model.ProtocolID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rates[protocol]; ok {
		return r, nil
	}
	return s.fallback, nil
}

func (s *StaticSource) Set(protocol model.ProtocolID, rate uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[protocol] = rate
}
