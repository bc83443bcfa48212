// Package governance owns the platform fee rate and the authority allowed
// to change it.
package governance

import (
	"context"
	"fmt"

	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/recorder"
	"YieldOptimizer/internal/store"

	"github.com/rs/zerolog"
)

const recordKey = "platform"

type Service struct {
	store store.Store
	sink  recorder.Sink
	log   zerolog.Logger
}

func NewService(st store.Store, sink recorder.Sink, log zerolog.Logger) *Service {
	if sink == nil {
		sink = recorder.NopSink{}
	}
	return &Service{
		store: st,
		sink:  sink,
		log:   log.With().Str("component", "governance").Logger(),
	}
}

// Bootstrap creates the governance record unless one already exists. An
// existing record is left as it is, so a restart never resets the fee.
func (s *Service) Bootstrap(ctx context.Context, authority string, feeRate uint64) (*model.GovernanceRecord, error) {
	if authority == "" {
		return nil, fmt.Errorf("bootstrap governance: empty authority")
	}
	if feeRate > model.MaxFeeRateBps {
		return nil, fmt.Errorf("bootstrap governance: %w", model.ErrInvalidFeeRate)
	}
	var rec model.GovernanceRecord
	created := false
	err := s.store.Update(ctx, func(tx store.Tx) error {
		ok, err := tx.Get(store.NamespaceGovernance, recordKey, &rec)
		if err != nil || ok {
			return err
		}
		rec = model.GovernanceRecord{Authority: authority, FeeRate: feeRate}
		created = true
		return tx.Put(store.NamespaceGovernance, recordKey, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap governance: %w", err)
	}
	if created {
		s.log.Info().Str("authority", authority).Uint64("fee_rate", feeRate).Msg("governance bootstrapped")
	} else if rec.Authority != authority {
		s.log.Warn().Str("stored", rec.Authority).Str("configured", authority).
			Msg("configured authority differs from stored record, keeping stored")
	}
	return &rec, nil
}

// Get returns the governance record.
func (s *Service) Get(ctx context.Context) (*model.GovernanceRecord, error) {
	var rec model.GovernanceRecord
	err := s.store.View(ctx, func(tx store.Tx) error {
		ok, err := tx.Get(store.NamespaceGovernance, recordKey, &rec)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrGovernanceMissing
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FeeRate returns the current fee rate in basis points.
func (s *Service) FeeRate(ctx context.Context) (uint64, error) {
	rec, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return rec.FeeRate, nil
}

// UpdateFeeRate sets a new fee rate. Only the recorded authority may call it.
func (s *Service) UpdateFeeRate(ctx context.Context, caller string, newRate uint64) (*model.GovernanceRecord, error) {
	var rec model.GovernanceRecord
	var old uint64
	err := s.store.Update(ctx, func(tx store.Tx) error {
		ok, err := tx.Get(store.NamespaceGovernance, recordKey, &rec)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrGovernanceMissing
		}
		if caller != rec.Authority {
			return model.ErrUnauthorized
		}
		if newRate > model.MaxFeeRateBps {
			return model.ErrInvalidFeeRate
		}
		old = rec.FeeRate
		rec.FeeRate = newRate
		return tx.Put(store.NamespaceGovernance, recordKey, &rec)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("authority", caller).Uint64("old_rate", old).Uint64("new_rate", newRate).Msg("fee rate updated")
	s.sink.Emit(ctx, &model.FeeRateUpdatedData{Authority: caller, OldRate: old, NewRate: newRate})
	return &rec, nil
}
