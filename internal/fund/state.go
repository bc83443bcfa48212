package fund

import (
	"YieldOptimizer/internal/guard"
	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/store"
)

// loadLedger reads the owner's ledger or returns ErrNotInitialized.
func loadLedger(tx store.Tx, owner string) (*model.FundLedger, error) {
	var l model.FundLedger
	ok, err := tx.Get(store.NamespaceUserFunds, owner, &l)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrNotInitialized
	}
	if l.Balances == nil {
		l.Balances = map[string]uint64{}
	}
	return &l, nil
}

func saveLedger(tx store.Tx, l *model.FundLedger) error {
	return tx.Put(store.NamespaceUserFunds, l.Owner, l)
}

// loadGuard reads the owner's guard. A missing guard is at rest.
func loadGuard(tx store.Tx, owner string) (*guard.Guard, error) {
	var g guard.Guard
	if _, err := tx.Get(store.NamespaceGuard, owner, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func saveGuard(tx store.Tx, owner string, g *guard.Guard) error {
	return tx.Put(store.NamespaceGuard, owner, g)
}
