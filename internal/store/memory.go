package store

import (
	"context"
	"fmt"
	"sync"
)

type recordKey struct {
	namespace string
	owner     string
}

// MemoryStore keeps encoded records in a map. Used by tests and when no
// database path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey][]byte
	closed  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey][]byte)}
}

func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx := &memoryTx{base: s.records, pending: make(map[recordKey][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.pending {
		s.records[k] = v
	}
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(&memoryTx{base: s.records, readOnly: true})
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memoryTx struct {
	base     map[recordKey][]byte
	pending  map[recordKey][]byte
	readOnly bool
}

func (tx *memoryTx) lookup(k recordKey) ([]byte, bool) {
	if v, ok := tx.pending[k]; ok {
		return v, true
	}
	v, ok := tx.base[k]
	return v, ok
}

func (tx *memoryTx) Get(namespace, owner string, v any) (bool, error) {
	data, ok := tx.lookup(recordKey{namespace, owner})
	if !ok {
		return false, nil
	}
	if err := decode(data, v); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", namespace, owner, err)
	}
	return true, nil
}

func (tx *memoryTx) Put(namespace, owner string, v any) error {
	if tx.readOnly {
		return fmt.Errorf("put %s/%s: read-only transaction", namespace, owner)
	}
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", namespace, owner, err)
	}
	tx.pending[recordKey{namespace, owner}] = data
	return nil
}

func (tx *memoryTx) Exists(namespace, owner string) (bool, error) {
	_, ok := tx.lookup(recordKey{namespace, owner})
	return ok, nil
}
