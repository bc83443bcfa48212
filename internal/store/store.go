// Package store is the keyed record store backing ledgers, guards and
// governance. Records are addressed by (namespace, owner) and every Update
// commits all of its writes or none of them.
package store

import (
	"context"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

// Record namespaces.
const (
	NamespaceUserFunds  = "user-funds"
	NamespaceGuard      = "guard"
	NamespaceGovernance = "governance"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("store closed")

// Tx reads and writes records inside one atomic unit. Writes are visible to
// later reads of the same Tx.
type Tx interface {
	// Get decodes the record into v and reports whether it existed.
	Get(namespace, owner string, v any) (bool, error)
	Put(namespace, owner string, v any) error
	Exists(namespace, owner string) (bool, error)
}

// Store runs functions against the record set. Updates are serialized; a
// non-nil error from fn discards every write made through its Tx.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

func encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
