// Package kvstore defines the flat, byte-oriented key-value storage contract
// that persistent collections are built on, together with local, cached,
// metered and remote implementations.
//
// Keys are UTF-8 strings composed as "{prefix}:{suffix}". Values are opaque
// byte slices produced by a codec.Codec. Every operation is individually
// observable, which is what makes per-call storage accounting possible.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist.
//
// Implementations must return an error that satisfies
// `errors.Is(err, ErrNotFound)` for absent keys.
var ErrNotFound = errors.New("key not found")

// Store is a flat key-value store.
//
// Put and Delete report the previous value so callers can maintain length
// accounting without an extra existence probe. Implementations that cannot
// retrieve the previous value cheaply (object stores) may spend an extra
// read to honor the contract; they document that cost.
//
// Implementations are not required to be safe for concurrent use unless
// documented. Collection operations are single-threaded by contract.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key and reports the previous value, if any.
	Put(ctx context.Context, key string, value []byte) (prev []byte, existed bool, err error)

	// Delete removes key and reports the previous value, if any.
	// Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) (prev []byte, existed bool, err error)

	// Has reports whether key exists.
	Has(ctx context.Context, key string) (bool, error)
}
