package persistkit

import (
	"cmp"
	"context"
	"errors"
	"time"

	"github.com/persistkit/persistkit/codec"
	"github.com/persistkit/persistkit/kvstore"
)

// UnorderedMap is an iterable persistent map built from two parallel vectors
// (keys and values) plus index entries mapping each encoded key to its
// current position in both vectors.
//
// The index map is what buys O(1) removal: Remove swaps the last element
// into the vacated position and rewrites the moved key's index entry. The
// price is element order: iteration order changes after removals.
//
// Invariants: the two vectors always have equal length, and an index entry
// holds i iff the keys vector holds its key at position i. After any
// swap-remove the moved element's index entry is updated before the removed
// key's entry is deleted, so no live key ever points at a dead slot.
type UnorderedMap[K cmp.Ordered, V any] struct {
	collection

	keys *Vector[K]
	vals *Vector[V]
}

// NewUnorderedMap binds an UnorderedMap to the given prefix. The tracking
// vectors live under "{prefix}:keys" and "{prefix}:vals", index entries
// under "{prefix}:idx:{encodedKey}".
func NewUnorderedMap[K cmp.Ordered, V any](ctx context.Context, ns *Namespace, prefix string) (*UnorderedMap[K, V], error) {
	c, err := newCollection(ctx, ns, prefix, TypeUnorderedMap)
	if err != nil {
		return nil, err
	}
	keys, err := NewVector[K](ctx, ns, prefix+":keys")
	if err != nil {
		return nil, err
	}
	vals, err := NewVector[V](ctx, ns, prefix+":vals")
	if err != nil {
		return nil, err
	}
	return &UnorderedMap[K, V]{collection: c, keys: keys, vals: vals}, nil
}

func (m *UnorderedMap[K, V]) indexKey(key K) (string, error) {
	enc, err := codec.EncodeKey(key)
	if err != nil {
		return "", err
	}
	return m.prefix + ":idx:" + enc, nil
}

// position returns the vector position of key, or ErrNotFound.
func (m *UnorderedMap[K, V]) position(ctx context.Context, key K) (uint64, error) {
	ik, err := m.indexKey(key)
	if err != nil {
		return 0, err
	}
	data, err := m.ns.store.Get(ctx, ik)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	var idx uint64
	if err := m.unmarshal(data, &idx); err != nil {
		return 0, err
	}
	return idx, nil
}

func (m *UnorderedMap[K, V]) putPosition(ctx context.Context, key K, idx uint64) error {
	ik, err := m.indexKey(key)
	if err != nil {
		return err
	}
	data, err := m.marshal(idx)
	if err != nil {
		return err
	}
	_, _, err = m.ns.store.Put(ctx, ik, data)
	return err
}

// Get returns the value for key, or ErrNotFound.
func (m *UnorderedMap[K, V]) Get(ctx context.Context, key K) (V, error) {
	start := time.Now()
	value, err := m.get(ctx, key)
	m.ns.metrics.RecordGet(time.Since(start), err)
	return value, err
}

func (m *UnorderedMap[K, V]) get(ctx context.Context, key K) (V, error) {
	var zero V
	idx, err := m.position(ctx, key)
	if err != nil {
		return zero, err
	}
	value, err := m.vals.Get(ctx, int64(idx))
	if err != nil {
		// An index entry pointing past the vector is corruption, not absence.
		var oor *ErrOutOfRange
		if errors.As(err, &oor) {
			return zero, inconsistent(m.prefix, "index entry points at dead slot %d", idx)
		}
		return zero, err
	}
	return value, nil
}

// GetOr returns the value for key, or def if the key is absent.
func (m *UnorderedMap[K, V]) GetOr(ctx context.Context, key K, def V) (V, error) {
	value, err := m.get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return def, nil
		}
		return def, err
	}
	return value, nil
}

// Contains reports whether key is present. One store operation.
func (m *UnorderedMap[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	ik, err := m.indexKey(key)
	if err != nil {
		return false, err
	}
	return m.ns.store.Has(ctx, ik)
}

// Set inserts or updates key. Updates overwrite the value slot in place
// (O(1)); inserts append to both vectors and record the new index.
func (m *UnorderedMap[K, V]) Set(ctx context.Context, key K, value V) error {
	start := time.Now()
	err := m.set(ctx, key, value)
	m.ns.metrics.RecordSet(time.Since(start), err)
	m.ns.logger.LogSet(ctx, m.prefix, key, err)
	return err
}

func (m *UnorderedMap[K, V]) set(ctx context.Context, key K, value V) error {
	idx, err := m.position(ctx, key)
	if err == nil {
		return m.vals.Set(ctx, int64(idx), value)
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	newIndex, err := m.keys.Len(ctx)
	if err != nil {
		return err
	}
	if err := m.keys.Append(ctx, key); err != nil {
		return err
	}
	if err := m.vals.Append(ctx, value); err != nil {
		return err
	}
	if err := m.putPosition(ctx, key, newIndex); err != nil {
		return err
	}
	return m.bumpLength(ctx, 1)
}

// Remove deletes key and returns its previous value, or ErrNotFound.
// O(1) store operations regardless of position, via swap-remove.
func (m *UnorderedMap[K, V]) Remove(ctx context.Context, key K) (V, error) {
	start := time.Now()
	value, err := m.remove(ctx, key)
	m.ns.metrics.RecordRemove(time.Since(start), err)
	m.ns.logger.LogRemove(ctx, m.prefix, key, err)
	return value, err
}

func (m *UnorderedMap[K, V]) remove(ctx context.Context, key K) (V, error) {
	var zero V
	idx, err := m.position(ctx, key)
	if err != nil {
		return zero, err
	}

	length, err := m.keys.Len(ctx)
	if err != nil {
		return zero, err
	}
	if idx >= length {
		return zero, inconsistent(m.prefix, "index entry points at dead slot %d", idx)
	}

	// Defensive: the slot must actually hold this key.
	keyAt, err := m.keys.Get(ctx, int64(idx))
	if err != nil {
		return zero, err
	}
	if keyAt != key {
		return zero, inconsistent(m.prefix, "slot %d holds a different key", idx)
	}

	last := length - 1
	var movedKey K
	moved := idx != last
	if moved {
		movedKey, err = m.keys.Get(ctx, int64(last))
		if err != nil {
			return zero, err
		}
	}

	if _, err := m.keys.SwapRemove(ctx, int64(idx)); err != nil {
		return zero, err
	}
	value, err := m.vals.SwapRemove(ctx, int64(idx))
	if err != nil {
		return zero, err
	}

	// The moved key's index entry must be rewritten before the removed
	// key's entry is deleted, or a lookup of the moved key would resolve to
	// a dead slot.
	if moved {
		if err := m.putPosition(ctx, movedKey, idx); err != nil {
			return zero, err
		}
	}

	ik, err := m.indexKey(key)
	if err != nil {
		return zero, err
	}
	if _, _, err := m.ns.store.Delete(ctx, ik); err != nil {
		return zero, err
	}
	if err := m.bumpLength(ctx, -1); err != nil {
		return zero, err
	}
	return value, nil
}

// Discard deletes key if present and reports whether it was.
func (m *UnorderedMap[K, V]) Discard(ctx context.Context, key K) (bool, error) {
	_, err := m.remove(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Items returns the page [start, start+limit) of key-value pairs by direct
// vector indexing, with cost proportional to the page size, never the map.
// A negative limit means "to the end". Order is arbitrary but stable between
// mutations.
func (m *UnorderedMap[K, V]) Items(ctx context.Context, start uint64, limit int) ([]Entry[K, V], error) {
	began := time.Now()
	entries, err := m.itemsPage(ctx, start, limit)
	m.ns.metrics.RecordIterate(len(entries), time.Since(began), err)
	return entries, err
}

func (m *UnorderedMap[K, V]) itemsPage(ctx context.Context, start uint64, limit int) ([]Entry[K, V], error) {
	keys, err := m.keys.items(ctx, start, limit)
	if err != nil {
		return nil, err
	}
	vals, err := m.vals.items(ctx, start, limit)
	if err != nil {
		return nil, err
	}
	if len(keys) != len(vals) {
		return nil, inconsistent(m.prefix, "tracking vectors out of sync (%d keys, %d values)", len(keys), len(vals))
	}

	entries := make([]Entry[K, V], len(keys))
	for i := range keys {
		entries[i] = Entry[K, V]{Key: keys[i], Value: vals[i]}
	}
	return entries, nil
}

// Keys returns the page [start, start+limit) of keys.
func (m *UnorderedMap[K, V]) Keys(ctx context.Context, start uint64, limit int) ([]K, error) {
	return m.keys.Items(ctx, start, limit)
}

// Values returns the page [start, start+limit) of values.
func (m *UnorderedMap[K, V]) Values(ctx context.Context, start uint64, limit int) ([]V, error) {
	return m.vals.Items(ctx, start, limit)
}

// Clear removes every entry: index entries are deleted by enumerating the
// keys vector, then both vectors are cleared. Cost is proportional to the
// length.
func (m *UnorderedMap[K, V]) Clear(ctx context.Context) error {
	start := time.Now()
	removed, err := m.clear(ctx)
	m.ns.metrics.RecordClear(removed, time.Since(start), err)
	m.ns.logger.LogClear(ctx, m.prefix, removed, err)
	return err
}

func (m *UnorderedMap[K, V]) clear(ctx context.Context) (int, error) {
	keys, err := m.keys.items(ctx, 0, -1)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		ik, err := m.indexKey(key)
		if err != nil {
			return 0, err
		}
		if _, _, err := m.ns.store.Delete(ctx, ik); err != nil {
			return 0, err
		}
	}
	if err := m.keys.Clear(ctx); err != nil {
		return 0, err
	}
	if err := m.vals.Clear(ctx); err != nil {
		return 0, err
	}
	return len(keys), m.setLength(ctx, 0)
}
