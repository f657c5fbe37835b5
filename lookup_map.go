package persistkit

import (
	"cmp"
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/persistkit/persistkit/codec"
	"github.com/persistkit/persistkit/kvstore"
)

// LookupMap is a direct-addressed, non-iterable persistent map. Every
// Get/Set/Remove/Contains computes a storage key from the encoded lookup key
// and delegates straight to the store, so cost is independent of size.
//
// No enumeration is exposed: that bookkeeping (and its storage cost) is what
// UnorderedMap pays for. Consequently Clear cannot delete member slots;
// instead it bumps a generation counter embedded in every storage key, which
// makes all prior entries permanently unreachable in O(1). The orphaned
// entries keep occupying storage, an explicit space/time trade-off.
type LookupMap[K cmp.Ordered, V any] struct {
	collection

	// gen caches the metadata generation. Execution is single-threaded and
	// one collection instance owns its prefix, so the cache cannot go stale.
	gen uint64
}

// NewLookupMap binds a LookupMap to the given prefix.
func NewLookupMap[K cmp.Ordered, V any](ctx context.Context, ns *Namespace, prefix string) (*LookupMap[K, V], error) {
	c, err := newCollection(ctx, ns, prefix, TypeLookupMap)
	if err != nil {
		return nil, err
	}
	m, err := c.meta(ctx)
	if err != nil {
		return nil, err
	}
	return &LookupMap[K, V]{collection: c, gen: m.Generation}, nil
}

// storageKey is "{prefix}:{generation}:{encodedKey}".
func (m *LookupMap[K, V]) storageKey(key K) (string, error) {
	enc, err := codec.EncodeKey(key)
	if err != nil {
		return "", err
	}
	return m.prefix + ":" + strconv.FormatUint(m.gen, 10) + ":" + enc, nil
}

// Get returns the value for key, or ErrNotFound. Exactly one store
// operation.
func (m *LookupMap[K, V]) Get(ctx context.Context, key K) (V, error) {
	start := time.Now()
	value, err := m.get(ctx, key)
	m.ns.metrics.RecordGet(time.Since(start), err)
	return value, err
}

func (m *LookupMap[K, V]) get(ctx context.Context, key K) (V, error) {
	var zero V
	sk, err := m.storageKey(key)
	if err != nil {
		return zero, err
	}
	data, err := m.ns.store.Get(ctx, sk)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	if err := m.unmarshal(data, &zero); err != nil {
		return zero, err
	}
	return zero, nil
}

// GetOr returns the value for key, or def if the key is absent.
func (m *LookupMap[K, V]) GetOr(ctx context.Context, key K, def V) (V, error) {
	value, err := m.get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return def, nil
		}
		return def, err
	}
	return value, nil
}

// Contains reports whether key is present. Exactly one store operation.
func (m *LookupMap[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	sk, err := m.storageKey(key)
	if err != nil {
		return false, err
	}
	return m.ns.store.Has(ctx, sk)
}

// Set stores value under key, inserting or overwriting.
func (m *LookupMap[K, V]) Set(ctx context.Context, key K, value V) error {
	start := time.Now()
	err := m.set(ctx, key, value)
	m.ns.metrics.RecordSet(time.Since(start), err)
	m.ns.logger.LogSet(ctx, m.prefix, key, err)
	return err
}

func (m *LookupMap[K, V]) set(ctx context.Context, key K, value V) error {
	sk, err := m.storageKey(key)
	if err != nil {
		return err
	}
	data, err := m.marshal(value)
	if err != nil {
		return err
	}
	_, existed, err := m.ns.store.Put(ctx, sk, data)
	if err != nil {
		return err
	}
	if !existed {
		return m.bumpLength(ctx, 1)
	}
	return nil
}

// Remove deletes key and returns its previous value, or ErrNotFound.
func (m *LookupMap[K, V]) Remove(ctx context.Context, key K) (V, error) {
	start := time.Now()
	value, err := m.remove(ctx, key)
	m.ns.metrics.RecordRemove(time.Since(start), err)
	m.ns.logger.LogRemove(ctx, m.prefix, key, err)
	return value, err
}

func (m *LookupMap[K, V]) remove(ctx context.Context, key K) (V, error) {
	var zero V
	sk, err := m.storageKey(key)
	if err != nil {
		return zero, err
	}
	prev, existed, err := m.ns.store.Delete(ctx, sk)
	if err != nil {
		return zero, err
	}
	if !existed {
		return zero, ErrNotFound
	}
	if err := m.unmarshal(prev, &zero); err != nil {
		return zero, err
	}
	if err := m.bumpLength(ctx, -1); err != nil {
		return zero, err
	}
	return zero, nil
}

// Discard deletes key if present and reports whether it was. Absence is a
// no-op, never an error.
func (m *LookupMap[K, V]) Discard(ctx context.Context, key K) (bool, error) {
	sk, err := m.storageKey(key)
	if err != nil {
		return false, err
	}
	_, existed, err := m.ns.store.Delete(ctx, sk)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	return true, m.bumpLength(ctx, -1)
}

// Clear resets the map in O(1) by bumping the generation and zeroing the
// length. Entries of prior generations become unreachable garbage; reclaim
// them out of band if the backing store supports prefix deletion.
func (m *LookupMap[K, V]) Clear(ctx context.Context) error {
	start := time.Now()
	meta, err := m.meta(ctx)
	removed := int(meta.Length)
	if err == nil {
		meta.Generation++
		meta.Length = 0
		err = m.putMeta(ctx, meta)
		if err == nil {
			m.gen = meta.Generation
		}
	}
	m.ns.metrics.RecordClear(removed, time.Since(start), err)
	m.ns.logger.LogClear(ctx, m.prefix, removed, err)
	return err
}
