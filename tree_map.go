package persistkit

import (
	"cmp"
	"context"
	"errors"
	"time"

	"github.com/persistkit/persistkit/codec"
	"github.com/persistkit/persistkit/kvstore"
)

// TreeMap is an ordered persistent map: a keys vector kept strictly
// ascending at all times, plus direct value storage at
// "{prefix}:{encodedKey}". Binary search over the keys vector locates keys
// in O(log n) store reads and doubles as the floor/ceiling primitive.
//
// The array-backed design trades insert/delete cost (O(n) shifts) for
// simple ordered storage; it suits small-to-moderate maps. Very large
// ordered maps would want a balanced tree keyed directly in the store, with
// the same floor/ceiling/range/pagination contract.
type TreeMap[K cmp.Ordered, V any] struct {
	collection

	keys *Vector[K]
}

// NewTreeMap binds a TreeMap to the given prefix. The sorted keys vector
// lives under "{prefix}:keys".
func NewTreeMap[K cmp.Ordered, V any](ctx context.Context, ns *Namespace, prefix string) (*TreeMap[K, V], error) {
	c, err := newCollection(ctx, ns, prefix, TypeTreeMap)
	if err != nil {
		return nil, err
	}
	keys, err := NewVector[K](ctx, ns, prefix+":keys")
	if err != nil {
		return nil, err
	}
	return &TreeMap[K, V]{collection: c, keys: keys}, nil
}

func (t *TreeMap[K, V]) valueKey(key K) (string, error) {
	enc, err := codec.EncodeKey(key)
	if err != nil {
		return "", err
	}
	return t.prefix + ":" + enc, nil
}

// findIndex binary-searches the keys vector. It returns the position of key
// if present, else the insertion point: the first position whose key is
// >= key, which is exactly the ceiling position.
func (t *TreeMap[K, V]) findIndex(ctx context.Context, key K) (idx uint64, found bool, err error) {
	length, err := t.keys.Len(ctx)
	if err != nil {
		return 0, false, err
	}

	lo, hi := uint64(0), length
	for lo < hi {
		mid := lo + (hi-lo)/2
		at, err := t.keys.Get(ctx, int64(mid))
		if err != nil {
			return 0, false, err
		}
		switch c := cmp.Compare(at, key); {
		case c == 0:
			return mid, true, nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false, nil
}

// Get returns the value for key, or ErrNotFound. One store read: the value
// slot is direct-addressed, the keys vector is not consulted.
func (t *TreeMap[K, V]) Get(ctx context.Context, key K) (V, error) {
	start := time.Now()
	value, err := t.get(ctx, key)
	t.ns.metrics.RecordGet(time.Since(start), err)
	return value, err
}

func (t *TreeMap[K, V]) get(ctx context.Context, key K) (V, error) {
	var zero V
	vk, err := t.valueKey(key)
	if err != nil {
		return zero, err
	}
	data, err := t.ns.store.Get(ctx, vk)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	if err := t.unmarshal(data, &zero); err != nil {
		return zero, err
	}
	return zero, nil
}

// GetOr returns the value for key, or def if the key is absent.
func (t *TreeMap[K, V]) GetOr(ctx context.Context, key K, def V) (V, error) {
	value, err := t.get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return def, nil
		}
		return def, err
	}
	return value, nil
}

// Contains reports whether key is present. One store operation.
func (t *TreeMap[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	vk, err := t.valueKey(key)
	if err != nil {
		return false, err
	}
	return t.ns.store.Has(ctx, vk)
}

// Set inserts or updates key. Updates overwrite the value slot (O(1) plus
// nothing); inserts additionally splice the key into the sorted keys vector,
// shifting everything at and after the insertion point one slot right
// (O(n−p) store writes).
func (t *TreeMap[K, V]) Set(ctx context.Context, key K, value V) error {
	start := time.Now()
	err := t.set(ctx, key, value)
	t.ns.metrics.RecordSet(time.Since(start), err)
	t.ns.logger.LogSet(ctx, t.prefix, key, err)
	return err
}

func (t *TreeMap[K, V]) set(ctx context.Context, key K, value V) error {
	vk, err := t.valueKey(key)
	if err != nil {
		return err
	}
	data, err := t.marshal(value)
	if err != nil {
		return err
	}
	_, existed, err := t.ns.store.Put(ctx, vk, data)
	if err != nil {
		return err
	}
	if existed {
		return nil
	}

	pos, _, err := t.findIndex(ctx, key)
	if err != nil {
		return err
	}
	if err := t.insertKeyAt(ctx, pos, key); err != nil {
		return err
	}
	return t.bumpLength(ctx, 1)
}

// insertKeyAt splices key into the sorted vector at position pos.
func (t *TreeMap[K, V]) insertKeyAt(ctx context.Context, pos uint64, key K) error {
	length, err := t.keys.Len(ctx)
	if err != nil {
		return err
	}
	if pos == length {
		return t.keys.Append(ctx, key)
	}

	// Grow by one with a copy of the current last element, then shift the
	// raw stored bytes right down to the insertion point.
	last, err := t.keys.Get(ctx, int64(length-1))
	if err != nil {
		return err
	}
	if err := t.keys.Append(ctx, last); err != nil {
		return err
	}
	for i := length - 1; i > pos; i-- {
		if err := t.keys.copyRaw(ctx, i-1, i); err != nil {
			return err
		}
	}
	return t.keys.Set(ctx, int64(pos), key)
}

// Remove deletes key and returns its previous value, or ErrNotFound. Closes
// the gap in the keys vector by shifting left (O(n−p) store writes).
func (t *TreeMap[K, V]) Remove(ctx context.Context, key K) (V, error) {
	start := time.Now()
	value, err := t.remove(ctx, key)
	t.ns.metrics.RecordRemove(time.Since(start), err)
	t.ns.logger.LogRemove(ctx, t.prefix, key, err)
	return value, err
}

func (t *TreeMap[K, V]) remove(ctx context.Context, key K) (V, error) {
	var zero V
	vk, err := t.valueKey(key)
	if err != nil {
		return zero, err
	}
	prev, existed, err := t.ns.store.Delete(ctx, vk)
	if err != nil {
		return zero, err
	}
	if !existed {
		return zero, ErrNotFound
	}
	if err := t.unmarshal(prev, &zero); err != nil {
		return zero, err
	}

	pos, found, err := t.findIndex(ctx, key)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, inconsistent(t.prefix, "value slot existed but key is untracked")
	}
	if _, err := t.keys.Pop(ctx, int64(pos)); err != nil {
		return zero, err
	}
	if err := t.bumpLength(ctx, -1); err != nil {
		return zero, err
	}
	return zero, nil
}

// Discard deletes key if present and reports whether it was.
func (t *TreeMap[K, V]) Discard(ctx context.Context, key K) (bool, error) {
	_, err := t.remove(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MinKey returns the smallest key, or ErrEmptyCollection.
func (t *TreeMap[K, V]) MinKey(ctx context.Context) (K, error) {
	var zero K
	length, err := t.keys.Len(ctx)
	if err != nil {
		return zero, err
	}
	if length == 0 {
		return zero, ErrEmptyCollection
	}
	return t.keys.Get(ctx, 0)
}

// MaxKey returns the largest key, or ErrEmptyCollection.
func (t *TreeMap[K, V]) MaxKey(ctx context.Context) (K, error) {
	var zero K
	length, err := t.keys.Len(ctx)
	if err != nil {
		return zero, err
	}
	if length == 0 {
		return zero, ErrEmptyCollection
	}
	return t.keys.Get(ctx, int64(length-1))
}

// FloorKey returns the greatest key <= key, or ErrNotFound if every key is
// greater.
func (t *TreeMap[K, V]) FloorKey(ctx context.Context, key K) (K, error) {
	var zero K
	pos, found, err := t.findIndex(ctx, key)
	if err != nil {
		return zero, err
	}
	if found {
		return key, nil
	}
	if pos == 0 {
		return zero, ErrNotFound
	}
	return t.keys.Get(ctx, int64(pos-1))
}

// CeilingKey returns the least key >= key, or ErrNotFound if every key is
// smaller.
func (t *TreeMap[K, V]) CeilingKey(ctx context.Context, key K) (K, error) {
	var zero K
	pos, found, err := t.findIndex(ctx, key)
	if err != nil {
		return zero, err
	}
	if found {
		return key, nil
	}
	length, err := t.keys.Len(ctx)
	if err != nil {
		return zero, err
	}
	if pos >= length {
		return zero, ErrNotFound
	}
	return t.keys.Get(ctx, int64(pos))
}

// Range returns the keys in the half-open interval [lo, hi), ascending.
// A nil bound means unbounded on that side. The scan starts at lo's
// insertion point and exits as soon as hi is reached, so cost tracks the
// result size; combine with Keys pagination for very large ranges.
func (t *TreeMap[K, V]) Range(ctx context.Context, lo, hi *K) ([]K, error) {
	began := time.Now()
	keys, err := t.keysRange(ctx, lo, hi)
	t.ns.metrics.RecordIterate(len(keys), time.Since(began), err)
	return keys, err
}

func (t *TreeMap[K, V]) keysRange(ctx context.Context, lo, hi *K) ([]K, error) {
	length, err := t.keys.Len(ctx)
	if err != nil {
		return nil, err
	}

	start := uint64(0)
	if lo != nil {
		start, _, err = t.findIndex(ctx, *lo)
		if err != nil {
			return nil, err
		}
	}

	keys := []K{}
	for i := start; i < length; i++ {
		key, err := t.keys.Get(ctx, int64(i))
		if err != nil {
			return nil, err
		}
		if hi != nil && cmp.Compare(key, *hi) >= 0 {
			break
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Keys returns the page [start, start+limit) of keys in ascending order.
// A negative limit means "to the end".
func (t *TreeMap[K, V]) Keys(ctx context.Context, start uint64, limit int) ([]K, error) {
	return t.keys.Items(ctx, start, limit)
}

// Items returns the page [start, start+limit) of entries in ascending key
// order.
func (t *TreeMap[K, V]) Items(ctx context.Context, start uint64, limit int) ([]Entry[K, V], error) {
	began := time.Now()
	entries, err := t.itemsPage(ctx, start, limit)
	t.ns.metrics.RecordIterate(len(entries), time.Since(began), err)
	return entries, err
}

func (t *TreeMap[K, V]) itemsPage(ctx context.Context, start uint64, limit int) ([]Entry[K, V], error) {
	keys, err := t.keys.items(ctx, start, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry[K, V], 0, len(keys))
	for _, key := range keys {
		value, err := t.get(ctx, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, inconsistent(t.prefix, "tracked key has no value slot")
			}
			return nil, err
		}
		entries = append(entries, Entry[K, V]{Key: key, Value: value})
	}
	return entries, nil
}

// Values returns the page [start, start+limit) of values in ascending key
// order.
func (t *TreeMap[K, V]) Values(ctx context.Context, start uint64, limit int) ([]V, error) {
	entries, err := t.Items(ctx, start, limit)
	if err != nil {
		return nil, err
	}
	values := make([]V, len(entries))
	for i, e := range entries {
		values[i] = e.Value
	}
	return values, nil
}

// Clear removes every entry in one call. Cost is proportional to the
// length; usable only for small maps. Callers with a bounded per-call
// budget must use ClearPaginated.
func (t *TreeMap[K, V]) Clear(ctx context.Context) error {
	start := time.Now()
	removed, err := t.clearAll(ctx)
	t.ns.metrics.RecordClear(removed, time.Since(start), err)
	t.ns.logger.LogClear(ctx, t.prefix, removed, err)
	return err
}

func (t *TreeMap[K, V]) clearAll(ctx context.Context) (int, error) {
	keys, err := t.keys.items(ctx, 0, -1)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		vk, err := t.valueKey(key)
		if err != nil {
			return 0, err
		}
		if _, _, err := t.ns.store.Delete(ctx, vk); err != nil {
			return 0, err
		}
	}
	if err := t.keys.Clear(ctx); err != nil {
		return 0, err
	}
	return len(keys), t.setLength(ctx, 0)
}

// ClearPaginated removes up to batchSize entries and returns the count
// removed. Entries come off the tail of the keys vector, so each removal is
// O(1) store operations and a caller with a bounded per-call budget can
// clear an arbitrarily large map across invocations. The map is internally
// consistent between calls; it is the caller's job not to treat a
// half-cleared map as complete.
func (t *TreeMap[K, V]) ClearPaginated(ctx context.Context, batchSize int) (int, error) {
	start := time.Now()
	removed, err := t.clearPaginated(ctx, batchSize)
	t.ns.metrics.RecordClear(removed, time.Since(start), err)
	t.ns.logger.LogClear(ctx, t.prefix, removed, err)
	return removed, err
}

func (t *TreeMap[K, V]) clearPaginated(ctx context.Context, batchSize int) (int, error) {
	removed := 0
	for removed < batchSize {
		length, err := t.keys.Len(ctx)
		if err != nil {
			return removed, err
		}
		if length == 0 {
			break
		}

		key, err := t.keys.Get(ctx, int64(length-1))
		if err != nil {
			return removed, err
		}
		vk, err := t.valueKey(key)
		if err != nil {
			return removed, err
		}
		if _, _, err := t.ns.store.Delete(ctx, vk); err != nil {
			return removed, err
		}
		// Popping the last element never shifts.
		if _, err := t.keys.Pop(ctx, -1); err != nil {
			return removed, err
		}
		if err := t.bumpLength(ctx, -1); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
