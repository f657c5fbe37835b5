package persistkit

import (
	"context"
	"errors"
	"time"

	"github.com/persistkit/persistkit/kvstore"
)

// Vector is a dense, 0-based, index-addressed persistent sequence. Elements
// live at "{prefix}:{i}" for i in [0, length); indices are contiguous and
// length is authoritative.
//
// Append and SwapRemove cost O(1) store operations; Pop costs O(n−i) because
// it preserves order by shifting. Callers that care about storage op counts
// over element order must use SwapRemove.
type Vector[V any] struct {
	collection
}

// NewVector binds a Vector to the given prefix, initializing it fresh
// (length 0) if the prefix has no metadata yet.
func NewVector[V any](ctx context.Context, ns *Namespace, prefix string) (*Vector[V], error) {
	c, err := newCollection(ctx, ns, prefix, TypeVector)
	if err != nil {
		return nil, err
	}
	return &Vector[V]{collection: c}, nil
}

// normalize converts a possibly-negative index (Python-style: -1 is the last
// element) into an absolute position, or fails with ErrOutOfRange.
func (v *Vector[V]) normalize(index int64, length uint64) (uint64, error) {
	i := index
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || uint64(i) >= length {
		return 0, &ErrOutOfRange{Index: index, Length: length}
	}
	return uint64(i), nil
}

// Get returns the element at index. Negative indices count from the end.
// Indices outside [0, length) after normalization fail with ErrOutOfRange.
func (v *Vector[V]) Get(ctx context.Context, index int64) (V, error) {
	var zero V
	length, err := v.Len(ctx)
	if err != nil {
		return zero, err
	}
	i, err := v.normalize(index, length)
	if err != nil {
		return zero, err
	}
	return v.read(ctx, i)
}

// GetOr returns the element at index, or def if the index is out of bounds.
func (v *Vector[V]) GetOr(ctx context.Context, index int64, def V) (V, error) {
	value, err := v.Get(ctx, index)
	if err != nil {
		var oor *ErrOutOfRange
		if errors.As(err, &oor) {
			return def, nil
		}
		return def, err
	}
	return value, nil
}

// Set overwrites the element at index. Bounds are checked the same way as
// Get; Set never grows the vector.
func (v *Vector[V]) Set(ctx context.Context, index int64, value V) error {
	length, err := v.Len(ctx)
	if err != nil {
		return err
	}
	i, err := v.normalize(index, length)
	if err != nil {
		return err
	}
	return v.write(ctx, i, value)
}

// Append adds an element at the end. One slot write plus the length update.
func (v *Vector[V]) Append(ctx context.Context, value V) error {
	start := time.Now()
	err := v.append(ctx, value)
	v.ns.metrics.RecordSet(time.Since(start), err)
	return err
}

func (v *Vector[V]) append(ctx context.Context, value V) error {
	length, err := v.Len(ctx)
	if err != nil {
		return err
	}
	if err := v.write(ctx, length, value); err != nil {
		return err
	}
	return v.setLength(ctx, length+1)
}

// Extend appends every item, updating length once at the end.
func (v *Vector[V]) Extend(ctx context.Context, items []V) error {
	if len(items) == 0 {
		return nil
	}
	length, err := v.Len(ctx)
	if err != nil {
		return err
	}
	for j, item := range items {
		if err := v.write(ctx, length+uint64(j), item); err != nil {
			return err
		}
	}
	return v.setLength(ctx, length+uint64(len(items)))
}

// Pop removes and returns the element at index (default the last: pass -1),
// shifting every subsequent element one slot left to preserve order. Costs
// O(n−i) store writes; use SwapRemove when order does not matter.
func (v *Vector[V]) Pop(ctx context.Context, index int64) (V, error) {
	start := time.Now()
	value, err := v.pop(ctx, index)
	v.ns.metrics.RecordRemove(time.Since(start), err)
	return value, err
}

func (v *Vector[V]) pop(ctx context.Context, index int64) (V, error) {
	var zero V
	length, err := v.Len(ctx)
	if err != nil {
		return zero, err
	}
	if length == 0 {
		return zero, ErrEmptyCollection
	}
	i, err := v.normalize(index, length)
	if err != nil {
		return zero, err
	}

	value, err := v.read(ctx, i)
	if err != nil {
		return zero, err
	}

	// Shift raw stored bytes left; no decode needed.
	for j := i; j+1 < length; j++ {
		if err := v.copyRaw(ctx, j+1, j); err != nil {
			return zero, err
		}
	}

	if _, _, err := v.ns.store.Delete(ctx, v.slotKey(length-1)); err != nil {
		return zero, err
	}
	if err := v.setLength(ctx, length-1); err != nil {
		return zero, err
	}
	return value, nil
}

// SwapRemove removes and returns the element at index by overwriting it with
// the last element and dropping the last slot. O(1) store operations at the
// cost of reordering.
func (v *Vector[V]) SwapRemove(ctx context.Context, index int64) (V, error) {
	start := time.Now()
	value, err := v.swapRemove(ctx, index)
	v.ns.metrics.RecordRemove(time.Since(start), err)
	return value, err
}

func (v *Vector[V]) swapRemove(ctx context.Context, index int64) (V, error) {
	var zero V
	length, err := v.Len(ctx)
	if err != nil {
		return zero, err
	}
	if length == 0 {
		return zero, ErrEmptyCollection
	}
	i, err := v.normalize(index, length)
	if err != nil {
		return zero, err
	}

	value, err := v.read(ctx, i)
	if err != nil {
		return zero, err
	}

	if i < length-1 {
		if err := v.copyRaw(ctx, length-1, i); err != nil {
			return zero, err
		}
	}

	if _, _, err := v.ns.store.Delete(ctx, v.slotKey(length-1)); err != nil {
		return zero, err
	}
	if err := v.setLength(ctx, length-1); err != nil {
		return zero, err
	}
	return value, nil
}

// Items returns the page [start, start+limit) of the vector. start values at
// or beyond the length yield an empty page; a negative limit means "to the
// end". Cost is proportional to the page size, not the vector.
func (v *Vector[V]) Items(ctx context.Context, start uint64, limit int) ([]V, error) {
	began := time.Now()
	items, err := v.items(ctx, start, limit)
	v.ns.metrics.RecordIterate(len(items), time.Since(began), err)
	return items, err
}

func (v *Vector[V]) items(ctx context.Context, start uint64, limit int) ([]V, error) {
	length, err := v.Len(ctx)
	if err != nil {
		return nil, err
	}
	if start >= length {
		return []V{}, nil
	}
	end := length
	if limit >= 0 && start+uint64(limit) < length {
		end = start + uint64(limit)
	}

	items := make([]V, 0, end-start)
	for i := start; i < end; i++ {
		value, err := v.read(ctx, i)
		if err != nil {
			return nil, err
		}
		items = append(items, value)
	}
	return items, nil
}

// Clear deletes every slot and resets length to 0. Cost is proportional to
// the length; fine for vectors, which are enumerable by construction.
func (v *Vector[V]) Clear(ctx context.Context) error {
	start := time.Now()
	length, err := v.Len(ctx)
	if err == nil {
		err = v.clear(ctx, length)
	}
	v.ns.metrics.RecordClear(int(length), time.Since(start), err)
	v.ns.logger.LogClear(ctx, v.prefix, int(length), err)
	return err
}

func (v *Vector[V]) clear(ctx context.Context, length uint64) error {
	for i := uint64(0); i < length; i++ {
		if _, _, err := v.ns.store.Delete(ctx, v.slotKey(i)); err != nil {
			return err
		}
	}
	return v.setLength(ctx, 0)
}

// read decodes the element at absolute position i. A missing slot inside
// [0, length) is corruption, not absence.
func (v *Vector[V]) read(ctx context.Context, i uint64) (V, error) {
	var out V
	data, err := v.ns.store.Get(ctx, v.slotKey(i))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return out, inconsistent(v.prefix, "slot %d missing inside live range", i)
		}
		return out, err
	}
	if err := v.unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (v *Vector[V]) write(ctx context.Context, i uint64, value V) error {
	data, err := v.marshal(value)
	if err != nil {
		return err
	}
	_, _, err = v.ns.store.Put(ctx, v.slotKey(i), data)
	return err
}

// copyRaw copies the stored bytes from slot src to slot dst without
// decoding.
func (v *Vector[V]) copyRaw(ctx context.Context, src, dst uint64) error {
	data, err := v.ns.store.Get(ctx, v.slotKey(src))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return inconsistent(v.prefix, "slot %d missing inside live range", src)
		}
		return err
	}
	_, _, err = v.ns.store.Put(ctx, v.slotKey(dst), data)
	return err
}
