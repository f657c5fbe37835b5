package persistkit

import (
	"cmp"
	"context"
	"errors"
	"time"

	"github.com/persistkit/persistkit/codec"
	"github.com/persistkit/persistkit/kvstore"
)

// UnorderedSet is an iterable persistent set: a values vector plus index
// entries mapping each encoded value to its position. Membership checks read
// the index entry (one store operation); removal swap-removes in O(1).
//
// Same swap-remove invariant as UnorderedMap: the moved value's index entry
// is rewritten before the removed value's entry is deleted.
type UnorderedSet[K cmp.Ordered] struct {
	collection

	vals *Vector[K]
}

// NewUnorderedSet binds an UnorderedSet to the given prefix. The tracking
// vector lives under "{prefix}:vals", index entries under
// "{prefix}:idx:{encodedValue}".
func NewUnorderedSet[K cmp.Ordered](ctx context.Context, ns *Namespace, prefix string) (*UnorderedSet[K], error) {
	c, err := newCollection(ctx, ns, prefix, TypeUnorderedSet)
	if err != nil {
		return nil, err
	}
	vals, err := NewVector[K](ctx, ns, prefix+":vals")
	if err != nil {
		return nil, err
	}
	return &UnorderedSet[K]{collection: c, vals: vals}, nil
}

func (s *UnorderedSet[K]) indexKey(value K) (string, error) {
	enc, err := codec.EncodeKey(value)
	if err != nil {
		return "", err
	}
	return s.prefix + ":idx:" + enc, nil
}

func (s *UnorderedSet[K]) position(ctx context.Context, value K) (uint64, error) {
	ik, err := s.indexKey(value)
	if err != nil {
		return 0, err
	}
	data, err := s.ns.store.Get(ctx, ik)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	var idx uint64
	if err := s.unmarshal(data, &idx); err != nil {
		return 0, err
	}
	return idx, nil
}

func (s *UnorderedSet[K]) putPosition(ctx context.Context, value K, idx uint64) error {
	ik, err := s.indexKey(value)
	if err != nil {
		return err
	}
	data, err := s.marshal(idx)
	if err != nil {
		return err
	}
	_, _, err = s.ns.store.Put(ctx, ik, data)
	return err
}

// Add inserts value and reports whether it was newly added.
func (s *UnorderedSet[K]) Add(ctx context.Context, value K) (bool, error) {
	start := time.Now()
	added, err := s.add(ctx, value)
	s.ns.metrics.RecordSet(time.Since(start), err)
	s.ns.logger.LogSet(ctx, s.prefix, value, err)
	return added, err
}

func (s *UnorderedSet[K]) add(ctx context.Context, value K) (bool, error) {
	ik, err := s.indexKey(value)
	if err != nil {
		return false, err
	}
	exists, err := s.ns.store.Has(ctx, ik)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	newIndex, err := s.vals.Len(ctx)
	if err != nil {
		return false, err
	}
	if err := s.vals.Append(ctx, value); err != nil {
		return false, err
	}
	if err := s.putPosition(ctx, value, newIndex); err != nil {
		return false, err
	}
	return true, s.bumpLength(ctx, 1)
}

// Contains reports whether value is a member. One store operation.
func (s *UnorderedSet[K]) Contains(ctx context.Context, value K) (bool, error) {
	ik, err := s.indexKey(value)
	if err != nil {
		return false, err
	}
	return s.ns.store.Has(ctx, ik)
}

// Remove deletes value, failing with ErrNotFound if it is not a member.
// O(1) store operations via swap-remove.
func (s *UnorderedSet[K]) Remove(ctx context.Context, value K) error {
	start := time.Now()
	err := s.remove(ctx, value)
	s.ns.metrics.RecordRemove(time.Since(start), err)
	s.ns.logger.LogRemove(ctx, s.prefix, value, err)
	return err
}

func (s *UnorderedSet[K]) remove(ctx context.Context, value K) error {
	idx, err := s.position(ctx, value)
	if err != nil {
		return err
	}

	length, err := s.vals.Len(ctx)
	if err != nil {
		return err
	}
	if idx >= length {
		return inconsistent(s.prefix, "index entry points at dead slot %d", idx)
	}

	last := length - 1
	var movedValue K
	moved := idx != last
	if moved {
		movedValue, err = s.vals.Get(ctx, int64(last))
		if err != nil {
			return err
		}
	}

	removed, err := s.vals.SwapRemove(ctx, int64(idx))
	if err != nil {
		return err
	}
	if removed != value {
		return inconsistent(s.prefix, "slot %d holds a different value", idx)
	}

	// Rewrite the moved value's index entry before dropping ours.
	if moved {
		if err := s.putPosition(ctx, movedValue, idx); err != nil {
			return err
		}
	}

	ik, err := s.indexKey(value)
	if err != nil {
		return err
	}
	if _, _, err := s.ns.store.Delete(ctx, ik); err != nil {
		return err
	}
	return s.bumpLength(ctx, -1)
}

// Discard deletes value if present and reports whether it was.
func (s *UnorderedSet[K]) Discard(ctx context.Context, value K) (bool, error) {
	err := s.remove(ctx, value)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Values returns the page [start, start+limit) of members by direct vector
// indexing. A negative limit means "to the end". Order is arbitrary but
// stable between mutations.
func (s *UnorderedSet[K]) Values(ctx context.Context, start uint64, limit int) ([]K, error) {
	began := time.Now()
	values, err := s.vals.items(ctx, start, limit)
	s.ns.metrics.RecordIterate(len(values), time.Since(began), err)
	return values, err
}

// Clear removes every member: index entries are deleted by enumerating the
// values vector, then the vector is cleared.
func (s *UnorderedSet[K]) Clear(ctx context.Context) error {
	start := time.Now()
	removed, err := s.clear(ctx)
	s.ns.metrics.RecordClear(removed, time.Since(start), err)
	s.ns.logger.LogClear(ctx, s.prefix, removed, err)
	return err
}

func (s *UnorderedSet[K]) clear(ctx context.Context) (int, error) {
	values, err := s.vals.items(ctx, 0, -1)
	if err != nil {
		return 0, err
	}
	for _, value := range values {
		ik, err := s.indexKey(value)
		if err != nil {
			return 0, err
		}
		if _, _, err := s.ns.store.Delete(ctx, ik); err != nil {
			return 0, err
		}
	}
	if err := s.vals.Clear(ctx); err != nil {
		return 0, err
	}
	return len(values), s.setLength(ctx, 0)
}
