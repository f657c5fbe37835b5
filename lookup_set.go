package persistkit

import (
	"cmp"
	"context"
	"strconv"
	"time"

	"github.com/persistkit/persistkit/codec"
)

// LookupSet is a direct-addressed, non-iterable persistent set. Membership
// is the presence of the member's storage slot; Add/Contains/Remove cost one
// or two store operations regardless of size.
//
// Like LookupMap it cannot enumerate its members, so Clear uses the same
// O(1) generation bump and orphans prior entries.
type LookupSet[K cmp.Ordered] struct {
	collection

	gen uint64
}

// NewLookupSet binds a LookupSet to the given prefix.
func NewLookupSet[K cmp.Ordered](ctx context.Context, ns *Namespace, prefix string) (*LookupSet[K], error) {
	c, err := newCollection(ctx, ns, prefix, TypeLookupSet)
	if err != nil {
		return nil, err
	}
	m, err := c.meta(ctx)
	if err != nil {
		return nil, err
	}
	return &LookupSet[K]{collection: c, gen: m.Generation}, nil
}

func (s *LookupSet[K]) storageKey(value K) (string, error) {
	enc, err := codec.EncodeKey(value)
	if err != nil {
		return "", err
	}
	return s.prefix + ":" + strconv.FormatUint(s.gen, 10) + ":" + enc, nil
}

// Add inserts value and reports whether it was newly added.
func (s *LookupSet[K]) Add(ctx context.Context, value K) (bool, error) {
	start := time.Now()
	added, err := s.add(ctx, value)
	s.ns.metrics.RecordSet(time.Since(start), err)
	s.ns.logger.LogSet(ctx, s.prefix, value, err)
	return added, err
}

func (s *LookupSet[K]) add(ctx context.Context, value K) (bool, error) {
	sk, err := s.storageKey(value)
	if err != nil {
		return false, err
	}
	marker, err := s.marshal(true)
	if err != nil {
		return false, err
	}
	_, existed, err := s.ns.store.Put(ctx, sk, marker)
	if err != nil {
		return false, err
	}
	if existed {
		return false, nil
	}
	return true, s.bumpLength(ctx, 1)
}

// Contains reports whether value is a member. Exactly one store operation.
func (s *LookupSet[K]) Contains(ctx context.Context, value K) (bool, error) {
	sk, err := s.storageKey(value)
	if err != nil {
		return false, err
	}
	return s.ns.store.Has(ctx, sk)
}

// Remove deletes value, failing with ErrNotFound if it is not a member.
func (s *LookupSet[K]) Remove(ctx context.Context, value K) error {
	start := time.Now()
	err := s.remove(ctx, value)
	s.ns.metrics.RecordRemove(time.Since(start), err)
	s.ns.logger.LogRemove(ctx, s.prefix, value, err)
	return err
}

func (s *LookupSet[K]) remove(ctx context.Context, value K) error {
	sk, err := s.storageKey(value)
	if err != nil {
		return err
	}
	_, existed, err := s.ns.store.Delete(ctx, sk)
	if err != nil {
		return err
	}
	if !existed {
		return ErrNotFound
	}
	return s.bumpLength(ctx, -1)
}

// Discard deletes value if present and reports whether it was.
func (s *LookupSet[K]) Discard(ctx context.Context, value K) (bool, error) {
	sk, err := s.storageKey(value)
	if err != nil {
		return false, err
	}
	_, existed, err := s.ns.store.Delete(ctx, sk)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	return true, s.bumpLength(ctx, -1)
}

// Clear resets the set in O(1) by bumping the generation; see LookupMap.Clear.
func (s *LookupSet[K]) Clear(ctx context.Context) error {
	start := time.Now()
	meta, err := s.meta(ctx)
	removed := int(meta.Length)
	if err == nil {
		meta.Generation++
		meta.Length = 0
		err = s.putMeta(ctx, meta)
		if err == nil {
			s.gen = meta.Generation
		}
	}
	s.ns.metrics.RecordClear(removed, time.Since(start), err)
	s.ns.logger.LogClear(ctx, s.prefix, removed, err)
	return err
}
