package kvstore

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// CachingStore wraps a Store and adds an LRU read cache keyed by storage key.
//
// Writes and deletes pass through to the inner store and invalidate the
// cached entry, so reads after a mutation always observe the new value.
// Negative results are not cached: an absent key always costs an inner op.
type CachingStore struct {
	inner    Store
	capacity int64

	mu        sync.Mutex
	size      int64
	items     map[string]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key   string
	value []byte
}

// NewCachingStore creates a caching wrapper with the given capacity in bytes.
// capacity defaults to 1 MiB if <= 0.
func NewCachingStore(inner Store, capacity int64) *CachingStore {
	if capacity <= 0 {
		capacity = 1 << 20
	}
	return &CachingStore{
		inner:     inner,
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

// Get implements Store. Cache hits never touch the inner store.
func (s *CachingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if value, ok := s.cacheGet(key); ok {
		s.hits.Add(1)
		return value, nil
	}
	s.misses.Add(1)

	value, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cacheSet(key, value)
	return value, nil
}

// Put implements Store.
func (s *CachingStore) Put(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	prev, existed, err := s.inner.Put(ctx, key, value)
	if err != nil {
		// Unknown inner state, drop the stale entry.
		s.invalidate(key)
		return prev, existed, err
	}
	s.cacheSet(key, value)
	return prev, existed, nil
}

// Delete implements Store.
func (s *CachingStore) Delete(ctx context.Context, key string) ([]byte, bool, error) {
	s.invalidate(key)
	return s.inner.Delete(ctx, key)
}

// Has implements Store. A cached entry answers without an inner op.
func (s *CachingStore) Has(ctx context.Context, key string) (bool, error) {
	if _, ok := s.cacheGet(key); ok {
		s.hits.Add(1)
		return true, nil
	}
	return s.inner.Has(ctx, key)
}

// Stats returns cache hit and miss counts.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

func (s *CachingStore) cacheGet(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.items[key]
	if !ok {
		return nil, false
	}
	s.evictList.MoveToFront(ent)
	cached := ent.Value.(*cacheEntry).value
	copied := make([]byte, len(cached))
	copy(copied, cached)
	return copied, true
}

func (s *CachingStore) cacheSet(key string, value []byte) {
	itemSize := int64(len(value))
	if itemSize > s.capacity {
		s.invalidate(key)
		return
	}

	copied := make([]byte, len(value))
	copy(copied, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.items[key]; ok {
		s.evictList.MoveToFront(ent)
		e := ent.Value.(*cacheEntry)
		s.size += itemSize - int64(len(e.value))
		e.value = copied
	} else {
		ent := s.evictList.PushFront(&cacheEntry{key: key, value: copied})
		s.items[key] = ent
		s.size += itemSize
	}
	s.evict()
}

func (s *CachingStore) invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.items[key]; ok {
		s.size -= int64(len(ent.Value.(*cacheEntry).value))
		s.evictList.Remove(ent)
		delete(s.items, key)
	}
}

// evict removes least-recently-used entries until size fits capacity.
// Caller must hold mu.
func (s *CachingStore) evict() {
	for s.size > s.capacity {
		ent := s.evictList.Back()
		if ent == nil {
			return
		}
		e := ent.Value.(*cacheEntry)
		s.size -= int64(len(e.value))
		s.evictList.Remove(ent)
		delete(s.items, e.key)
	}
}
