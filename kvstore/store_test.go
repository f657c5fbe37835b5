package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// 1. Missing key
	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := store.Has(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	// 2. First put has no previous value
	prev, existed, err := store.Put(ctx, "k", []byte("v1"))
	require.NoError(t, err)
	require.False(t, existed)
	require.Nil(t, prev)

	// 3. Second put returns the old value
	prev, existed, err = store.Put(ctx, "k", []byte("v2"))
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, []byte("v1"), prev)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)

	// 4. Delete returns the removed value
	prev, existed, err = store.Delete(ctx, "k")
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, []byte("v2"), prev)

	// 5. Deleting again reports absence without an error
	_, existed, err = store.Delete(ctx, "k")
	require.NoError(t, err)
	require.False(t, existed)
}

func TestMemoryStore_DefensiveCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	value := []byte("original")
	_, _, err := store.Put(ctx, "k", value)
	require.NoError(t, err)

	// Mutating the caller's slice must not leak into the store
	value[0] = 'X'
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got)

	// Mutating a returned slice must not corrupt the stored value
	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("original"), again)
}

func TestMemoryStore_EmptyValueIsPresent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, _, err := store.Put(ctx, "k", []byte{})
	require.NoError(t, err)

	ok, err := store.Has(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, k := range []string{"a:1", "a:2", "b:1"} {
		_, _, err := store.Put(ctx, k, []byte("x"))
		require.NoError(t, err)
	}

	keys := store.List("a:")
	require.ElementsMatch(t, []string{"a:1", "a:2"}, keys)
	require.Equal(t, 3, store.Len())
}

func TestMetered_Counts(t *testing.T) {
	ctx := context.Background()
	m := NewMetered(NewMemoryStore())

	_, _, err := m.Put(ctx, "k", []byte("v"))
	require.NoError(t, err)
	_, err = m.Get(ctx, "k")
	require.NoError(t, err)
	_, err = m.Has(ctx, "k")
	require.NoError(t, err)
	_, _, err = m.Delete(ctx, "k")
	require.NoError(t, err)

	counts := m.Counts()
	require.Equal(t, int64(1), counts.Reads)
	require.Equal(t, int64(1), counts.Writes)
	require.Equal(t, int64(1), counts.Deletes)
	require.Equal(t, int64(1), counts.Has)
	require.Equal(t, int64(4), counts.Total())

	m.Reset()
	require.Equal(t, int64(0), m.Counts().Total())
}

func TestMetered_Budget(t *testing.T) {
	ctx := context.Background()
	m := NewMetered(NewMemoryStore(), WithOpBudget(3))

	// Ops within the budget succeed; failed ops are still counted against it
	for i := 0; i < 3; i++ {
		_, _, err := m.Put(ctx, "k", []byte("v"))
		require.NoError(t, err)
	}

	_, err := m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrBudgetExhausted)
	_, err = m.Has(ctx, "k")
	require.ErrorIs(t, err, ErrBudgetExhausted)

	// Reset restores the full budget
	m.Reset()
	_, err = m.Get(ctx, "k")
	require.NoError(t, err)
}

func TestCachingStore_HitsAndMisses(t *testing.T) {
	ctx := context.Background()
	inner := NewMetered(NewMemoryStore())
	cached := NewCachingStore(inner, 1<<16)

	_, _, err := cached.Put(ctx, "k", []byte("v"))
	require.NoError(t, err)
	inner.Reset()

	// 1. The put populated the cache, so reads never reach the inner store
	for i := 0; i < 5; i++ {
		got, err := cached.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte("v"), got)
	}
	require.Equal(t, int64(0), inner.Counts().Reads)

	hits, misses := cached.Stats()
	require.Equal(t, int64(5), hits)
	require.Equal(t, int64(0), misses)

	// 2. An uncached key costs one inner read, then hits
	_, _, err = inner.Put(ctx, "k2", []byte("v2"))
	require.NoError(t, err)

	_, err = cached.Get(ctx, "k2")
	require.NoError(t, err)
	_, err = cached.Get(ctx, "k2")
	require.NoError(t, err)
	require.Equal(t, int64(1), inner.Counts().Reads)
}

func TestCachingStore_DeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	cached := NewCachingStore(NewMemoryStore(), 1<<16)

	_, _, err := cached.Put(ctx, "k", []byte("v"))
	require.NoError(t, err)

	_, existed, err := cached.Delete(ctx, "k")
	require.NoError(t, err)
	require.True(t, existed)

	_, err = cached.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := cached.Has(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCachingStore_Eviction(t *testing.T) {
	ctx := context.Background()
	inner := NewMetered(NewMemoryStore())
	cached := NewCachingStore(inner, 32)

	// Each value is 16 bytes, capacity holds two
	v := make([]byte, 16)
	for _, k := range []string{"a", "b", "c"} {
		_, _, err := cached.Put(ctx, k, v)
		require.NoError(t, err)
	}
	inner.Reset()

	// "a" was evicted, "b" and "c" still hit
	_, err := cached.Get(ctx, "c")
	require.NoError(t, err)
	_, err = cached.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, int64(0), inner.Counts().Reads)

	_, err = cached.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(1), inner.Counts().Reads)
}

func TestCachingStore_WriteInvisibleStaleness(t *testing.T) {
	ctx := context.Background()
	cached := NewCachingStore(NewMemoryStore(), 1<<16)

	_, _, err := cached.Put(ctx, "k", []byte("old"))
	require.NoError(t, err)
	_, _, err = cached.Put(ctx, "k", []byte("new"))
	require.NoError(t, err)

	got, err := cached.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), got)
}
