package persistkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/persistkit/persistkit/kvstore"
)

func TestTreeMap_SortedInsertion(t *testing.T) {
	ctx := context.Background()
	ns := New(kvstore.NewMemoryStore())

	tm, err := NewTreeMap[int, string](ctx, ns, "tm")
	require.NoError(t, err)

	// 1. Insert out of order
	require.NoError(t, tm.Set(ctx, 5, "five"))
	require.NoError(t, tm.Set(ctx, 3, "three"))
	require.NoError(t, tm.Set(ctx, 7, "seven"))
	require.NoError(t, tm.Set(ctx, 1, "one"))

	// 2. Keys come back sorted
	keys, err := tm.Keys(ctx, 0, -1)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 5, 7}, keys)

	// 3. Min and max
	minKey, err := tm.MinKey(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, minKey)

	maxKey, err := tm.MaxKey(ctx)
	require.NoError(t, err)
	require.Equal(t, 7, maxKey)

	// 4. Point reads bypass the sorted index entirely
	got, err := tm.Get(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "three", got)

	_, err = tm.Get(ctx, 4)
	require.ErrorIs(t, err, ErrNotFound)

	// 5. Update keeps the key order unchanged
	require.NoError(t, tm.Set(ctx, 5, "FIVE"))
	keys, err = tm.Keys(ctx, 0, -1)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 5, 7}, keys)

	length, err := tm.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(4), length)
}

func TestTreeMap_FloorCeiling(t *testing.T) {
	ctx := context.Background()
	ns := New(kvstore.NewMemoryStore())

	tm, err := NewTreeMap[int, string](ctx, ns, "tm")
	require.NoError(t, err)
	for _, k := range []int{5, 3, 7, 1} {
		require.NoError(t, tm.Set(ctx, k, "v"))
	}

	// 1. Floor of a present key is the key itself
	floor, err := tm.FloorKey(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 5, floor)

	// 2. Floor of an absent key snaps down
	floor, err = tm.FloorKey(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 3, floor)

	floor, err = tm.FloorKey(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, 7, floor)

	// 3. Floor below the minimum does not exist
	_, err = tm.FloorKey(ctx, 0)
	require.ErrorIs(t, err, ErrNotFound)

	// 4. Ceiling mirrors floor
	ceil, err := tm.CeilingKey(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 5, ceil)

	ceil, err = tm.CeilingKey(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 7, ceil)

	_, err = tm.CeilingKey(ctx, 8)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTreeMap_Range(t *testing.T) {
	ctx := context.Background()
	ns := New(kvstore.NewMemoryStore())

	tm, err := NewTreeMap[int, int](ctx, ns, "tm")
	require.NoError(t, err)
	for _, k := range []int{10, 20, 30, 40, 50} {
		require.NoError(t, tm.Set(ctx, k, k))
	}

	lo, hi := 20, 40

	// 1. Half-open: lo inclusive, hi exclusive
	keys, err := tm.Range(ctx, &lo, &hi)
	require.NoError(t, err)
	require.Equal(t, []int{20, 30}, keys)

	// 2. Bounds need not be present keys
	lo, hi = 15, 45
	keys, err = tm.Range(ctx, &lo, &hi)
	require.NoError(t, err)
	require.Equal(t, []int{20, 30, 40}, keys)

	// 3. Nil bounds are unbounded
	keys, err = tm.Range(ctx, nil, &hi)
	require.NoError(t, err)
	require.Equal(t, []int{10, 20, 30, 40}, keys)

	lo = 30
	keys, err = tm.Range(ctx, &lo, nil)
	require.NoError(t, err)
	require.Equal(t, []int{30, 40, 50}, keys)

	keys, err = tm.Range(ctx, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []int{10, 20, 30, 40, 50}, keys)

	// 4. Empty interval
	lo, hi = 21, 22
	keys, err = tm.Range(ctx, &lo, &hi)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestTreeMap_Remove(t *testing.T) {
	ctx := context.Background()
	ns := New(kvstore.NewMemoryStore())

	tm, err := NewTreeMap[string, int](ctx, ns, "tm")
	require.NoError(t, err)
	require.NoError(t, tm.Set(ctx, "b", 2))
	require.NoError(t, tm.Set(ctx, "a", 1))
	require.NoError(t, tm.Set(ctx, "c", 3))

	// 1. Remove from the middle closes the gap
	prev, err := tm.Remove(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, 2, prev)

	keys, err := tm.Keys(ctx, 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, keys)

	// 2. Strict remove vs. discard
	_, err = tm.Remove(ctx, "b")
	require.ErrorIs(t, err, ErrNotFound)

	removed, err := tm.Discard(ctx, "b")
	require.NoError(t, err)
	require.False(t, removed)

	removed, err = tm.Discard(ctx, "a")
	require.NoError(t, err)
	require.True(t, removed)

	// 3. Min/max on an emptied map
	_, err = tm.Remove(ctx, "c")
	require.NoError(t, err)

	_, err = tm.MinKey(ctx)
	require.ErrorIs(t, err, ErrEmptyCollection)
	_, err = tm.MaxKey(ctx)
	require.ErrorIs(t, err, ErrEmptyCollection)
}

func TestTreeMap_Items(t *testing.T) {
	ctx := context.Background()
	ns := New(kvstore.NewMemoryStore())

	tm, err := NewTreeMap[int, string](ctx, ns, "tm")
	require.NoError(t, err)
	require.NoError(t, tm.Set(ctx, 2, "two"))
	require.NoError(t, tm.Set(ctx, 1, "one"))
	require.NoError(t, tm.Set(ctx, 3, "three"))

	entries, err := tm.Items(ctx, 0, -1)
	require.NoError(t, err)
	require.Equal(t, []Entry[int, string]{
		{Key: 1, Value: "one"},
		{Key: 2, Value: "two"},
		{Key: 3, Value: "three"},
	}, entries)

	values, err := tm.Values(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"two", "three"}, values)
}

func TestTreeMap_ClearPaginated(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	ns := New(store)

	tm, err := NewTreeMap[int, int](ctx, ns, "tm")
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.NoError(t, tm.Set(ctx, i, i))
	}

	// 1. First batch removes exactly batchSize entries
	removed, err := tm.ClearPaginated(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 5, removed)

	length, err := tm.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), length)

	// The map stays consistent between batches
	keys, err := tm.Keys(ctx, 0, -1)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, keys)

	got, err := tm.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, got)

	// 2. Second batch drains the rest and reports the shorter count
	removed, err = tm.ClearPaginated(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	empty, err := tm.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	// 3. Clearing an empty map removes nothing
	removed, err = tm.ClearPaginated(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 0, removed)

	// Only the map and keys-vector metadata survive
	require.Equal(t, 2, store.Len())
}

func TestTreeMap_Clear(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	ns := New(store)

	tm, err := NewTreeMap[string, string](ctx, ns, "tm")
	require.NoError(t, err)
	require.NoError(t, tm.Set(ctx, "x", "1"))
	require.NoError(t, tm.Set(ctx, "y", "2"))

	require.NoError(t, tm.Clear(ctx))

	length, err := tm.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), length)
	require.Equal(t, 2, store.Len())

	// Reusable after a clear
	require.NoError(t, tm.Set(ctx, "x", "3"))
	got, err := tm.Get(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "3", got)
}

func TestTreeMap_StringKeysSortLexicographically(t *testing.T) {
	ctx := context.Background()
	ns := New(kvstore.NewMemoryStore())

	tm, err := NewTreeMap[string, int](ctx, ns, "tm")
	require.NoError(t, err)
	for _, k := range []string{"pear", "apple", "plum", "banana"} {
		require.NoError(t, tm.Set(ctx, k, 0))
	}

	keys, err := tm.Keys(ctx, 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"apple", "banana", "pear", "plum"}, keys)

	floor, err := tm.FloorKey(ctx, "cherry")
	require.NoError(t, err)
	require.Equal(t, "banana", floor)
}
