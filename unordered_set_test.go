package persistkit

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/persistkit/persistkit/kvstore"
)

func TestUnorderedSet_Lifecycle(t *testing.T) {
	ctx := context.Background()
	ns := New(kvstore.NewMemoryStore())

	s, err := NewUnorderedSet[string](ctx, ns, "us")
	require.NoError(t, err)

	// 1. Adds with duplicate detection
	added, err := s.Add(ctx, "apple")
	require.NoError(t, err)
	require.True(t, added)

	added, err = s.Add(ctx, "banana")
	require.NoError(t, err)
	require.True(t, added)

	added, err = s.Add(ctx, "apple")
	require.NoError(t, err)
	require.False(t, added)

	length, err := s.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), length)

	// 2. Iteration returns each member once
	values, err := s.Values(ctx, 0, -1)
	require.NoError(t, err)
	sort.Strings(values)
	require.Equal(t, []string{"apple", "banana"}, values)

	// 3. Strict remove vs. discard
	require.NoError(t, s.Remove(ctx, "apple"))
	require.ErrorIs(t, s.Remove(ctx, "apple"), ErrNotFound)

	removed, err := s.Discard(ctx, "banana")
	require.NoError(t, err)
	require.True(t, removed)

	empty, err := s.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
}

func TestUnorderedSet_SwapRemoveKeepsSetIntact(t *testing.T) {
	ctx := context.Background()
	ns := New(kvstore.NewMemoryStore())

	s, err := NewUnorderedSet[int](ctx, ns, "us")
	require.NoError(t, err)

	const n = 100
	for i := 0; i < n; i++ {
		_, err := s.Add(ctx, i)
		require.NoError(t, err)
	}

	// Remove from the middle, then verify every other member survived
	require.NoError(t, s.Remove(ctx, 50))

	for i := 0; i < n; i++ {
		ok, err := s.Contains(ctx, i)
		require.NoError(t, err)
		require.Equal(t, i != 50, ok, "member %d", i)
	}

	values, err := s.Values(ctx, 0, -1)
	require.NoError(t, err)
	require.Len(t, values, n-1)
}

func TestUnorderedSet_Clear(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	ns := New(store)

	s, err := NewUnorderedSet[string](ctx, ns, "us")
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := s.Add(ctx, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	require.NoError(t, s.Clear(ctx))

	length, err := s.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), length)

	// Only the set's and the backing vector's metadata remain
	require.Equal(t, 2, store.Len())

	added, err := s.Add(ctx, "m0")
	require.NoError(t, err)
	require.True(t, added)
}
