package kvstore

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBudgetExhausted is returned once a Metered store has spent its
// per-invocation operation budget. Callers with bounded budgets are expected
// to use paginated variants (Items, ClearPaginated) to stay under it.
var ErrBudgetExhausted = errors.New("storage operation budget exhausted")

// OpCounts is a snapshot of storage operation counters.
type OpCounts struct {
	Reads   int64
	Writes  int64
	Deletes int64
	Has     int64
}

// Total returns the total number of metered operations.
func (c OpCounts) Total() int64 {
	return c.Reads + c.Writes + c.Deletes + c.Has
}

// MeteredOption configures a Metered store.
type MeteredOption func(*Metered)

// WithOpBudget limits the total number of operations the store will serve.
// Once exceeded, every further operation fails with ErrBudgetExhausted.
// budget <= 0 means unlimited.
func WithOpBudget(budget int64) MeteredOption {
	return func(m *Metered) {
		m.budget = budget
	}
}

// Metered wraps a Store and counts every read, write, delete and existence
// check, optionally enforcing an operation budget.
//
// This is the accounting model the collection algorithms are designed
// against: the dominant cost of a collection operation is the number of
// store operations it performs, not CPU time.
type Metered struct {
	inner  Store
	budget int64

	reads   atomic.Int64
	writes  atomic.Int64
	deletes atomic.Int64
	has     atomic.Int64
	spent   atomic.Int64
}

// NewMetered creates a metering wrapper around inner.
func NewMetered(inner Store, opts ...MeteredOption) *Metered {
	m := &Metered{inner: inner}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// charge consumes one operation from the budget.
func (m *Metered) charge() error {
	spent := m.spent.Add(1)
	if m.budget > 0 && spent > m.budget {
		return ErrBudgetExhausted
	}
	return nil
}

// Get implements Store.
func (m *Metered) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.charge(); err != nil {
		return nil, err
	}
	m.reads.Add(1)
	return m.inner.Get(ctx, key)
}

// Put implements Store.
func (m *Metered) Put(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	if err := m.charge(); err != nil {
		return nil, false, err
	}
	m.writes.Add(1)
	return m.inner.Put(ctx, key, value)
}

// Delete implements Store.
func (m *Metered) Delete(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.charge(); err != nil {
		return nil, false, err
	}
	m.deletes.Add(1)
	return m.inner.Delete(ctx, key)
}

// Has implements Store.
func (m *Metered) Has(ctx context.Context, key string) (bool, error) {
	if err := m.charge(); err != nil {
		return false, err
	}
	m.has.Add(1)
	return m.inner.Has(ctx, key)
}

// Counts returns a snapshot of the operation counters.
func (m *Metered) Counts() OpCounts {
	return OpCounts{
		Reads:   m.reads.Load(),
		Writes:  m.writes.Load(),
		Deletes: m.deletes.Load(),
		Has:     m.has.Load(),
	}
}

// Reset zeroes the counters and restores the full budget. Call it at the
// start of each metered invocation.
func (m *Metered) Reset() {
	m.reads.Store(0)
	m.writes.Store(0)
	m.deletes.Store(0)
	m.has.Store(0)
	m.spent.Store(0)
}
