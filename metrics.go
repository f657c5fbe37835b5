package persistkit

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus. Storage-level op counts live one layer down, in
// kvstore.Metered; this interface observes whole collection operations.
type MetricsCollector interface {
	// RecordGet is called after each lookup operation.
	RecordGet(duration time.Duration, err error)

	// RecordSet is called after each insert-or-update operation.
	RecordSet(duration time.Duration, err error)

	// RecordRemove is called after each removal operation.
	RecordRemove(duration time.Duration, err error)

	// RecordIterate is called after each enumeration/pagination operation.
	// n is the number of elements returned.
	RecordIterate(n int, duration time.Duration, err error)

	// RecordClear is called after each clear operation.
	// removed is the number of entries removed.
	RecordClear(removed int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGet(time.Duration, error)          {}
func (NoopMetricsCollector) RecordSet(time.Duration, error)          {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)       {}
func (NoopMetricsCollector) RecordIterate(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordClear(int, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	GetCount      atomic.Int64
	GetErrors     atomic.Int64
	GetTotalNanos atomic.Int64
	SetCount      atomic.Int64
	SetErrors     atomic.Int64
	SetTotalNanos atomic.Int64
	RemoveCount   atomic.Int64
	RemoveErrors  atomic.Int64
	IterateCount  atomic.Int64
	IterateItems  atomic.Int64
	ClearCount    atomic.Int64
	ClearRemoved  atomic.Int64
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(duration time.Duration, err error) {
	b.GetCount.Add(1)
	b.GetTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GetErrors.Add(1)
	}
}

// RecordSet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSet(duration time.Duration, err error) {
	b.SetCount.Add(1)
	b.SetTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SetErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordIterate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIterate(n int, duration time.Duration, err error) {
	b.IterateCount.Add(1)
	b.IterateItems.Add(int64(n))
}

// RecordClear implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClear(removed int, duration time.Duration, err error) {
	b.ClearCount.Add(1)
	b.ClearRemoved.Add(int64(removed))
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector counters.
type BasicMetricsStats struct {
	GetCount     int64
	GetErrors    int64
	GetAvgNanos  int64
	SetCount     int64
	SetErrors    int64
	SetAvgNanos  int64
	RemoveCount  int64
	RemoveErrors int64
	IterateCount int64
	IterateItems int64
	ClearCount   int64
	ClearRemoved int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		GetCount:     b.GetCount.Load(),
		GetErrors:    b.GetErrors.Load(),
		SetCount:     b.SetCount.Load(),
		SetErrors:    b.SetErrors.Load(),
		RemoveCount:  b.RemoveCount.Load(),
		RemoveErrors: b.RemoveErrors.Load(),
		IterateCount: b.IterateCount.Load(),
		IterateItems: b.IterateItems.Load(),
		ClearCount:   b.ClearCount.Load(),
		ClearRemoved: b.ClearRemoved.Load(),
	}
	if s.GetCount > 0 {
		s.GetAvgNanos = b.GetTotalNanos.Load() / s.GetCount
	}
	if s.SetCount > 0 {
		s.SetAvgNanos = b.SetTotalNanos.Load() / s.SetCount
	}
	return s
}
