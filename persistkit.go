package persistkit

import (
	"github.com/persistkit/persistkit/codec"
	"github.com/persistkit/persistkit/kvstore"
)

// Namespace bundles the storage handle, value codec, logger and metrics
// shared by a group of collections. Passing the store explicitly (instead of
// reaching for a global) is what allows several independent or test-mocked
// stores to coexist in one process.
type Namespace struct {
	store   kvstore.Store
	codec   codec.Codec
	logger  *Logger
	metrics MetricsCollector
}

// New creates a Namespace over the given store.
func New(store kvstore.Store, opts ...Option) *Namespace {
	ns := &Namespace{
		store:   store,
		codec:   codec.Default,
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(ns)
	}
	return ns
}

// Store returns the underlying key-value store.
func (ns *Namespace) Store() kvstore.Store { return ns.store }

// Codec returns the value codec.
func (ns *Namespace) Codec() codec.Codec { return ns.codec }

// SubPrefix composes a nested collection prefix from a base prefix.
// Use it to derive per-entity collection prefixes:
//
//	accounts, _ := persistkit.NewUnorderedMap[string, Account](ctx, ns, "accounts")
//	tokens, _ := persistkit.NewVector[string](ctx, ns, persistkit.SubPrefix("accounts", accountID))
func SubPrefix(base, sub string) string {
	return base + ":" + sub
}

// Entry is a key-value pair returned by map enumerations.
type Entry[K, V any] struct {
	Key   K
	Value V
}
