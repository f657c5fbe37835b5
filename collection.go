package persistkit

import (
	"context"
	"errors"
	"strconv"

	"github.com/persistkit/persistkit/kvstore"
)

// Collection type tags stored in metadata. Diagnostic only: no operation
// relies on them, they let tooling identify which variant owns a prefix.
const (
	TypeVector       = "v"
	TypeLookupMap    = "m"
	TypeUnorderedMap = "u"
	TypeLookupSet    = "s"
	TypeUnorderedSet = "o"
	TypeTreeMap      = "t"
)

const metadataVersion = "1.0.0"

// Metadata is the per-collection record stored at "{prefix}:meta".
//
// Length always equals the number of logically live entries as observed
// through the collection's own API. Generation supports O(1) clearing of
// non-enumerable collections: bumping it makes every prior entry
// unreachable without touching it.
type Metadata struct {
	Type       string `msgpack:"type" json:"type"`
	Length     uint64 `msgpack:"length" json:"length"`
	Version    string `msgpack:"version" json:"version"`
	Generation uint64 `msgpack:"generation" json:"generation"`
}

// collection carries the prefix-scoped state shared by every variant:
// metadata access, length accounting and key namespacing.
type collection struct {
	ns      *Namespace
	prefix  string
	metaKey string
}

// newCollection binds a prefix, initializing fresh metadata if none exists.
func newCollection(ctx context.Context, ns *Namespace, prefix, typeTag string) (collection, error) {
	if prefix == "" {
		return collection{}, ErrInvalidPrefix
	}
	c := collection{
		ns:      ns,
		prefix:  prefix,
		metaKey: prefix + ":meta",
	}

	exists, err := ns.store.Has(ctx, c.metaKey)
	if err != nil {
		return collection{}, err
	}
	if !exists {
		if err := c.putMeta(ctx, Metadata{Type: typeTag, Version: metadataVersion}); err != nil {
			return collection{}, err
		}
		ns.logger.LogInit(ctx, prefix, typeTag)
	}
	return c, nil
}

// Prefix returns the namespace string identifying this collection's storage
// region.
func (c *collection) Prefix() string { return c.prefix }

// Metadata returns the collection's metadata record.
func (c *collection) Metadata(ctx context.Context) (Metadata, error) {
	return c.meta(ctx)
}

// Len returns the number of elements in the collection.
func (c *collection) Len(ctx context.Context) (uint64, error) {
	m, err := c.meta(ctx)
	return m.Length, err
}

// IsEmpty reports whether the collection has no elements.
func (c *collection) IsEmpty(ctx context.Context) (bool, error) {
	length, err := c.Len(ctx)
	return length == 0, err
}

func (c *collection) meta(ctx context.Context) (Metadata, error) {
	data, err := c.ns.store.Get(ctx, c.metaKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return Metadata{}, inconsistent(c.prefix, "metadata record missing")
		}
		return Metadata{}, err
	}
	var m Metadata
	if err := c.ns.codec.Unmarshal(data, &m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

func (c *collection) putMeta(ctx context.Context, m Metadata) error {
	data, err := c.ns.codec.Marshal(m)
	if err != nil {
		return err
	}
	_, _, err = c.ns.store.Put(ctx, c.metaKey, data)
	return err
}

// setLength overwrites the length in metadata. Callers invoke it only after
// the underlying slot mutation succeeded, so a failure partway leaves state
// re-derivable from the written side.
func (c *collection) setLength(ctx context.Context, length uint64) error {
	m, err := c.meta(ctx)
	if err != nil {
		return err
	}
	m.Length = length
	return c.putMeta(ctx, m)
}

// bumpLength adjusts the length in metadata by delta.
func (c *collection) bumpLength(ctx context.Context, delta int64) error {
	m, err := c.meta(ctx)
	if err != nil {
		return err
	}
	m.Length = uint64(int64(m.Length) + delta)
	return c.putMeta(ctx, m)
}

// slotKey is the storage key of a decimal-indexed slot.
func (c *collection) slotKey(i uint64) string {
	return c.prefix + ":" + strconv.FormatUint(i, 10)
}

func (c *collection) marshal(v any) ([]byte, error) {
	return c.ns.codec.Marshal(v)
}

func (c *collection) unmarshal(data []byte, v any) error {
	return c.ns.codec.Unmarshal(data, v)
}
