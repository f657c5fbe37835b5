// Package persistkit provides persistent collection types (Vector,
// LookupMap, LookupSet, UnorderedMap, UnorderedSet and TreeMap) built on a
// flat, byte-oriented key-value store in which every read, write and delete
// is individually metered.
//
// Collections never materialize in memory: each operation touches a bounded
// number of storage slots, and the algorithms (swap-remove, direct index
// lookup, bounded pagination, batched clearing) exist to keep that bound
// small. Execution is single-threaded and run-to-completion by contract;
// collections perform no locking of their own.
//
// A Namespace bundles the store, value codec, logger and metrics for a group
// of collections:
//
//	ns := persistkit.New(kvstore.NewMemoryStore())
//	v, err := persistkit.NewVector[string](ctx, ns, "events")
//	err = v.Append(ctx, "hello")
//
// Stores live in the kvstore package (memory, leveldb, dynamodb, s3, minio,
// plus caching and metering wrappers); value encodings in the codec package.
package persistkit
