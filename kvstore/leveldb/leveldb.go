// Package leveldb provides a kvstore.Store backed by a local LevelDB
// database. It is the durable single-node option: every key maps to one
// LevelDB record, so storage op accounting matches kvstore semantics one
// to one.
package leveldb

import (
	"context"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/persistkit/persistkit/kvstore"
)

// Store implements kvstore.Store on top of a LevelDB database.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) a LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open LevelDB handle.
func NewStore(db *leveldb.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements kvstore.Store.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	value, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, kvstore.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// Put implements kvstore.Store. LevelDB does not report the previous value,
// so Put spends one extra read to honor the contract.
func (s *Store) Put(_ context.Context, key string, value []byte) ([]byte, bool, error) {
	prev, existed, err := s.previous(key)
	if err != nil {
		return nil, false, err
	}
	if err := s.db.Put([]byte(key), value, nil); err != nil {
		return nil, false, err
	}
	return prev, existed, nil
}

// Delete implements kvstore.Store.
func (s *Store) Delete(_ context.Context, key string) ([]byte, bool, error) {
	prev, existed, err := s.previous(key)
	if err != nil {
		return nil, false, err
	}
	if !existed {
		return nil, false, nil
	}
	if err := s.db.Delete([]byte(key), nil); err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

// Has implements kvstore.Store.
func (s *Store) Has(_ context.Context, key string) (bool, error) {
	return s.db.Has([]byte(key), nil)
}

func (s *Store) previous(key string) ([]byte, bool, error) {
	prev, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return prev, true, nil
}
