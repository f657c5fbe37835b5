// Package minio provides a kvstore.Store for MinIO and other S3-compatible
// object stores. Semantics match the s3 package: one object per key, with an
// extra read on Put/Delete to report the previous value.
package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/persistkit/persistkit/kvstore"
)

// Store implements kvstore.Store for MinIO.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO-backed store.
// rootPrefix is prepended to all keys (e.g. "my-app/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) objectKey(key string) string {
	return path.Join(s.prefix, key)
}

func isNotFound(err error) bool {
	errResp := minio.ToErrorResponse(err)
	return errResp.Code == "NoSuchKey" || errResp.Code == "NotFound"
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, kvstore.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put implements kvstore.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	prev, existed, err := s.previous(ctx, key)
	if err != nil {
		return nil, false, err
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.objectKey(key),
		bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	return prev, existed, nil
}

// Delete implements kvstore.Store.
func (s *Store) Delete(ctx context.Context, key string) ([]byte, bool, error) {
	prev, existed, err := s.previous(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !existed {
		return nil, false, nil
	}

	if err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(key), minio.RemoveObjectOptions{}); err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

// Has implements kvstore.Store.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.objectKey(key), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) previous(ctx context.Context, key string) ([]byte, bool, error) {
	prev, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return prev, true, nil
}
