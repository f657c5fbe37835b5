// Package s3 provides a kvstore.Store that maps every storage key to one S3
// object. Object stores have no cheap previous-value primitive, so Put and
// Delete spend one extra GetObject to honor the kvstore contract; prefer the
// DynamoDB store when that cost matters.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/persistkit/persistkit/kvstore"
)

// Client is the interface for S3 operations used by the store.
// *s3.Client satisfies it; tests supply fakes.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store implements kvstore.Store for S3.
type Store struct {
	client Client
	bucket string
	prefix string
}

// NewStore creates a new S3-backed store.
// rootPrefix is prepended to all keys (e.g. "my-app/").
func NewStore(client Client, bucket, rootPrefix string) *Store {
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
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, kvstore.ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// Put implements kvstore.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	prev, existed, err := s.previous(ctx, key)
	if err != nil {
		return nil, false, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(value),
	})
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

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

// Has implements kvstore.Store.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeletePrefix removes every object under the given key prefix, fanning out
// deletes across a bounded worker group. Intended for abandoning a
// collection's whole storage region (e.g. orphaned generations) out of band;
// it is not part of the metered Store contract.
func (s *Store) DeletePrefix(ctx context.Context, keyPrefix string) (int, error) {
	full := s.objectKey(keyPrefix)

	deleted := 0
	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(full),
			ContinuationToken: continuation,
		})
		if err != nil {
			return deleted, err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			g.Go(func() error {
				_, err := s.client.DeleteObject(gctx, &s3.DeleteObjectInput{
					Bucket: aws.String(s.bucket),
					Key:    aws.String(key),
				})
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return deleted, err
		}
		deleted += len(out.Contents)

		if out.IsTruncated == nil || !*out.IsTruncated {
			return deleted, nil
		}
		continuation = out.NextContinuationToken
	}
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
