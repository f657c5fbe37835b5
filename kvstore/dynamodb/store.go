// Package dynamodb provides a kvstore.Store backed by a DynamoDB table.
//
// Table schema:
//   - Partition key: k (string) - the storage key
//   - Attribute: v (binary) - the stored value
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name persistkit \
//	  --attribute-definitions AttributeName=k,AttributeType=S \
//	  --key-schema AttributeName=k,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/time/rate"

	"github.com/persistkit/persistkit/kvstore"
)

// Client is the interface for DynamoDB operations used by the store.
// *dynamodb.Client satisfies it; tests supply fakes.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

const (
	keyAttr   = "k"
	valueAttr = "v"
)

// Option configures a Store.
type Option func(*Store)

// WithRateLimit throttles requests to at most rps calls per second.
// Useful against provisioned-capacity tables.
func WithRateLimit(rps float64) Option {
	return func(s *Store) {
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithConsistentRead toggles strongly consistent reads. Defaults to true:
// collections re-read state they just wrote, eventual consistency would
// break length accounting.
func WithConsistentRead(consistent bool) Option {
	return func(s *Store) {
		s.consistentRead = consistent
	}
}

// Store implements kvstore.Store for DynamoDB.
//
// Put and Delete use ReturnValues=ALL_OLD, so the previous-value contract
// costs no extra request.
type Store struct {
	client         Client
	tableName      string
	limiter        *rate.Limiter
	consistentRead bool
}

// NewStore creates a DynamoDB-backed store using the given table.
func NewStore(client Client, tableName string, opts ...Option) *Store {
	s := &Store{
		client:         client,
		tableName:      tableName,
		consistentRead: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func (s *Store) keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		keyAttr: &types.AttributeValueMemberS{Value: key},
	}
}

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.keyOf(key),
		ConsistentRead: aws.Bool(s.consistentRead),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, kvstore.ErrNotFound
	}
	return itemValue(out.Item), nil
}

// Put implements kvstore.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	if err := s.wait(ctx); err != nil {
		return nil, false, err
	}

	out, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			keyAttr:   &types.AttributeValueMemberS{Value: key},
			valueAttr: &types.AttributeValueMemberB{Value: value},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, false, err
	}
	if out.Attributes == nil {
		return nil, false, nil
	}
	return itemValue(out.Attributes), true, nil
}

// Delete implements kvstore.Store.
func (s *Store) Delete(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.wait(ctx); err != nil {
		return nil, false, err
	}

	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          s.keyOf(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, false, err
	}
	if out.Attributes == nil {
		return nil, false, nil
	}
	return itemValue(out.Attributes), true, nil
}

// Has implements kvstore.Store.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.tableName),
		Key:                  s.keyOf(key),
		ConsistentRead:       aws.Bool(s.consistentRead),
		ProjectionExpression: aws.String(keyAttr),
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

func itemValue(item map[string]types.AttributeValue) []byte {
	if attr, ok := item[valueAttr].(*types.AttributeValueMemberB); ok {
		return attr.Value
	}
	return nil
}
