package dynamodb

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"github.com/persistkit/persistkit/kvstore"
)

// fakeClient backs the DynamoDB API with an in-process table.
type fakeClient struct {
	items map[string][]byte

	consistency []bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: map[string][]byte{}}
}

func (f *fakeClient) keyFrom(attrs map[string]types.AttributeValue) string {
	return attrs[keyAttr].(*types.AttributeValueMemberS).Value
}

func (f *fakeClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if params.ConsistentRead != nil {
		f.consistency = append(f.consistency, *params.ConsistentRead)
	}

	value, ok := f.items[f.keyFrom(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{
		Item: map[string]types.AttributeValue{
			keyAttr:   params.Key[keyAttr],
			valueAttr: &types.AttributeValueMemberB{Value: value},
		},
	}, nil
}

func (f *fakeClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	key := f.keyFrom(params.Item)
	prev, existed := f.items[key]
	f.items[key] = params.Item[valueAttr].(*types.AttributeValueMemberB).Value

	out := &dynamodb.PutItemOutput{}
	if existed && params.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = map[string]types.AttributeValue{
			keyAttr:   params.Item[keyAttr],
			valueAttr: &types.AttributeValueMemberB{Value: prev},
		}
	}
	return out, nil
}

func (f *fakeClient) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	key := f.keyFrom(params.Key)
	prev, existed := f.items[key]
	delete(f.items, key)

	out := &dynamodb.DeleteItemOutput{}
	if existed && params.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = map[string]types.AttributeValue{
			keyAttr:   params.Key[keyAttr],
			valueAttr: &types.AttributeValueMemberB{Value: prev},
		}
	}
	return out, nil
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeClient(), "persistkit-test")

	// 1. Missing key
	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	ok, err := store.Has(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	// 2. Previous-value contract rides on ReturnValues=ALL_OLD
	prev, existed, err := store.Put(ctx, "k", []byte("v1"))
	require.NoError(t, err)
	require.False(t, existed)
	require.Nil(t, prev)

	prev, existed, err = store.Put(ctx, "k", []byte("v2"))
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, []byte("v1"), prev)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)

	// 3. Delete
	prev, existed, err = store.Delete(ctx, "k")
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, []byte("v2"), prev)

	_, existed, err = store.Delete(ctx, "k")
	require.NoError(t, err)
	require.False(t, existed)
}

func TestStore_ConsistentReadDefault(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()

	store := NewStore(client, "t")
	_, _ = store.Get(ctx, "k")
	require.Equal(t, []bool{true}, client.consistency)

	client = newFakeClient()
	store = NewStore(client, "t", WithConsistentRead(false))
	_, _ = store.Get(ctx, "k")
	require.Equal(t, []bool{false}, client.consistency)
}

func TestStore_RateLimit(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewStore(client, "t", WithRateLimit(1000))

	// The limiter must pass requests through, not deadlock them
	for i := 0; i < 5; i++ {
		_, _, err := store.Put(ctx, "k", []byte("v"))
		require.NoError(t, err)
	}
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}
