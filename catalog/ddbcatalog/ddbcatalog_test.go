package ddbcatalog

import (
	"context"
	"sort"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/hindex/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDDB emulates the subset of DynamoDB semantics the catalog relies on:
// items keyed by (index_key, version) and conditional puts.
type fakeDDB struct {
	items map[string][]map[string]types.AttributeValue // index_key -> items
}

func newFakeDDB() *fakeDDB {
	return &fakeDDB{items: make(map[string][]map[string]types.AttributeValue)}
}

func itemVersion(item map[string]types.AttributeValue) uint64 {
	n := item["version"].(*types.AttributeValueMemberN)
	v, _ := strconv.ParseUint(n.Value, 10, 64)
	return v
}

func (f *fakeDDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	key := params.Item["index_key"].(*types.AttributeValueMemberS).Value
	version := itemVersion(params.Item)
	for _, existing := range f.items[key] {
		if itemVersion(existing) == version {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.items[key] = append(f.items[key], params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	key := params.ExpressionAttributeValues[":key"].(*types.AttributeValueMemberS).Value
	items := append([]map[string]types.AttributeValue(nil), f.items[key]...)
	sort.Slice(items, func(i, j int) bool {
		return itemVersion(items[i]) > itemVersion(items[j])
	})
	if params.Limit != nil && len(items) > int(*params.Limit) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func TestCommitAssignsVersions(t *testing.T) {
	ctx := context.Background()
	cat := New(newFakeDDB(), "hindex-catalog")

	e := catalog.Entry{
		Table:           "sales",
		Column:          "fruit",
		Partition:       "pt=2020",
		Path:            "indexes/sales/fruit/pt=2020/index.btree",
		MaxLastModified: 1000,
	}

	first, err := cat.Commit(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Version)

	e.MaxLastModified = 2500
	second, err := cat.Commit(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Version)

	got, ok, err := cat.Current(ctx, "sales", "fruit", "pt=2020")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func TestCurrentMissing(t *testing.T) {
	cat := New(newFakeDDB(), "hindex-catalog")

	_, ok, err := cat.Current(context.Background(), "sales", "fruit", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitDetectsRace(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDDB()
	_ = New(ddb, "hindex-catalog")

	e := catalog.Entry{Table: "sales", Column: "fruit", Path: "a"}

	// A racing writer claims version 1 between the read and the write.
	_, err := ddb.PutItem(ctx, &dynamodb.PutItemInput{
		Item: map[string]types.AttributeValue{
			"index_key": &types.AttributeValueMemberS{Value: e.Key()},
			"version":   &types.AttributeValueMemberN{Value: "1"},
		},
	})
	require.NoError(t, err)

	racedCat := New(&racingDDB{fakeDDB: ddb}, "hindex-catalog")
	_, err = racedCat.Commit(ctx, e)
	assert.ErrorIs(t, err, catalog.ErrConcurrentModification)
}

// racingDDB hides existing items from Query so the commit reads an empty
// state and then collides on the conditional put.
type racingDDB struct {
	*fakeDDB
}

func (r *racingDDB) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}
