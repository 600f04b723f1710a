// Package ddbcatalog implements catalog.Catalog on DynamoDB, using
// conditional writes for the atomic compare-and-swap semantics that object
// storage lacks. This enables multiple index writers to safely coordinate
// without data loss.
//
// Table schema:
//   - Partition key: index_key (string) - the table/column/partition triple
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name hindex-catalog \
//	  --attribute-definitions AttributeName=index_key,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=index_key,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package ddbcatalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/hindex/catalog"
)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ catalog.Catalog = (*Catalog)(nil)

// Catalog implements catalog.Catalog backed by a DynamoDB table.
type Catalog struct {
	client    DDBClient
	tableName string
}

// New creates a DynamoDB-backed catalog.
func New(client DDBClient, tableName string) *Catalog {
	return &Catalog{
		client:    client,
		tableName: tableName,
	}
}

// Commit records e under the next version using a conditional write.
// A racing writer that claims the same version fails with
// catalog.ErrConcurrentModification.
func (c *Catalog) Commit(ctx context.Context, e catalog.Entry) (catalog.Entry, error) {
	latest, ok, err := c.latest(ctx, e.Key())
	if err != nil {
		return catalog.Entry{}, err
	}
	e.Version = 1
	if ok {
		e.Version = latest.Version + 1
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"index_key":         &types.AttributeValueMemberS{Value: e.Key()},
			"version":           &types.AttributeValueMemberN{Value: strconv.FormatUint(e.Version, 10)},
			"table_name":        &types.AttributeValueMemberS{Value: e.Table},
			"column_name":       &types.AttributeValueMemberS{Value: e.Column},
			"partition_name":    &types.AttributeValueMemberS{Value: e.Partition},
			"path":              &types.AttributeValueMemberS{Value: e.Path},
			"max_last_modified": &types.AttributeValueMemberN{Value: strconv.FormatInt(e.MaxLastModified, 10)},
		},
		// Fail if another writer already claimed this version.
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return catalog.Entry{}, catalog.ErrConcurrentModification
		}
		return catalog.Entry{}, fmt.Errorf("failed to commit to DynamoDB: %w", err)
	}
	return e, nil
}

// Current returns the latest committed entry for the triple, if any.
func (c *Catalog) Current(ctx context.Context, table, column, partition string) (catalog.Entry, bool, error) {
	return c.latest(ctx, catalog.Key(table, column, partition))
}

// latest queries DynamoDB for the highest committed version of key.
func (c *Catalog) latest(ctx context.Context, key string) (catalog.Entry, bool, error) {
	resp, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("index_key = :key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: key},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return catalog.Entry{}, false, fmt.Errorf("failed to query DynamoDB: %w", err)
	}
	if len(resp.Items) == 0 {
		return catalog.Entry{}, false, nil
	}

	item := resp.Items[0]
	e := catalog.Entry{
		Table:     stringAttr(item, "table_name"),
		Column:    stringAttr(item, "column_name"),
		Partition: stringAttr(item, "partition_name"),
		Path:      stringAttr(item, "path"),
	}
	version, err := numberAttr(item, "version")
	if err != nil {
		return catalog.Entry{}, false, err
	}
	e.Version = uint64(version)
	if e.MaxLastModified, err = numberAttr(item, "max_last_modified"); err != nil {
		return catalog.Entry{}, false, err
	}
	return e, true, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if attr, ok := item[name].(*types.AttributeValueMemberS); ok {
		return attr.Value
	}
	return ""
}

func numberAttr(item map[string]types.AttributeValue, name string) (int64, error) {
	attr, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid %s attribute in DynamoDB", name)
	}
	return strconv.ParseInt(attr.Value, 10, 64)
}
