package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

// DynamoAPI is the subset of the DynamoDB client used here.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore writes one item per record, keyed by id.
type DynamoStore struct {
	client DynamoAPI
	table  string
}

func NewDynamoStore(client DynamoAPI, table string) (*DynamoStore, error) {
	if table == "" {
		return nil, errors.New("dynamodb table name is required")
	}
	return &DynamoStore{client: client, table: table}, nil
}

func (s *DynamoStore) Insert(ctx context.Context, rec model.VerificationRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("failed to insert record %s: %w", rec.ID, ErrDuplicateRecord)
		}
		return fmt.Errorf("failed to put record %s: %w", rec.ID, err)
	}
	return nil
}

// List scans the table. Product and category filters are pushed down;
// date bounds and ordering are applied after the scan.
func (s *DynamoStore) List(ctx context.Context, f Filter) ([]model.VerificationRecord, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(s.table)}

	var conds []string
	values := map[string]types.AttributeValue{}
	if f.ProductID != "" {
		conds = append(conds, "productId = :pid")
		values[":pid"] = &types.AttributeValueMemberS{Value: f.ProductID}
	}
	if c := f.category(); c != "" {
		conds = append(conds, "productCategory = :cat")
		values[":cat"] = &types.AttributeValueMemberS{Value: c}
	}
	if len(conds) > 0 {
		input.FilterExpression = aws.String(strings.Join(conds, " AND "))
		input.ExpressionAttributeValues = values
	}

	var records []model.VerificationRecord
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", s.table, err)
		}
		var batch []model.VerificationRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal records: %w", err)
		}
		records = append(records, batch...)
	}
	return f.apply(records), nil
}

func (s *DynamoStore) Get(ctx context.Context, id string) (model.VerificationRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return model.VerificationRecord{}, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return model.VerificationRecord{}, fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
	}

	var rec model.VerificationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return model.VerificationRecord{}, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return rec, nil
}

func (s *DynamoStore) Close(ctx context.Context) error {
	return nil
}
