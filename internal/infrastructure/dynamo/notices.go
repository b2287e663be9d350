package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/corpsite-backoffice/internal/domain"
)

// NoticeRepo provides typed DynamoDB operations for the notices table.
type NoticeRepo struct {
	client    API
	tableName string
}

func NewNoticeRepo(client API, tableName string) *NoticeRepo {
	return &NoticeRepo{client: client, tableName: tableName}
}

func (r *NoticeRepo) Put(ctx context.Context, n *domain.Notice) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *NoticeRepo) Get(ctx context.Context, noticeID string) (*domain.Notice, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notice_id", noticeID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notice not found: %w", domain.ErrNotFound)
	}
	var n domain.Notice
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Scan returns every notice, or only published ones when publishedOnly is set.
// Ordering is left to the caller.
func (r *NoticeRepo) Scan(ctx context.Context, publishedOnly bool) ([]domain.Notice, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
	if publishedOnly {
		input.FilterExpression = aws.String("published = :t")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		}
	}
	var notices []domain.Notice
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.Notice
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		notices = append(notices, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return notices, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// Update applies a partial update to an existing notice and returns the stored record.
func (r *NoticeRepo) Update(ctx context.Context, noticeID string, updates map[string]interface{}) (*domain.Notice, error) {
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notice_id", noticeID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(notice_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, fmt.Errorf("notice not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	var n domain.Notice
	if err := attributevalue.UnmarshalMap(out.Attributes, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// IncrementViews atomically bumps the view counter and returns the new record.
func (r *NoticeRepo) IncrementViews(ctx context.Context, noticeID string) (*domain.Notice, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notice_id", noticeID),
		UpdateExpression:          aws.String("ADD #v :one"),
		ConditionExpression:       aws.String("attribute_exists(notice_id)"),
		ExpressionAttributeNames:  map[string]string{"#v": fieldViews},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, fmt.Errorf("notice not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	var n domain.Notice
	if err := attributevalue.UnmarshalMap(out.Attributes, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// HardDelete permanently removes a notice.
func (r *NoticeRepo) HardDelete(ctx context.Context, noticeID string) error {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          strKey("notice_id", noticeID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return err
	}
	if len(out.Attributes) == 0 {
		return fmt.Errorf("notice not found: %w", domain.ErrNotFound)
	}
	return nil
}
