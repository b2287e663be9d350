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

// InquiryRepo provides typed DynamoDB operations for the inquiries table.
// Ordering by creation time goes through the feed-created_at GSI, whose hash key is
// the constant domain.InquiryFeedKey.
type InquiryRepo struct {
	client    API
	tableName string
}

func NewInquiryRepo(client API, tableName string) *InquiryRepo {
	return &InquiryRepo{client: client, tableName: tableName}
}

func (r *InquiryRepo) Put(ctx context.Context, inq *domain.Inquiry) error {
	inq.Feed = domain.InquiryFeedKey
	item, err := attributevalue.MarshalMap(inq)
	if err != nil {
		return fmt.Errorf("marshal inquiry: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *InquiryRepo) Get(ctx context.Context, inquiryID string) (*domain.Inquiry, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("inquiry_id", inquiryID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("inquiry not found: %w", domain.ErrNotFound)
	}
	var inq domain.Inquiry
	if err := attributevalue.UnmarshalMap(out.Item, &inq); err != nil {
		return nil, err
	}
	return &inq, nil
}

// ListRecent returns at most limit inquiries, newest first.
func (r *InquiryRepo) ListRecent(ctx context.Context, limit int) ([]domain.Inquiry, error) {
	out, err := r.client.Query(ctx, r.feedQuery("", aws.Int32(int32(limit))))
	if err != nil {
		return nil, err
	}
	var items []domain.Inquiry
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// List returns one offset/limit page of inquiries (newest first) and the total number
// matching the filter. The admin feed is low volume, so every matching key is read
// and the page is cut in memory.
func (r *InquiryRepo) List(ctx context.Context, f domain.InquiryFilter) ([]domain.Inquiry, int, error) {
	input := r.feedQuery(f.Status, nil)
	var all []domain.Inquiry
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, 0, err
		}
		var page []domain.Inquiry
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, 0, err
		}
		all = append(all, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	total := len(all)
	if f.Offset >= total {
		return []domain.Inquiry{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < total {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], total, nil
}

func (r *InquiryRepo) feedQuery(status domain.InquiryStatus, limit *int32) *dynamodb.QueryInput {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexFeedCreatedAt),
		KeyConditionExpression: aws.String("feed = :feed"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":feed": &types.AttributeValueMemberS{Value: domain.InquiryFeedKey},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            limit,
	}
	if status != "" {
		input.FilterExpression = aws.String("#s = :status")
		input.ExpressionAttributeNames = map[string]string{"#s": fieldStatus}
		input.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: string(status)}
	}
	return input
}

// UpdateStatus sets the status of an existing inquiry and returns the stored record.
func (r *InquiryRepo) UpdateStatus(ctx context.Context, inquiryID string, status domain.InquiryStatus) (*domain.Inquiry, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldStatus:    status,
		fieldUpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("inquiry_id", inquiryID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(inquiry_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, fmt.Errorf("inquiry not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	var inq domain.Inquiry
	if err := attributevalue.UnmarshalMap(out.Attributes, &inq); err != nil {
		return nil, err
	}
	return &inq, nil
}

// Delete permanently removes an inquiry and returns the removed record.
func (r *InquiryRepo) Delete(ctx context.Context, inquiryID string) (*domain.Inquiry, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          strKey("inquiry_id", inquiryID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, err
	}
	if len(out.Attributes) == 0 {
		return nil, fmt.Errorf("inquiry not found: %w", domain.ErrNotFound)
	}
	var inq domain.Inquiry
	if err := attributevalue.UnmarshalMap(out.Attributes, &inq); err != nil {
		return nil, err
	}
	return &inq, nil
}
