package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/corpsite-backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.PutItemOutput), args.Error(1)
}

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.UpdateItemOutput), args.Error(1)
}

func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.DeleteItemOutput), args.Error(1)
}

func (m *mockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.QueryOutput), args.Error(1)
}

func (m *mockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.ScanOutput), args.Error(1)
}

func inquiryItem(t *testing.T, id string, status domain.InquiryStatus) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(domain.Inquiry{
		InquiryID: id, Name: "AB", Email: "a@b.com", Subject: "s", Message: "1234567890",
		Status: status, Feed: domain.InquiryFeedKey, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return item
}

func TestInquiryRepo_Put_SetsFeedKey(t *testing.T) {
	api := new(mockAPI)
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		feed, ok := in.Item["feed"].(*types.AttributeValueMemberS)
		return ok && feed.Value == domain.InquiryFeedKey && aws.ToString(in.TableName) == "inquiries"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	repo := NewInquiryRepo(api, "inquiries")
	require.NoError(t, repo.Put(context.Background(), &domain.Inquiry{InquiryID: "01"}))
	api.AssertExpectations(t)
}

func TestInquiryRepo_List_PagesAndSlices(t *testing.T) {
	api := new(mockAPI)
	lastKey := map[string]types.AttributeValue{"inquiry_id": &types.AttributeValueMemberS{Value: "c"}}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{inquiryItem(t, "e", domain.InquiryPending), inquiryItem(t, "d", domain.InquiryPending), inquiryItem(t, "c", domain.InquiryPending)},
		LastEvaluatedKey: lastKey,
	}, nil).Once()
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{inquiryItem(t, "b", domain.InquiryPending), inquiryItem(t, "a", domain.InquiryPending)},
	}, nil).Once()

	repo := NewInquiryRepo(api, "inquiries")
	items, total, err := repo.List(context.Background(), domain.InquiryFilter{Limit: 2, Offset: 1})

	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	assert.Equal(t, "d", items[0].InquiryID)
	assert.Equal(t, "c", items[1].InquiryID)
}

func TestInquiryRepo_List_StatusFilterAndOffsetPastEnd(t *testing.T) {
	api := new(mockAPI)
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		status, ok := in.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS)
		return ok && status.Value == "resolved" && aws.ToString(in.FilterExpression) == "#s = :status" &&
			!aws.ToBool(in.ScanIndexForward)
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{inquiryItem(t, "a", domain.InquiryResolved)},
	}, nil)

	repo := NewInquiryRepo(api, "inquiries")
	items, total, err := repo.List(context.Background(), domain.InquiryFilter{Status: domain.InquiryResolved, Limit: 20, Offset: 5})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestInquiryRepo_UpdateStatus_MissingIsNotFound(t *testing.T) {
	api := new(mockAPI)
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("nope")})

	repo := NewInquiryRepo(api, "inquiries")
	_, err := repo.UpdateStatus(context.Background(), "missing", domain.InquiryResolved)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInquiryRepo_UpdateStatus_ReturnsNewRecord(t *testing.T) {
	api := new(mockAPI)
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return aws.ToString(in.ConditionExpression) == "attribute_exists(inquiry_id)" &&
			in.ReturnValues == types.ReturnValueAllNew
	})).Return(&dynamodb.UpdateItemOutput{Attributes: inquiryItem(t, "a", domain.InquiryResolved)}, nil)

	repo := NewInquiryRepo(api, "inquiries")
	inq, err := repo.UpdateStatus(context.Background(), "a", domain.InquiryResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.InquiryResolved, inq.Status)
}

func TestInquiryRepo_Delete(t *testing.T) {
	api := new(mockAPI)
	api.On("DeleteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
		return in.Key["inquiry_id"].(*types.AttributeValueMemberS).Value == "a"
	})).Return(&dynamodb.DeleteItemOutput{Attributes: inquiryItem(t, "a", domain.InquiryPending)}, nil)
	api.On("DeleteItem", mock.Anything, mock.Anything).Return(&dynamodb.DeleteItemOutput{}, nil)

	repo := NewInquiryRepo(api, "inquiries")
	old, err := repo.Delete(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", old.InquiryID)

	_, err = repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNoticeRepo_Scan_PublishedOnly(t *testing.T) {
	api := new(mockAPI)
	item, err := attributevalue.MarshalMap(domain.Notice{NoticeID: "n1", Title: "hello", Published: true})
	require.NoError(t, err)
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return aws.ToString(in.FilterExpression) == "published = :t"
	})).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	repo := NewNoticeRepo(api, "notices")
	notices, err := repo.Scan(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "hello", notices[0].Title)
}

func TestNoticeRepo_IncrementViews_MissingIsNotFound(t *testing.T) {
	api := new(mockAPI)
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return aws.ToString(in.UpdateExpression) == "ADD #v :one"
	})).Return(nil, &types.ConditionalCheckFailedException{})

	repo := NewNoticeRepo(api, "notices")
	_, err := repo.IncrementViews(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepo_Create_ExistingIsConflict(t *testing.T) {
	api := new(mockAPI)
	api.On("PutItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	repo := NewAccountRepo(api, "accounts")
	err := repo.Create(context.Background(), &domain.Account{UserID: "u1", Email: "a@b.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAccountRepo_GetByEmail_NotFound(t *testing.T) {
	api := new(mockAPI)
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.IndexName) == indexEmail
	})).Return(&dynamodb.QueryOutput{}, nil)

	repo := NewAccountRepo(api, "accounts")
	_, err := repo.GetByEmail(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepo_GetByRefreshToken_DisabledIsUnauthorized(t *testing.T) {
	api := new(mockAPI)
	item, err := attributevalue.MarshalMap(domain.Session{SessionID: "s1", UserID: "u1", Enable: false, RefreshToken: "rt"})
	require.NoError(t, err)
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	repo := NewSessionRepo(api, "sessions")
	_, err = repo.GetByRefreshToken(context.Background(), "rt")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestProfileRepo_UpdateRole(t *testing.T) {
	api := new(mockAPI)
	item, err := attributevalue.MarshalMap(domain.Profile{UserID: "u1", Role: domain.RoleAdmin})
	require.NoError(t, err)
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		for k, v := range in.ExpressionAttributeNames {
			if v == fieldRole {
				role, ok := in.ExpressionAttributeValues[":v"+k[2:]].(*types.AttributeValueMemberS)
				return ok && role.Value == domain.RoleAdmin
			}
		}
		return false
	})).Return(&dynamodb.UpdateItemOutput{Attributes: item}, nil)

	repo := NewProfileRepo(api, "profiles")
	p, err := repo.UpdateRole(context.Background(), "u1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)
}
