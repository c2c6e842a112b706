package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spec-kit/credential-service/internal/domain"
	apperrors "github.com/spec-kit/credential-service/pkg/util"
)

// UserIDIndex is the global secondary index on userId used by GetByID.
const UserIDIndex = "userId-index"

// DynamoDBAPI is the subset of the DynamoDB client used by the repository.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type dynamoUserRepository struct {
	client DynamoDBAPI
	table  string
	now    func() time.Time
}

// NewDynamoUserRepository returns a DynamoDB-backed implementation over a table keyed by email.
func NewDynamoUserRepository(client DynamoDBAPI, table string) UserRepository {
	return &dynamoUserRepository{client: client, table: table, now: time.Now}
}

func (r *dynamoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            emailKey(email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(fmt.Errorf("get user by email: %w", err))
	}
	if out == nil || len(out.Item) == 0 {
		return nil, ErrUserNotFound
	}
	return decodeUserItem(out.Item)
}

func (r *dynamoUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(UserIDIndex),
		KeyConditionExpression: aws.String("userId = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: id},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(fmt.Errorf("get user by id: %w", err))
	}
	if out == nil || len(out.Items) == 0 {
		return nil, ErrUserNotFound
	}
	return decodeUserItem(out.Items[0])
}

func (r *dynamoUserRepository) CreateIfAbsent(ctx context.Context, user *domain.User) error {
	item, err := encodeUserItem(user)
	if err != nil {
		return err
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrUserExists()
		}
		return apperrors.NewStoreUnavailable(fmt.Errorf("put user: %w", err))
	}
	return nil
}

func (r *dynamoUserRepository) UpdateLoginState(ctx context.Context, email string, attempts int, lockedUntil *time.Time) error {
	values, err := attributevalue.MarshalMap(map[string]any{
		":la":     attempts,
		":locked": utcPtr(lockedUntil),
		":u":      r.now().UTC(),
	})
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("encode login state: %w", err))
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       emailKey(email),
		UpdateExpression:          aws.String("SET loginAttempts = :la, lockedUntil = :locked, updatedAt = :u"),
		ConditionExpression:       aws.String("attribute_exists(email)"),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrUserNotFound
		}
		return apperrors.NewStoreUnavailable(fmt.Errorf("update login state: %w", err))
	}
	return nil
}

func emailKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"email": &types.AttributeValueMemberS{Value: email},
	}
}

// dynamoUserItem is the stored item. Timestamps are RFC 3339 strings in UTC; a missing
// name or lock is written as NULL.
type dynamoUserItem struct {
	Email         string     `dynamodbav:"email"`
	UserID        string     `dynamodbav:"userId"`
	PasswordHash  string     `dynamodbav:"passwordHash"`
	Name          *string    `dynamodbav:"name"`
	CreatedAt     time.Time  `dynamodbav:"createdAt"`
	UpdatedAt     time.Time  `dynamodbav:"updatedAt"`
	LoginAttempts int        `dynamodbav:"loginAttempts"`
	LockedUntil   *time.Time `dynamodbav:"lockedUntil"`
}

func encodeUserItem(user *domain.User) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(dynamoUserItem{
		Email:         user.Email,
		UserID:        user.ID,
		PasswordHash:  user.PasswordHash,
		Name:          user.Name,
		CreatedAt:     user.CreatedAt.UTC(),
		UpdatedAt:     user.UpdatedAt.UTC(),
		LoginAttempts: user.LoginAttempts,
		LockedUntil:   utcPtr(user.LockedUntil),
	})
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("encode user item: %w", err))
	}
	return item, nil
}

func decodeUserItem(item map[string]types.AttributeValue) (*domain.User, error) {
	var stored dynamoUserItem
	if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
		return nil, apperrors.NewStoreUnavailable(fmt.Errorf("decode user item: %w", err))
	}
	return &domain.User{
		Email:         stored.Email,
		ID:            stored.UserID,
		PasswordHash:  stored.PasswordHash,
		Name:          stored.Name,
		CreatedAt:     stored.CreatedAt.UTC(),
		UpdatedAt:     stored.UpdatedAt.UTC(),
		LoginAttempts: stored.LoginAttempts,
		LockedUntil:   utcPtr(stored.LockedUntil),
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
