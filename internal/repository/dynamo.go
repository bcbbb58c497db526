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
	"github.com/google/uuid"
	"github.com/yorukot/videolink/internal/models"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoVideoRepository.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoVideoRepository stores videos in a DynamoDB table whose partition key is "slug".
type DynamoVideoRepository struct {
	client    DynamoAPI
	tableName string
}

// NewDynamoVideoRepository creates a DynamoDB backed repository
func NewDynamoVideoRepository(client DynamoAPI, tableName string) *DynamoVideoRepository {
	return &DynamoVideoRepository{
		client:    client,
		tableName: tableName,
	}
}

// Insert implements VideoRepository. The put is conditional on the slug being unused.
func (r *DynamoVideoRepository) Insert(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now().UTC()
	}

	item, err := attributevalue.MarshalMap(video)
	if err != nil {
		return fmt.Errorf("failed to marshal video: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(slug)"),
	})
	if err != nil {
		var conditionErr *types.ConditionalCheckFailedException
		if errors.As(err, &conditionErr) {
			return fmt.Errorf("%w: %s", ErrDuplicateSlug, video.Slug)
		}
		return fmt.Errorf("failed to put video item: %w", err)
	}
	return nil
}

// FindBySlug implements VideoRepository.
func (r *DynamoVideoRepository) FindBySlug(ctx context.Context, slug string) (*models.Video, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"slug": &types.AttributeValueMemberS{Value: slug},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get video item: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var video models.Video
	if err := attributevalue.UnmarshalMap(out.Item, &video); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video: %w", err)
	}
	return &video, nil
}
