package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/himalfrost/store-api/internal/domain"
)

// AppVersionRepo stores the iOS builds offered on the OTA install page.
type AppVersionRepo struct {
	client    API
	tableName string
}

func NewAppVersionRepo(client API, tableName string) *AppVersionRepo {
	return &AppVersionRepo{client: client, tableName: tableName}
}

func (r *AppVersionRepo) Put(ctx context.Context, v *domain.AppVersion) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal app version: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// GetLatest returns the newest enabled build. The table holds a handful of
// rows, so it is scanned in full and compared by created_at.
func (r *AppVersionRepo) GetLatest(ctx context.Context) (*domain.AppVersion, error) {
	input := &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		FilterExpression:         aws.String("#e = :t"),
		ExpressionAttributeNames: map[string]string{"#e": fieldEnable},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	}
	var latest *domain.AppVersion
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.AppVersion
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		for i := range page {
			if latest == nil || page[i].CreatedAt.After(latest.CreatedAt) {
				latest = &page[i]
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	if latest == nil {
		return nil, fmt.Errorf("no active app version: %w", domain.ErrNotFound)
	}
	return latest, nil
}
