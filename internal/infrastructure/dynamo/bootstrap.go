package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/himalfrost/store-api/internal/config"
)

// TableAdmin is the part of *dynamodb.Client that Bootstrap needs.
type TableAdmin interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist.
// Tables that already exist are left alone.
func Bootstrap(ctx context.Context, client TableAdmin, tables config.DynamoTables) {
	createTable(ctx, client, hashTable(tables.Users, fieldUserID))
	createTable(ctx, client, hashTable(tables.Identities, fieldIdentity))

	sessions := hashTable(tables.Sessions, fieldSessionID, fieldUserID)
	sessions.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{
		gsi(indexSessionsUser, fieldUserID, ""),
	}
	createTable(ctx, client, sessions)
	enableTTL(ctx, client, tables.Sessions, "expires_at")

	createTable(ctx, client, hashTable(tables.PhoneVerifications, fieldPhone))
	enableTTL(ctx, client, tables.PhoneVerifications, "expires_at")

	createTable(ctx, client, hashTable(tables.Products, fieldProductID))

	orders := hashTable(tables.Orders, fieldOrderID, fieldUserID, "customer_email", fieldCreatedAt)
	orders.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{
		gsi(indexOrdersByUser, fieldUserID, fieldCreatedAt),
		gsi(indexOrdersByEmail, "customer_email", fieldCreatedAt),
	}
	createTable(ctx, client, orders)

	createTable(ctx, client, hashTable(tables.AppVersions, fieldVersionID))
}

// hashTable describes an on-demand table keyed by hashKey. extra lists the
// other string attributes that GSIs will key on.
func hashTable(name, hashKey string, extra ...string) *dynamodb.CreateTableInput {
	defs := []types.AttributeDefinition{
		{AttributeName: aws.String(hashKey), AttributeType: types.ScalarAttributeTypeS},
	}
	for _, attr := range extra {
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(attr), AttributeType: types.ScalarAttributeTypeS,
		})
	}
	return &dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: defs,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
		},
	}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client TableAdmin, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			slog.Warn("could not create table", "table", *input.TableName, "err", err)
		}
		return
	}
	slog.Info("created table", "table", *input.TableName)
}

func enableTTL(ctx context.Context, client TableAdmin, tableName, ttlAttr string) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		slog.Warn("could not enable TTL", "table", tableName, "err", err)
	}
}
