package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/himalfrost/store-api/internal/domain"
)

// OrderRepo is the order ledger. Orders are written once and afterwards only
// their status and updated_at change.
type OrderRepo struct {
	client    API
	tableName string
}

func NewOrderRepo(client API, tableName string) *OrderRepo {
	return &OrderRepo{client: client, tableName: tableName}
}

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(order_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("order %s already exists: %w", o.OrderID, domain.ErrConflict)
	}
	return err
}

func (r *OrderRepo) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldOrderID, orderID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("order not found: %w", domain.ErrNotFound)
	}
	var o domain.Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.queryIndex(ctx, indexOrdersByUser, fieldUserID, userID)
}

// ListByEmail returns orders whose customer snapshot carries email, newest first.
func (r *OrderRepo) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return r.queryIndex(ctx, indexOrdersByEmail, "customer_email", strings.ToLower(email))
}

// List scans every order, optionally restricted to one status, newest first.
func (r *OrderRepo) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
	if status != "" {
		input.FilterExpression = aws.String("#s = :s")
		input.ExpressionAttributeNames = map[string]string{"#s": fieldStatus}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(status)},
		}
	}
	orders := []domain.Order{}
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.Order
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		orders = append(orders, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

// UpdateStatus sets the order's status. When from is non-empty the write only
// happens if the current status is one of from; otherwise the stored order is
// left unchanged and ErrInvalidTransition is returned.
func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID string, to domain.OrderStatus, from ...domain.OrderStatus) (*domain.Order, error) {
	values := map[string]types.AttributeValue{
		":to":  &types.AttributeValueMemberS{Value: string(to)},
		":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
	}
	cond := "attribute_exists(order_id)"
	if len(from) > 0 {
		placeholders := make([]string, len(from))
		for i, s := range from {
			ph := fmt.Sprintf(":from%d", i)
			placeholders[i] = ph
			values[ph] = &types.AttributeValueMemberS{Value: string(s)}
		}
		cond += " AND #s IN (" + strings.Join(placeholders, ", ") + ")"
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey(fieldOrderID, orderID),
		UpdateExpression:                    aws.String("SET #s = :to, #u = :now"),
		ConditionExpression:                 aws.String(cond),
		ExpressionAttributeNames:            map[string]string{"#s": fieldStatus, "#u": fieldUpdatedAt},
		ExpressionAttributeValues:           values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		return nil, r.statusUpdateError(err, orderID)
	}
	var o domain.Order
	if err := attributevalue.UnmarshalMap(out.Attributes, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// statusUpdateError tells a missing order apart from one in the wrong state
// using the item DynamoDB returns with the failed condition.
func (r *OrderRepo) statusUpdateError(err error, orderID string) error {
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return err
	}
	if len(ccf.Item) == 0 {
		return fmt.Errorf("order not found: %w", domain.ErrNotFound)
	}
	current := ""
	if s, ok := ccf.Item[fieldStatus].(*types.AttributeValueMemberS); ok {
		current = s.Value
	}
	return fmt.Errorf("order %s is %s: %w", orderID, current, domain.ErrInvalidTransition)
}

func (r *OrderRepo) queryIndex(ctx context.Context, index, attr, value string) ([]domain.Order, error) {
	input := &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(index),
		KeyConditionExpression:   aws.String("#k = :k"),
		ExpressionAttributeNames: map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: value},
		},
		ScanIndexForward: aws.Bool(false),
	}
	orders := []domain.Order{}
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.Order
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		orders = append(orders, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return orders, nil
}
