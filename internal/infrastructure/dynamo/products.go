package dynamo

import (
	"context"
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

// ProductRepo provides typed DynamoDB operations for the products table.
type ProductRepo struct {
	client    API
	tableName string
}

func NewProductRepo(client API, tableName string) *ProductRepo {
	return &ProductRepo{client: client, tableName: tableName}
}

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(product_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("product %s already exists: %w", p.ProductID, domain.ErrConflict)
	}
	return err
}

func (r *ProductRepo) Get(ctx context.Context, productID string) (*domain.Product, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldProductID, productID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("product not found: %w", domain.ErrNotFound)
	}
	var p domain.Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies a partial update and returns the product as stored afterwards.
func (r *ProductRepo) Update(ctx context.Context, productID string, updates map[string]interface{}) (*domain.Product, error) {
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldProductID, productID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(product_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("product not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var p domain.Product
	if err := attributevalue.UnmarshalMap(out.Attributes, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) Delete(ctx context.Context, productID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldProductID, productID),
		ConditionExpression: aws.String("attribute_exists(product_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("product not found: %w", domain.ErrNotFound)
	}
	return err
}

// List scans the catalog. Category, featured and in-stock filters are pushed
// down as a FilterExpression; the free-text query is matched in memory
// against name and description. Results are sorted by name.
func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
	var conds []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	if f.Category != "" {
		conds = append(conds, "#c = :c")
		names["#c"] = "category"
		values[":c"] = &types.AttributeValueMemberS{Value: f.Category}
	}
	if f.Featured != nil {
		conds = append(conds, "#f = :f")
		names["#f"] = "featured"
		values[":f"] = &types.AttributeValueMemberBOOL{Value: *f.Featured}
	}
	if f.InStock != nil {
		conds = append(conds, "#s = :s")
		names["#s"] = "in_stock"
		values[":s"] = &types.AttributeValueMemberBOOL{Value: *f.InStock}
	}
	if len(conds) > 0 {
		input.FilterExpression = aws.String(strings.Join(conds, " AND "))
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	products := []domain.Product{}
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.Product
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		for _, p := range page {
			if q == "" || strings.Contains(strings.ToLower(p.Name), q) ||
				strings.Contains(strings.ToLower(p.Description), q) {
				products = append(products, p)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}
