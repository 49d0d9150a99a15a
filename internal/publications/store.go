package publications

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/dynamo"
	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// identifierIndex is the GSI resolving a publication identifier to
// its table keys.
const identifierIndex = "ResourcesByIdentifier"

// StoreAPI is the DynamoDB surface used by the Store.
type StoreAPI interface {
	dynamo.ListTablesAPI
	dynamo.QueryAPI
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store reads and writes publication items directly in the registry
// table, bypassing the REST API. Used by bulk maintenance jobs.
type Store struct {
	client    StoreAPI
	tableName string
	log       logger.Logger
}

// NewStore resolves the publications table and wraps it.
func NewStore(ctx context.Context, client StoreAPI) (*Store, error) {
	tableName, err := dynamo.FindTableByPattern(ctx, client, dynamo.PublicationsTablePattern)
	if err != nil {
		return nil, err
	}
	return &Store{
		client:    client,
		tableName: tableName,
		log:       logger.New("publications"),
	}, nil
}

// TableName returns the resolved table name.
func (s *Store) TableName() string { return s.tableName }

// Resource is a publication item addressed by its table keys.
type Resource struct {
	PK0  string
	SK0  string
	Data map[string]interface{}
}

// FetchByIdentifier looks a publication up through the identifier
// index and inflates its data attribute.
func (s *Store) FetchByIdentifier(ctx context.Context, identifier string) (*Resource, error) {
	limit := int32(1)
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		IndexName:              strPtr(identifierIndex),
		KeyConditionExpression: strPtr("PK3 = :pk3"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk3": &types.AttributeValueMemberS{Value: "Resource:" + identifier},
		},
		Limit: &limit,
	})
	if err != nil {
		return nil, apperrors.FromAWS("dynamodb", err)
	}
	if len(out.Items) == 0 {
		return nil, apperrors.NewNotFoundError("publication not found").
			WithDetail("identifier", identifier)
	}

	item := out.Items[0]
	data, err := dynamo.InflateData(item)
	if err != nil {
		return nil, err
	}
	return &Resource{
		PK0:  stringAttr(item, "PK0"),
		SK0:  stringAttr(item, "SK0"),
		Data: data,
	}, nil
}

// UpdateData writes a modified publication document back: the data
// attribute is deflated and the item's version attribute replaced
// with a fresh UUID so downstream consumers notice the change.
func (s *Store) UpdateData(ctx context.Context, resource *Resource) error {
	data, err := dynamo.DeflateData(resource.Data)
	if err != nil {
		return err
	}
	return s.UpdateAttributes(ctx, resource.PK0, resource.SK0, map[string]types.AttributeValue{
		"data":    data,
		"version": &types.AttributeValueMemberS{Value: uuid.NewString()},
	})
}

// UpdateAttributes sets arbitrary attributes on an item in a single
// write transaction.
func (s *Store) UpdateAttributes(ctx context.Context, pk0, sk0 string, attributes map[string]types.AttributeValue) error {
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	var assignments []string
	expressionNames := make(map[string]string)
	expressionValues := make(map[string]types.AttributeValue)
	for i, name := range names {
		nameKey := fmt.Sprintf("#attr%d", i+1)
		valueKey := fmt.Sprintf(":val%d", i+1)
		assignments = append(assignments, nameKey+" = "+valueKey)
		expressionNames[nameKey] = name
		expressionValues[valueKey] = attributes[name]
	}

	update := types.Update{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK0": &types.AttributeValueMemberS{Value: pk0},
			"SK0": &types.AttributeValueMemberS{Value: sk0},
		},
		UpdateExpression:          strPtr("SET " + strings.Join(assignments, ", ")),
		ExpressionAttributeNames:  expressionNames,
		ExpressionAttributeValues: expressionValues,
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{{Update: &update}},
	})
	if err != nil {
		return apperrors.FromAWS("dynamodb", err)
	}

	s.log.Debug("updated publication item",
		logger.String("pk0", pk0),
		logger.String("sk0", sk0),
		logger.Int("attributes", len(attributes)))
	return nil
}

func stringAttr(item dynamo.Item, name string) string {
	if attr, ok := item[name].(*types.AttributeValueMemberS); ok {
		return attr.Value
	}
	return ""
}

func strPtr(s string) *string { return &s }
