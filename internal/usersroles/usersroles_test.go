package usersroles

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/dynamo"
	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/httpx"
)

type fakeDynamo struct {
	tables map[string][]dynamo.Item
	puts   []*dynamodb.PutItemInput
}

func (f *fakeDynamo) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	return &dynamodb.ListTablesOutput{TableNames: names}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{Items: f.tables[*params.TableName]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, params)
	return &dynamodb.PutItemOutput{}, nil
}

func str(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func apiDomainOf(server *httptest.Server) string {
	return strings.TrimPrefix(server.URL, "https://")
}

func TestSearchMatchesAcrossItemValues(t *testing.T) {
	client := &fakeDynamo{tables: map[string][]dynamo.Item{
		"nva-users-and-roles-users": {
			{"username": str("kari@185.0.0.0"), "givenName": str("Kari")},
			{"username": str("ola@186.0.0.0"), "givenName": str("Ola")},
		},
	}}

	service := New(client, httpx.New(), "api.test.nva.aws.unit.no")
	matches, err := service.Search(context.Background(), "Kari 185")
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "kari@185.0.0.0", matches[0]["username"])
}

func TestUpdateUserRequiresUsername(t *testing.T) {
	service := New(&fakeDynamo{}, httpx.New(), "api.test.nva.aws.unit.no")
	_, err := service.UpdateUser(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestApproveTermsWritesItem(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users-roles/terms-and-conditions/current", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"termsConditionsUri": "https://nva.sikt.no/terms/2024-10-01",
		})
	}))
	defer server.Close()

	client := &fakeDynamo{tables: map[string][]dynamo.Item{
		"terms-and-conditions-table": {},
	}}

	api := httpx.New(httpx.WithHTTPClient(server.Client()))

	service := New(client, api, apiDomainOf(server))
	item, err := service.ApproveTerms(context.Background(), "12345")
	require.NoError(t, err)

	assert.Equal(t, "https://"+apiDomainOf(server)+"/cristin/person/12345", item.ID)
	assert.Equal(t, "TermsConditions", item.Type)
	assert.Equal(t, SystemUser, item.Owner)
	assert.Equal(t, "https://nva.sikt.no/terms/2024-10-01", item.TermsConditionsURI)
	assert.Equal(t, item.Created, item.Modified)

	require.Len(t, client.puts, 1)
	assert.Equal(t, "terms-and-conditions-table", *client.puts[0].TableName)
}
