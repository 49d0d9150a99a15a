package exporter

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/dynamo"
	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

func avString(t *testing.T, av types.AttributeValue) string {
	t.Helper()
	s, ok := av.(*types.AttributeValueMemberS)
	require.True(t, ok)
	return s.Value
}

type fakeDynamo struct {
	tables    []string
	pages     []*dynamodb.ScanOutput
	scanCalls int
	lastScan  *dynamodb.ScanInput
}

func (f *fakeDynamo) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	return &dynamodb.ListTablesOutput{TableNames: f.tables}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.lastScan = params
	page := f.pages[f.scanCalls]
	f.scanCalls++
	return page, nil
}

func readJSONL(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var docs []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &doc))
		docs = append(docs, doc)
	}
	require.NoError(t, scanner.Err())
	return docs
}

func TestExportWritesBatchFiles(t *testing.T) {
	client := &fakeDynamo{
		tables: []string{"other", "nva-resources-table"},
		pages: []*dynamodb.ScanOutput{
			{
				Items: []dynamo.Item{
					{"identifier": &types.AttributeValueMemberS{Value: "a"}},
				},
				LastEvaluatedKey: dynamo.Item{"pk": &types.AttributeValueMemberS{Value: "a"}},
			},
			{
				Items: []dynamo.Item{
					{"identifier": &types.AttributeValueMemberS{Value: "b"}},
				},
			},
		},
	}

	folder := t.TempDir()
	result, err := New(client).Export(context.Background(), "resources", folder, nil)
	require.NoError(t, err)

	assert.Equal(t, "nva-resources-table", result.TableName)
	assert.Equal(t, 2, result.Items)
	assert.Equal(t, 2, result.Batches)

	first := readJSONL(t, filepath.Join(folder, "batch_00001.jsonl"))
	require.Len(t, first, 1)
	assert.Equal(t, "a", first[0]["identifier"])

	second := readJSONL(t, filepath.Join(folder, "batch_00002.jsonl"))
	require.Len(t, second, 1)
	assert.Equal(t, "b", second[0]["identifier"])
}

func TestExportDecompressesDataAttribute(t *testing.T) {
	compressed, err := dynamo.Compress([]byte(`{"status":"PUBLISHED"}`))
	require.NoError(t, err)

	client := &fakeDynamo{
		tables: []string{"nva-resources-table"},
		pages: []*dynamodb.ScanOutput{
			{
				Items: []dynamo.Item{
					{
						"identifier": &types.AttributeValueMemberS{Value: "a"},
						"data":       &types.AttributeValueMemberB{Value: compressed},
					},
				},
			},
		},
	}

	folder := t.TempDir()
	_, err = New(client).Export(context.Background(), "resources", folder, nil)
	require.NoError(t, err)

	docs := readJSONL(t, filepath.Join(folder, "batch_00001.jsonl"))
	require.Len(t, docs, 1)

	decompressed, ok := docs[0]["@data_decompressed"].(map[string]interface{})
	require.True(t, ok, "expected @data_decompressed companion field")
	assert.Equal(t, "PUBLISHED", decompressed["status"])
	assert.NotEmpty(t, docs[0]["data"], "raw attribute is kept")
}

func TestExportAppliesFilterExpression(t *testing.T) {
	client := &fakeDynamo{
		tables: []string{"nva-resources-table"},
		pages:  []*dynamodb.ScanOutput{{}},
	}

	_, err := New(client).Export(context.Background(), "resources", t.TempDir(), []string{"PK0:begins_with:Resource:"})
	require.NoError(t, err)

	require.NotNil(t, client.lastScan.FilterExpression)
	assert.Contains(t, *client.lastScan.FilterExpression, "begins_with")
}

func TestExportUnknownTable(t *testing.T) {
	client := &fakeDynamo{tables: []string{"something-else"}}

	_, err := New(client).Export(context.Background(), "resources", t.TempDir(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
