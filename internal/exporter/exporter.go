// Package exporter dumps DynamoDB tables to JSONL batch files, with
// optional filter expressions and transparent decompression of the
// publication data attribute.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/schollz/progressbar/v3"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/dynamo"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// DynamoAPI is the DynamoDB surface the exporter needs.
type DynamoAPI interface {
	dynamo.ListTablesAPI
	dynamo.ScanAPI
}

// Exporter exports one table, addressed by a substring of its name.
type Exporter struct {
	client DynamoAPI
	log    logger.Logger
}

// New creates an Exporter.
func New(client DynamoAPI) *Exporter {
	return &Exporter{
		client: client,
		log:    logger.New("exporter"),
	}
}

// Result summarizes a finished export.
type Result struct {
	TableName string
	Items     int
	Batches   int
	Folder    string
}

// Export scans the first table whose name contains tableSubstring and
// writes its items to batch_NNNNN.jsonl files under folder. Filters
// use the attribute:operator:value form of ParseFilters.
func (e *Exporter) Export(ctx context.Context, tableSubstring, folder string, filters []string) (*Result, error) {
	tableName, err := dynamo.FindTableBySubstring(ctx, e.client, tableSubstring)
	if err != nil {
		return nil, err
	}

	condition, err := ParseFilters(filters)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{TableName: &tableName}
	if condition != nil {
		expr, err := expression.NewBuilder().WithFilter(*condition).Build()
		if err != nil {
			return nil, fmt.Errorf("build filter expression: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder %s: %w", folder, err)
	}

	e.log.Info("starting table export",
		logger.String("table", tableName),
		logger.String("folder", folder))

	bar := progressbar.Default(-1, "Scanning table")
	defer bar.Finish()

	stats, err := dynamo.ForEachScanBatch(ctx, e.client, input, func(items []dynamo.Item, batch int) error {
		bar.Add(len(items))
		return e.saveBatch(folder, items, batch)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("export complete",
		logger.String("table", tableName),
		logger.Int("items", stats.Items),
		logger.Int("batches", stats.Batches))

	return &Result{
		TableName: tableName,
		Items:     stats.Items,
		Batches:   stats.Batches,
		Folder:    folder,
	}, nil
}

func (e *Exporter) saveBatch(folder string, items []dynamo.Item, batch int) error {
	path := filepath.Join(folder, fmt.Sprintf("batch_%05d.jsonl", batch+1))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create batch file %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, item := range items {
		doc, err := itemToDocument(item)
		if err != nil {
			return err
		}
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("write item to %s: %w", path, err)
		}
	}

	e.log.Debug("saved batch",
		logger.Int("items", len(items)),
		logger.String("file", path))
	return file.Close()
}

// itemToDocument converts an item to a JSON document. When the item
// carries a compressed data attribute, the inflated document is added
// under @data_decompressed alongside the raw attribute.
func itemToDocument(item dynamo.Item) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}

	if _, ok := item[dynamo.DataAttribute].(*types.AttributeValueMemberB); ok {
		if inflated, err := dynamo.InflateData(item); err == nil {
			doc["@data_decompressed"] = inflated
		}
	}
	return doc, nil
}
