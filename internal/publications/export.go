package publications

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/schollz/progressbar/v3"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/dynamo"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/report"
)

// exportBatchSize matches the publications API's own export jobs.
const exportBatchSize = 700

// ExportAPI is the DynamoDB surface used by Export.
type ExportAPI interface {
	dynamo.ListTablesAPI
	dynamo.ScanAPI
}

// ExportResult summarizes an export run.
type ExportResult struct {
	TableName    string
	Publications int
	Batches      int
	Folder       string
}

// Export writes every publication in the resources table to JSONL
// batch files under folder, one inflated publication document per
// line. Non-Resource rows (tickets, messages) are filtered out by
// their key prefixes.
func Export(ctx context.Context, client ExportAPI, folder string) (*ExportResult, error) {
	log := logger.New("publications")

	tableName, err := dynamo.FindTableByPattern(ctx, client, dynamo.PublicationsTablePattern)
	if err != nil {
		return nil, err
	}

	writer, err := report.NewBatchWriter(folder)
	if err != nil {
		return nil, err
	}

	filter := expression.Name("PK0").BeginsWith("Resource:").
		And(expression.Name("SK0").BeginsWith("Resource:"))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{
		TableName:                 &tableName,
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     int32Ptr(exportBatchSize),
	}

	bar := progressbar.Default(-1, "Exporting "+tableName)
	defer bar.Finish()

	result := &ExportResult{TableName: tableName, Folder: folder}
	stats, err := dynamo.ForEachScanBatch(ctx, client, input, func(items []dynamo.Item, _ int) error {
		documents := make([]interface{}, 0, len(items))
		for _, item := range items {
			data, err := dynamo.InflateData(item)
			if err != nil {
				return err
			}
			documents = append(documents, data)
			bar.Add(1)
		}
		if _, err := writer.WriteBatch(documents); err != nil {
			return err
		}
		result.Publications += len(documents)
		result.Batches++
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("exported publications",
		logger.String("table", tableName),
		logger.Int("publications", result.Publications),
		logger.Int("batches", result.Batches),
		logger.Float64("consumedCapacity", stats.ConsumedCapacity))
	return result, nil
}

func int32Ptr(v int32) *int32 { return &v }
