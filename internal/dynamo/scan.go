package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// Item is one DynamoDB item in SDK attribute-value form.
type Item = map[string]types.AttributeValue

// ScanAPI is the scan surface used by batch iteration.
type ScanAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// QueryAPI is the query surface used by batch iteration.
type QueryAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// BatchFunc receives one page of items and its zero-based batch index.
type BatchFunc func(items []Item, batch int) error

// Stats accumulates totals over a batch iteration.
type Stats struct {
	Items            int
	Batches          int
	ConsumedCapacity float64
}

// ForEachScanBatch drains a table scan, invoking fn per page until
// the continuation key is exhausted. Items are passed in API-returned
// order.
func ForEachScanBatch(ctx context.Context, client ScanAPI, input *dynamodb.ScanInput, fn BatchFunc) (Stats, error) {
	log := logger.New("dynamo")
	input.ReturnConsumedCapacity = types.ReturnConsumedCapacityTotal

	var stats Stats
	for {
		out, err := client.Scan(ctx, input)
		if err != nil {
			return stats, apperrors.FromAWS("dynamodb", err)
		}

		if len(out.Items) > 0 {
			if err := fn(out.Items, stats.Batches); err != nil {
				return stats, err
			}
			stats.Batches++
			stats.Items += len(out.Items)
			if out.ConsumedCapacity != nil && out.ConsumedCapacity.CapacityUnits != nil {
				stats.ConsumedCapacity += *out.ConsumedCapacity.CapacityUnits
			}
			log.Debug("processed scan batch",
				logger.Int("items", len(out.Items)),
				logger.Int("total", stats.Items),
				logger.Float64("consumed_capacity", stats.ConsumedCapacity))
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return stats, nil
}

// ForEachQueryBatch drains a query the same way ForEachScanBatch
// drains a scan.
func ForEachQueryBatch(ctx context.Context, client QueryAPI, input *dynamodb.QueryInput, fn BatchFunc) (Stats, error) {
	log := logger.New("dynamo")
	input.ReturnConsumedCapacity = types.ReturnConsumedCapacityTotal

	var stats Stats
	for {
		out, err := client.Query(ctx, input)
		if err != nil {
			return stats, apperrors.FromAWS("dynamodb", err)
		}

		if len(out.Items) > 0 {
			if err := fn(out.Items, stats.Batches); err != nil {
				return stats, err
			}
			stats.Batches++
			stats.Items += len(out.Items)
			if out.ConsumedCapacity != nil && out.ConsumedCapacity.CapacityUnits != nil {
				stats.ConsumedCapacity += *out.ConsumedCapacity.CapacityUnits
			}
			log.Debug("processed query batch",
				logger.Int("items", len(out.Items)),
				logger.Int("total", stats.Items),
				logger.Float64("consumed_capacity", stats.ConsumedCapacity))
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return stats, nil
}

// ScanAll collects every item of a scan into memory.
func ScanAll(ctx context.Context, client ScanAPI, input *dynamodb.ScanInput) ([]Item, error) {
	var items []Item
	_, err := ForEachScanBatch(ctx, client, input, func(batch []Item, _ int) error {
		items = append(items, batch...)
		return nil
	})
	return items, err
}
