package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

type fakeScanner struct {
	pages []*dynamodb.ScanOutput
	calls int
	err   error
}

func (f *fakeScanner) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func item(id string) Item {
	return Item{"identifier": &types.AttributeValueMemberS{Value: id}}
}

func TestForEachScanBatchFollowsContinuationKey(t *testing.T) {
	scanner := &fakeScanner{pages: []*dynamodb.ScanOutput{
		{
			Items:            []Item{item("a"), item("b")},
			LastEvaluatedKey: Item{"pk": &types.AttributeValueMemberS{Value: "b"}},
			ConsumedCapacity: &types.ConsumedCapacity{CapacityUnits: aws.Float64(1.5)},
		},
		{
			Items:            []Item{item("c")},
			ConsumedCapacity: &types.ConsumedCapacity{CapacityUnits: aws.Float64(0.5)},
		},
	}}

	var seen []string
	stats, err := ForEachScanBatch(context.Background(), scanner, &dynamodb.ScanInput{TableName: aws.String("t")}, func(items []Item, batch int) error {
		for _, it := range items {
			seen = append(seen, it["identifier"].(*types.AttributeValueMemberS).Value)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, 3, stats.Items)
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 2.0, stats.ConsumedCapacity)
	assert.Equal(t, 2, scanner.calls)
}

func TestForEachScanBatchSkipsEmptyPages(t *testing.T) {
	scanner := &fakeScanner{pages: []*dynamodb.ScanOutput{
		{LastEvaluatedKey: Item{"pk": &types.AttributeValueMemberS{Value: "x"}}},
		{Items: []Item{item("a")}},
	}}

	stats, err := ForEachScanBatch(context.Background(), scanner, &dynamodb.ScanInput{}, func(items []Item, batch int) error {
		assert.Equal(t, 0, batch)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 1, stats.Items)
}

func TestForEachScanBatchPropagatesCallbackError(t *testing.T) {
	scanner := &fakeScanner{pages: []*dynamodb.ScanOutput{
		{Items: []Item{item("a")}},
	}}

	boom := errors.New("boom")
	_, err := ForEachScanBatch(context.Background(), scanner, &dynamodb.ScanInput{}, func(items []Item, batch int) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestForEachScanBatchWrapsServiceError(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("throttled")}
	_, err := ForEachScanBatch(context.Background(), scanner, &dynamodb.ScanInput{}, func(items []Item, batch int) error {
		return nil
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRemoteService))
}

type fakeQuerier struct {
	pages []*dynamodb.QueryOutput
	calls int
}

func (f *fakeQuerier) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func TestForEachQueryBatchFollowsContinuationKey(t *testing.T) {
	querier := &fakeQuerier{pages: []*dynamodb.QueryOutput{
		{
			Items:            []Item{item("a")},
			LastEvaluatedKey: Item{"pk": &types.AttributeValueMemberS{Value: "a"}},
		},
		{Items: []Item{item("b")}},
	}}

	stats, err := ForEachQueryBatch(context.Background(), querier, &dynamodb.QueryInput{}, func(items []Item, batch int) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Items)
	assert.Equal(t, 2, querier.calls)
}

func TestScanAllCollectsEveryItem(t *testing.T) {
	scanner := &fakeScanner{pages: []*dynamodb.ScanOutput{
		{
			Items:            []Item{item("a")},
			LastEvaluatedKey: Item{"pk": &types.AttributeValueMemberS{Value: "a"}},
		},
		{Items: []Item{item("b")}},
	}}

	items, err := ScanAll(context.Background(), scanner, &dynamodb.ScanInput{})
	require.NoError(t, err)
	require.Len(t, items, 2)
}
