package dlq

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

type fakeDLQ struct {
	pages        [][]sqstypes.Message
	receiveCalls int
	deleted      []string
	madeVisible  []string
}

func (f *fakeDLQ) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.receiveCalls >= len(f.pages) {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	page := f.pages[f.receiveCalls]
	f.receiveCalls++
	return &sqs.ReceiveMessageOutput{Messages: page}, nil
}

func (f *fakeDLQ) ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.madeVisible = append(f.madeVisible, aws.ToString(params.ReceiptHandle))
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeDLQ) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func queueMessage(id, body, sender string) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String(id),
		Body:          aws.String(body),
		ReceiptHandle: aws.String("rh-" + id),
		Attributes:    map[string]string{"SenderId": sender},
	}
}

const queueURL = "https://sqs.eu-west-1.amazonaws.com/123/nva-nvi-IndexDLQ"

func TestGetMessagesDeduplicatesRepeats(t *testing.T) {
	client := &fakeDLQ{pages: [][]sqstypes.Message{
		{queueMessage("m1", "one", "A"), queueMessage("m2", "two", "A")},
		{queueMessage("m2", "two", "A"), queueMessage("m3", "three", "B")},
		{queueMessage("m1", "one", "A")},
	}}

	messages, err := New(client).GetMessages(context.Background(), queueURL, 100)
	require.NoError(t, err)

	ids := make([]string, len(messages))
	for i, msg := range messages {
		ids[i] = msg.MessageID
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
	// every read message was made visible again
	assert.ElementsMatch(t, []string{"rh-m1", "rh-m2", "rh-m3"}, client.madeVisible)
	assert.Empty(t, client.deleted)
}

func TestGetMessagesStopsAtMaxCount(t *testing.T) {
	client := &fakeDLQ{pages: [][]sqstypes.Message{
		{queueMessage("m1", "one", "A"), queueMessage("m2", "two", "A")},
		{queueMessage("m3", "three", "A")},
	}}

	messages, err := New(client).GetMessages(context.Background(), queueURL, 2)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, 1, client.receiveCalls)
}

func TestSummarizeMessages(t *testing.T) {
	candidate := func(value string) map[string]sqstypes.MessageAttributeValue {
		return map[string]sqstypes.MessageAttributeValue{
			"candidateIdentifier": {StringValue: aws.String(value)},
		}
	}
	messages := []Message{
		{Body: "index failure: document too large for target cluster shard", Attributes: map[string]string{"SenderId": "A"}, MessageAttributes: candidate("cand-1")},
		{Body: "index failure: document too large for target cluster shard", Attributes: map[string]string{"SenderId": "A"}, MessageAttributes: candidate("cand-2")},
		{Body: "timeout", Attributes: map[string]string{"SenderId": "B"}},
	}

	bySender, byBody := SummarizeMessages(messages)

	require.Contains(t, bySender, "A")
	assert.Equal(t, 2, bySender["A"].Count)
	assert.ElementsMatch(t, []string{"cand-1", "cand-2"}, bySender["A"].Candidates)
	assert.Equal(t, []string{"Unknown"}, bySender["B"].Candidates)

	// body buckets truncate to the first 50 characters
	require.Contains(t, byBody, "index failure: document too large for target clust")
	assert.Equal(t, 2, byBody["index failure: document too large for target clust"].Count)
	assert.Equal(t, 1, byBody["timeout"].Count)
}

func TestPurgeDeletesOnlyMatchingMessages(t *testing.T) {
	client := &fakeDLQ{pages: [][]sqstypes.Message{
		{
			queueMessage("m1", "ERROR: broken", "A"),
			queueMessage("m2", "keep me", "A"),
			queueMessage("m3", "ERROR: also broken", "B"),
		},
	}}

	result, err := New(client).Purge(context.Background(), queueURL, "ERROR:", 100, false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Deleted)
	assert.Len(t, result.Matched, 2)
	assert.Equal(t, []string{"rh-m1", "rh-m3"}, client.deleted)
	assert.Equal(t, []string{"rh-m2"}, client.madeVisible)
}

func TestPurgeDryRunDeletesNothing(t *testing.T) {
	client := &fakeDLQ{pages: [][]sqstypes.Message{
		{queueMessage("m1", "ERROR: broken", "A"), queueMessage("m2", "keep me", "A")},
	}}

	result, err := New(client).Purge(context.Background(), queueURL, "ERROR:", 100, true)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Deleted)
	assert.Len(t, result.Matched, 1)
	assert.Empty(t, client.deleted)
	assert.ElementsMatch(t, []string{"rh-m1", "rh-m2"}, client.madeVisible)
}

func TestPurgeRequiresPrefix(t *testing.T) {
	_, err := New(&fakeDLQ{}).Purge(context.Background(), queueURL, "", 100, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
