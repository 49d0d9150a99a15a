// Package sqsops manages SQS queues: discovery, inspection and
// draining message backlogs to local JSONL files.
package sqsops

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/schollz/progressbar/v3"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// SQSAPI is the SQS surface used by the service.
type SQSAPI interface {
	ListQueues(ctx context.Context, params *sqs.ListQueuesInput, optFns ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// Service wraps queue operations for one account.
type Service struct {
	client SQSAPI
	log    logger.Logger
}

// New creates a Service.
func New(client SQSAPI) *Service {
	return &Service{client: client, log: logger.New("sqsops")}
}

// QueueName extracts the queue name from its URL.
func QueueName(queueURL string) string {
	segments := strings.Split(queueURL, "/")
	return segments[len(segments)-1]
}

// ListQueueURLs returns every queue URL, optionally filtered by a
// case-insensitive name substring, sorted by URL.
func (s *Service) ListQueueURLs(ctx context.Context, nameFilter string) ([]string, error) {
	var urls []string
	input := &sqs.ListQueuesInput{}
	for {
		out, err := s.client.ListQueues(ctx, input)
		if err != nil {
			return nil, apperrors.FromAWS("sqs", err)
		}
		for _, url := range out.QueueUrls {
			if nameFilter == "" || strings.Contains(strings.ToLower(QueueName(url)), strings.ToLower(nameFilter)) {
				urls = append(urls, url)
			}
		}
		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}
	sort.Strings(urls)
	return urls, nil
}

// FindQueueURL resolves a partial queue name to exactly one queue
// URL. Multiple matches are a validation error listing the
// candidates.
func (s *Service) FindQueueURL(ctx context.Context, partialName string) (string, error) {
	matches, err := s.ListQueueURLs(ctx, partialName)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", apperrors.NewNotFoundError("no queue matched").
			WithDetail("name", partialName)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, url := range matches {
			names[i] = QueueName(url)
		}
		return "", apperrors.NewValidationError("multiple queues matched, be more specific").
			WithDetail("name", partialName).
			WithDetail("candidates", names)
	}
}

// QueueAttributes fetches all attributes of a queue.
func (s *Service) QueueAttributes(ctx context.Context, queueURL string) (map[string]string, error) {
	out, err := s.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       &queueURL,
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameAll},
	})
	if err != nil {
		return nil, apperrors.FromAWS("sqs", err)
	}
	return out.Attributes, nil
}

// RedrivePolicy is the queue's dead-letter configuration.
type RedrivePolicy struct {
	MaxReceiveCount     int    `json:"maxReceiveCount"`
	DeadLetterTargetArn string `json:"deadLetterTargetArn"`
}

// ParseRedrivePolicy decodes the RedrivePolicy attribute, returning
// nil when the queue has none.
func ParseRedrivePolicy(attributes map[string]string) (*RedrivePolicy, error) {
	raw, ok := attributes[string(sqstypes.QueueAttributeNameRedrivePolicy)]
	if !ok || raw == "" {
		return nil, nil
	}
	var policy RedrivePolicy
	if err := json.Unmarshal([]byte(raw), &policy); err != nil {
		return nil, fmt.Errorf("decode redrive policy: %w", err)
	}
	return &policy, nil
}

// Message is the durable subset of a received SQS message; the
// receipt handle is deliberately excluded since it expires with the
// visibility window.
type Message struct {
	MessageID         string                                    `json:"MessageId"`
	Body              string                                    `json:"Body"`
	Attributes        map[string]string                         `json:"Attributes,omitempty"`
	MessageAttributes map[string]sqstypes.MessageAttributeValue `json:"MessageAttributes,omitempty"`
	MD5OfBody         string                                    `json:"MD5OfBody,omitempty"`
	ParsedBody        json.RawMessage                           `json:"ParsedBody,omitempty"`

	receiptHandle string
}

func fromSDKMessage(msg sqstypes.Message) Message {
	attributes := make(map[string]string, len(msg.Attributes))
	for name, value := range msg.Attributes {
		attributes[name] = value
	}

	message := Message{
		MessageID:         aws.ToString(msg.MessageId),
		Body:              aws.ToString(msg.Body),
		Attributes:        attributes,
		MessageAttributes: msg.MessageAttributes,
		MD5OfBody:         aws.ToString(msg.MD5OfBody),
		receiptHandle:     aws.ToString(msg.ReceiptHandle),
	}
	if json.Valid([]byte(message.Body)) {
		message.ParsedBody = json.RawMessage(message.Body)
	}
	return message
}

// DrainOptions configures a drain run.
type DrainOptions struct {
	OutputDir        string
	MessagesPerFile  int
	DeleteAfterWrite bool
}

// DrainSummary reports what a drain run did.
type DrainSummary struct {
	QueueName     string `json:"queue_name"`
	TotalMessages int    `json:"total_messages"`
	FilesCreated  int    `json:"files_created"`
	Deleted       bool   `json:"messages_deleted"`
	StartedAt     string `json:"timestamp_start"`
	FinishedAt    string `json:"timestamp_end"`
}

// emptyReceivesBeforeStop bounds the long-poll tail of a drain.
const emptyReceivesBeforeStop = 3

// Drain long-polls a queue until it stays empty, writing messages to
// numbered JSONL files under opts.OutputDir together with metadata
// and a final summary. With DeleteAfterWrite the messages are removed
// after each file is flushed.
func (s *Service) Drain(ctx context.Context, queueURL string, opts DrainOptions) (*DrainSummary, error) {
	if opts.MessagesPerFile <= 0 {
		opts.MessagesPerFile = 1000
	}
	queueName := QueueName(queueURL)
	startedAt := time.Now().Format("20060102_150405")

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("%s-%s", queueName, startedAt)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", opts.OutputDir, err)
	}

	attributes, err := s.QueueAttributes(ctx, queueURL)
	if err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(opts.OutputDir, "metadata.json"), map[string]interface{}{
		"queue_url":  queueURL,
		"queue_name": queueName,
		"timestamp":  startedAt,
		"attributes": attributes,
	}); err != nil {
		return nil, err
	}

	bar := progressbar.Default(-1, "Draining "+queueName)
	defer bar.Finish()

	summary := &DrainSummary{
		QueueName: queueName,
		Deleted:   opts.DeleteAfterWrite,
		StartedAt: startedAt,
	}

	var buffer []Message
	emptyReceives := 0
	for emptyReceives < emptyReceivesBeforeStop {
		out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              &queueURL,
			MaxNumberOfMessages:   10,
			WaitTimeSeconds:       20,
			MessageAttributeNames: []string{"All"},
			AttributeNames:        []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameAll},
		})
		if err != nil {
			return nil, apperrors.FromAWS("sqs", err)
		}
		if len(out.Messages) == 0 {
			emptyReceives++
			continue
		}
		emptyReceives = 0

		for _, msg := range out.Messages {
			buffer = append(buffer, fromSDKMessage(msg))
			summary.TotalMessages++
			bar.Add(1)
		}

		if len(buffer) >= opts.MessagesPerFile {
			if err := s.flushBuffer(ctx, queueURL, opts, summary, buffer); err != nil {
				return nil, err
			}
			buffer = nil
		}
	}

	if len(buffer) > 0 {
		if err := s.flushBuffer(ctx, queueURL, opts, summary, buffer); err != nil {
			return nil, err
		}
	}

	summary.FinishedAt = time.Now().Format("20060102_150405")
	if err := writeJSON(filepath.Join(opts.OutputDir, "summary.json"), summary); err != nil {
		return nil, err
	}

	s.log.Info("drained queue",
		logger.String("queue", queueName),
		logger.Int("messages", summary.TotalMessages),
		logger.Int("files", summary.FilesCreated))
	return summary, nil
}

func (s *Service) flushBuffer(ctx context.Context, queueURL string, opts DrainOptions, summary *DrainSummary, buffer []Message) error {
	summary.FilesCreated++
	path := filepath.Join(opts.OutputDir, fmt.Sprintf("messages_%04d.jsonl", summary.FilesCreated))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create message file %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, msg := range buffer {
		if err := encoder.Encode(msg); err != nil {
			return fmt.Errorf("write message file %s: %w", path, err)
		}
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close message file %s: %w", path, err)
	}

	if opts.DeleteAfterWrite {
		handles := make([]string, len(buffer))
		for i, msg := range buffer {
			handles[i] = msg.receiptHandle
		}
		deleted, err := s.deleteBatch(ctx, queueURL, handles)
		if err != nil {
			return err
		}
		if deleted != len(handles) {
			s.log.Warn("not all messages were deleted",
				logger.Int("deleted", deleted),
				logger.Int("expected", len(handles)))
		}
	}
	return nil
}

func (s *Service) deleteBatch(ctx context.Context, queueURL string, receiptHandles []string) (int, error) {
	deleted := 0
	for start := 0; start < len(receiptHandles); start += 10 {
		end := start + 10
		if end > len(receiptHandles) {
			end = len(receiptHandles)
		}

		entries := make([]sqstypes.DeleteMessageBatchRequestEntry, 0, end-start)
		for i, handle := range receiptHandles[start:end] {
			entries = append(entries, sqstypes.DeleteMessageBatchRequestEntry{
				Id:            aws.String(fmt.Sprint(i)),
				ReceiptHandle: aws.String(handle),
			})
		}

		out, err := s.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: &queueURL,
			Entries:  entries,
		})
		if err != nil {
			return deleted, apperrors.FromAWS("sqs", err)
		}
		deleted += len(out.Successful)
		for _, failure := range out.Failed {
			s.log.Warn("failed to delete message",
				logger.String("reason", aws.ToString(failure.Message)))
		}
	}
	return deleted, nil
}

func writeJSON(path string, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
