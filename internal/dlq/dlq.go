// Package dlq reads, summarizes and purges SQS dead-letter queues.
package dlq

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// DLQAPI is the SQS surface used by the service.
type DLQAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Service wraps dead-letter queue operations.
type Service struct {
	client DLQAPI
	log    logger.Logger
}

// New creates a Service.
func New(client DLQAPI) *Service {
	return &Service{client: client, log: logger.New("dlq")}
}

// Message is a received DLQ message.
type Message struct {
	MessageID         string
	Body              string
	Attributes        map[string]string
	MessageAttributes map[string]sqstypes.MessageAttributeValue

	receiptHandle string
}

// bodyPrefixLength groups messages by the leading part of their body.
const bodyPrefixLength = 50

// GetMessages short-polls a queue until it has seen maxCount messages
// or a receive returns nothing new, deduplicating on MessageId. Every
// message is made immediately visible again, so reading is
// non-destructive.
func (s *Service) GetMessages(ctx context.Context, queueURL string, maxCount int) ([]Message, error) {
	var messages []Message
	seen := make(map[string]bool)

	for len(messages) < maxCount {
		batch, err := s.receiveBatch(ctx, queueURL)
		if err != nil {
			return nil, err
		}

		var fresh []Message
		for _, msg := range batch {
			if seen[msg.MessageID] {
				continue
			}
			seen[msg.MessageID] = true
			fresh = append(fresh, msg)
		}
		if len(fresh) == 0 {
			break
		}
		messages = append(messages, fresh...)
		s.log.Debug("received messages", logger.Int("count", len(fresh)))

		for _, msg := range fresh {
			if err := s.resetVisibility(ctx, queueURL, msg.receiptHandle); err != nil {
				return nil, err
			}
		}
	}

	s.log.Info("read queue messages",
		logger.String("queue", queueURL),
		logger.Int("total", len(messages)))
	return messages, nil
}

// Tally counts messages in one summary bucket together with the
// candidate identifiers seen there.
type Tally struct {
	Count      int
	Candidates []string
}

// SummarizeMessages aggregates messages by sender and by body prefix.
func SummarizeMessages(messages []Message) (bySender, byBody map[string]*Tally) {
	bySender = make(map[string]*Tally)
	byBody = make(map[string]*Tally)

	for _, msg := range messages {
		sender := msg.Attributes["SenderId"]
		if sender == "" {
			sender = "Unknown"
		}
		body := msg.Body
		if len(body) > bodyPrefixLength {
			body = body[:bodyPrefixLength]
		}
		candidate := "Unknown"
		if attr, ok := msg.MessageAttributes["candidateIdentifier"]; ok && attr.StringValue != nil {
			candidate = aws.ToString(attr.StringValue)
		}

		tallyInto(bySender, sender, candidate)
		tallyInto(byBody, body, candidate)
	}
	return bySender, byBody
}

func tallyInto(buckets map[string]*Tally, key, candidate string) {
	tally, ok := buckets[key]
	if !ok {
		tally = &Tally{}
		buckets[key] = tally
	}
	tally.Count++
	for _, existing := range tally.Candidates {
		if existing == candidate {
			return
		}
	}
	tally.Candidates = append(tally.Candidates, candidate)
}

// PurgeResult reports what a purge run matched and removed.
type PurgeResult struct {
	Matched []Message
	Deleted int
}

// Purge deletes messages whose body starts with prefix, reading at
// most maxCount messages. Non-matching messages are made visible
// again. With dryRun no message is deleted; matches are only
// collected.
func (s *Service) Purge(ctx context.Context, queueURL, prefix string, maxCount int, dryRun bool) (*PurgeResult, error) {
	if prefix == "" {
		return nil, apperrors.NewValidationError("purge requires a non-empty body prefix")
	}

	result := &PurgeResult{}
	seen := make(map[string]bool)
	read := 0

	for read < maxCount {
		batch, err := s.receiveBatch(ctx, queueURL)
		if err != nil {
			return result, err
		}

		var fresh []Message
		for _, msg := range batch {
			if seen[msg.MessageID] {
				continue
			}
			seen[msg.MessageID] = true
			fresh = append(fresh, msg)
		}
		if len(fresh) == 0 {
			break
		}
		read += len(fresh)

		for _, msg := range fresh {
			if strings.HasPrefix(msg.Body, prefix) {
				result.Matched = append(result.Matched, msg)
				if dryRun {
					if err := s.resetVisibility(ctx, queueURL, msg.receiptHandle); err != nil {
						return result, err
					}
					continue
				}
				if _, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
					QueueUrl:      &queueURL,
					ReceiptHandle: &msg.receiptHandle,
				}); err != nil {
					return result, apperrors.FromAWS("sqs", err)
				}
				result.Deleted++
				continue
			}
			if err := s.resetVisibility(ctx, queueURL, msg.receiptHandle); err != nil {
				return result, err
			}
		}
	}

	s.log.Info("purged queue",
		logger.String("queue", queueURL),
		logger.Int("matched", len(result.Matched)),
		logger.Int("deleted", result.Deleted),
		logger.Bool("dryRun", dryRun))
	return result, nil
}

func (s *Service) receiveBatch(ctx context.Context, queueURL string) ([]Message, error) {
	out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              &queueURL,
		MaxNumberOfMessages:   10,
		WaitTimeSeconds:       1,
		MessageAttributeNames: []string{"All"},
		AttributeNames:        []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameAll},
	})
	if err != nil {
		return nil, apperrors.FromAWS("sqs", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, msg := range out.Messages {
		messages = append(messages, Message{
			MessageID:         aws.ToString(msg.MessageId),
			Body:              aws.ToString(msg.Body),
			Attributes:        msg.Attributes,
			MessageAttributes: msg.MessageAttributes,
			receiptHandle:     aws.ToString(msg.ReceiptHandle),
		})
	}
	return messages, nil
}

func (s *Service) resetVisibility(ctx context.Context, queueURL, receiptHandle string) error {
	_, err := s.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          &queueURL,
		ReceiptHandle:     &receiptHandle,
		VisibilityTimeout: 0,
	})
	if err != nil {
		return apperrors.FromAWS("sqs", err)
	}
	return nil
}
