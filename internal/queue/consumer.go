package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
)

// BatchHandler processes a batch and returns the ids of failed messages.
type BatchHandler func(ctx context.Context, msgs []Message) (failedIDs []string)

// ConsumerOptions tune the long poll.
type ConsumerOptions struct {
	WaitTime          time.Duration
	VisibilityTimeout time.Duration
	MaxMessages       int32
	// ErrorBackoff is the pause after a failed ReceiveMessage call.
	ErrorBackoff time.Duration
}

// Consumer long-polls a queue and feeds a BatchHandler.
type Consumer struct {
	client   API
	queueURL string
	opts     ConsumerOptions
	handler  BatchHandler
}

// NewConsumer returns a Consumer. Zero options get SQS-friendly defaults.
func NewConsumer(client API, queueURL string, handler BatchHandler, opts ConsumerOptions) *Consumer {
	if opts.WaitTime <= 0 {
		opts.WaitTime = 20 * time.Second
	}
	if opts.MaxMessages <= 0 || opts.MaxMessages > 10 {
		opts.MaxMessages = 10
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 5 * time.Second
	}
	return &Consumer{client: client, queueURL: queueURL, opts: opts, handler: handler}
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	log.Info().Str("queueUrl", c.queueURL).Msg("Queue consumer started")
	for {
		if ctx.Err() != nil {
			log.Info().Msg("Queue consumer stopped")
			return nil
		}
		if _, _, err := c.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Dur("backoff", c.opts.ErrorBackoff).Msg("Queue poll failed")
			select {
			case <-ctx.Done():
			case <-time.After(c.opts.ErrorBackoff):
			}
		}
	}
}

// PollOnce performs one receive/handle/delete cycle.
func (c *Consumer) PollOnce(ctx context.Context) (received, failed int, err error) {
	in := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.opts.MaxMessages,
		WaitTimeSeconds:     int32(c.opts.WaitTime / time.Second),
		MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{
			sqstypes.MessageSystemAttributeNameApproximateReceiveCount,
		},
	}
	if c.opts.VisibilityTimeout > 0 {
		in.VisibilityTimeout = int32(c.opts.VisibilityTimeout / time.Second)
	}
	out, err := c.client.ReceiveMessage(ctx, in)
	if err != nil {
		return 0, 0, fmt.Errorf("SQS ReceiveMessage: %w", err)
	}
	if len(out.Messages) == 0 {
		return 0, 0, nil
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, fromSQS(m))
	}

	failedIDs := c.handler(ctx, msgs)
	failedSet := make(map[string]bool, len(failedIDs))
	for _, id := range failedIDs {
		failedSet[id] = true
	}

	var done []Message
	for _, m := range msgs {
		if !failedSet[m.ID] {
			done = append(done, m)
		}
	}
	if err := c.delete(ctx, done); err != nil {
		return len(msgs), len(failedIDs), err
	}
	if len(failedIDs) > 0 {
		log.Warn().Int("received", len(msgs)).Int("failed", len(failedIDs)).Msg("Batch had failures; left for redelivery")
	}
	return len(msgs), len(failedIDs), nil
}

func (c *Consumer) delete(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	entries := make([]sqstypes.DeleteMessageBatchRequestEntry, 0, len(msgs))
	for i, m := range msgs {
		entries = append(entries, sqstypes.DeleteMessageBatchRequestEntry{
			Id:            aws.String(strconv.Itoa(i)),
			ReceiptHandle: aws.String(m.receiptHandle),
		})
	}
	out, err := c.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(c.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return fmt.Errorf("SQS DeleteMessageBatch: %w", err)
	}
	for _, f := range out.Failed {
		// The message will be redelivered and reprocessed; processing is idempotent.
		log.Warn().Str("entry", aws.ToString(f.Id)).Str("code", aws.ToString(f.Code)).Str("reason", aws.ToString(f.Message)).Msg("Failed to delete processed message")
	}
	return nil
}

func fromSQS(m sqstypes.Message) Message {
	msg := Message{
		ID:            aws.ToString(m.MessageId),
		Body:          aws.ToString(m.Body),
		receiptHandle: aws.ToString(m.ReceiptHandle),
	}
	if v, ok := m.Attributes[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)]; ok {
		msg.ReceiveCount, _ = strconv.Atoi(v)
	}
	return msg
}
