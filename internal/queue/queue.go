// Package queue carries job descriptors over SQS.
//
// Delivery is at-least-once. The Publisher enqueues one JSON job per
// confirmed upload. The Consumer is the long-poll loop used outside Lambda:
// it hands each received batch to a handler and deletes only the messages
// the handler reports as successful, so failures reappear after the
// visibility timeout and eventually dead-letter through the queue's redrive
// policy.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

// API is the subset of *sqs.Client used by this package.
type API interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, in *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// Message is one delivery of a job, independent of the transport that
// produced it (Lambda event source or long poll).
type Message struct {
	ID            string
	Body          string
	ReceiveCount  int
	receiptHandle string
}

// Publisher enqueues jobs.
type Publisher struct {
	client   API
	queueURL string
}

// NewPublisher returns a Publisher for queueURL.
func NewPublisher(client API, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// Enqueue sends job as the message body and returns the SQS message id.
func (p *Publisher) Enqueue(ctx context.Context, job media.Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}
	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}
	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return "", fmt.Errorf("SQS SendMessage: %w", err)
	}
	msgID := aws.ToString(out.MessageId)
	log.Debug().Str("mediaId", job.MediaID).Str("messageId", msgID).Msg("Job enqueued")
	return msgID, nil
}
