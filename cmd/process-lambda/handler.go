package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/devstream-shilpa/Media-Platform/internal/pipeline"
	"github.com/devstream-shilpa/Media-Platform/internal/queue"
)

type batchProcessor interface {
	HandleBatch(ctx context.Context, msgs []queue.Message) pipeline.BatchResult
}

// handleEvent runs one SQS batch. With partial set, failures are reported
// per message; otherwise any failure fails the invocation and SQS
// redelivers the whole batch.
func handleEvent(ctx context.Context, proc batchProcessor, partial bool, ev events.SQSEvent) (events.SQSEventResponse, error) {
	msgs := make([]queue.Message, 0, len(ev.Records))
	for _, r := range ev.Records {
		msgs = append(msgs, fromLambda(r))
	}

	res := proc.HandleBatch(ctx, msgs)

	var resp events.SQSEventResponse
	if len(res.Failed) == 0 {
		return resp, nil
	}
	if !partial {
		return resp, fmt.Errorf("%d of %d jobs failed", len(res.Failed), len(msgs))
	}
	for _, id := range res.Failed {
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: id})
	}
	return resp, nil
}

func fromLambda(r events.SQSMessage) queue.Message {
	msg := queue.Message{ID: r.MessageId, Body: r.Body}
	if v, ok := r.Attributes["ApproximateReceiveCount"]; ok {
		msg.ReceiveCount, _ = strconv.Atoi(v)
	}
	return msg
}
