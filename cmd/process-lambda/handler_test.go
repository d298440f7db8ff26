package main

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/devstream-shilpa/Media-Platform/internal/pipeline"
	"github.com/devstream-shilpa/Media-Platform/internal/queue"
)

type stubProcessor struct {
	fail map[string]bool
	got  []queue.Message
}

func (s *stubProcessor) HandleBatch(_ context.Context, msgs []queue.Message) pipeline.BatchResult {
	s.got = msgs
	var res pipeline.BatchResult
	for _, m := range msgs {
		if s.fail[m.ID] {
			res.Failed = append(res.Failed, m.ID)
		} else {
			res.Processed++
		}
	}
	return res
}

func sqsEvent(ids ...string) events.SQSEvent {
	var ev events.SQSEvent
	for _, id := range ids {
		ev.Records = append(ev.Records, events.SQSMessage{
			MessageId:  id,
			Body:       `{}`,
			Attributes: map[string]string{"ApproximateReceiveCount": "2"},
		})
	}
	return ev
}

func TestHandleEvent_PartialBatch(t *testing.T) {
	proc := &stubProcessor{fail: map[string]bool{"b": true}}
	resp, err := handleEvent(context.Background(), proc, true, sqsEvent("a", "b", "c"))
	if err != nil {
		t.Fatalf("handleEvent() error = %v", err)
	}
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "b" {
		t.Errorf("BatchItemFailures = %+v, want [b]", resp.BatchItemFailures)
	}
	if proc.got[0].ReceiveCount != 2 {
		t.Errorf("ReceiveCount = %d, want 2", proc.got[0].ReceiveCount)
	}
}

func TestHandleEvent_WholeBatch(t *testing.T) {
	proc := &stubProcessor{fail: map[string]bool{"b": true}}
	resp, err := handleEvent(context.Background(), proc, false, sqsEvent("a", "b"))
	if err == nil {
		t.Fatal("expected invocation error when partial batch is off")
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Errorf("BatchItemFailures = %+v, want none", resp.BatchItemFailures)
	}
}

func TestHandleEvent_AllSucceed(t *testing.T) {
	resp, err := handleEvent(context.Background(), &stubProcessor{}, true, sqsEvent("a", "b"))
	if err != nil || len(resp.BatchItemFailures) != 0 {
		t.Errorf("resp = %+v, err = %v", resp, err)
	}
}
