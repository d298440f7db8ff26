// Package events publishes media lifecycle notifications to EventBridge.
//
// Notifications are best effort: the worker logs a publish failure and
// carries on, since the database row is the source of truth.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog/log"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

const (
	DetailTypeProcessed = "MediaProcessed"
	DetailTypeFailed    = "MediaFailed"
)

// API is the subset of *eventbridge.Client used here.
type API interface {
	PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// MediaEvent is the event detail.
type MediaEvent struct {
	MediaID      string       `json:"mediaId"`
	UserID       string       `json:"userId"`
	S3Key        string       `json:"s3Key"`
	Kind         media.Kind   `json:"kind"`
	Status       media.Status `json:"status"`
	ThumbnailKey string       `json:"thumbnailKey,omitempty"`
	Error        string       `json:"error,omitempty"`
	OccurredAt   time.Time    `json:"occurredAt"`
}

// Publisher sends events to one bus. A nil *Publisher is valid and drops
// every event, which is how the feature is disabled.
type Publisher struct {
	client  API
	busName string
	source  string
}

// NewPublisher returns nil when busName is empty.
func NewPublisher(client API, busName, source string) *Publisher {
	if busName == "" {
		return nil
	}
	return &Publisher{client: client, busName: busName, source: source}
}

// Processed emits MediaProcessed.
func (p *Publisher) Processed(ctx context.Context, ev MediaEvent) error {
	ev.Status = media.StatusReady
	return p.put(ctx, DetailTypeProcessed, ev)
}

// Failed emits MediaFailed.
func (p *Publisher) Failed(ctx context.Context, ev MediaEvent) error {
	ev.Status = media.StatusFailed
	return p.put(ctx, DetailTypeFailed, ev)
}

func (p *Publisher) put(ctx context.Context, detailType string, ev MediaEvent) error {
	if p == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	detail, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", detailType, err)
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []eventbridgetypes.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.busName),
				Source:       aws.String(p.source),
				DetailType:   aws.String(detailType),
				Detail:       aws.String(string(detail)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("PutEvents: %w", err)
	}
	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil || entry.ErrorMessage != nil {
				return fmt.Errorf("PutEvents entry %d failed: %s - %s", i, aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
			}
		}
	}

	log.Debug().Str("mediaId", ev.MediaID).Str("detailType", detailType).Msg("Media event emitted to EventBridge")
	return nil
}
