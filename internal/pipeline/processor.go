// Package pipeline is the processing worker: it turns one queued job into a
// ready (or failed) media record.
//
// Per job, in order:
//
//  1. mark the record processing
//  2. fetch the original from the object store (images only; other kinds
//     are described from object metadata without reading the body)
//  3. transform it by declared type (image, video or pass-through)
//  4. persist metadata and thumbnail key with status ready
//  5. invalidate the owner's cached listings and the shared listings of
//     every user the media was shared with
//
// Any error in steps 1-5 marks the record failed with the error text. The
// processing mark is never rolled back. Batches report failures per message
// so the queue only redelivers what actually failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/devstream-shilpa/Media-Platform/internal/events"
	"github.com/devstream-shilpa/Media-Platform/internal/media"
	"github.com/devstream-shilpa/Media-Platform/internal/metrics"
	"github.com/devstream-shilpa/Media-Platform/internal/queue"
	"github.com/devstream-shilpa/Media-Platform/internal/s3util"
	"github.com/devstream-shilpa/Media-Platform/internal/transform"
)

// Records is the relational store surface the worker uses: status
// write-back and the share lookup that drives invalidation.
type Records interface {
	MarkProcessing(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, detail string) error
	Complete(ctx context.Context, id string, meta media.Metadata, thumbnailKey string) error
	ShareRecipients(ctx context.Context, mediaID string) ([]string, error)
}

// Originals reads and tags uploaded originals.
type Originals interface {
	Get(ctx context.Context, key string, maxBytes int64) (*s3util.Object, error)
	Stat(ctx context.Context, key string) (*s3util.Object, error)
	TagObject(ctx context.Context, key string) error
}

// Transformer produces derivatives and metadata for one original.
type Transformer interface {
	Run(ctx context.Context, src transform.Source) (transform.Result, error)
}

// ListingInvalidator drops cached listings.
type ListingInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) (int64, error)
	InvalidateShared(ctx context.Context, userIDs []string) error
}

// Notifier publishes lifecycle events. *events.Publisher satisfies it,
// including the nil publisher.
type Notifier interface {
	Processed(ctx context.Context, ev events.MediaEvent) error
	Failed(ctx context.Context, ev events.MediaEvent) error
}

const (
	DefaultJobTimeout    = 5 * time.Minute
	DefaultMaxImageBytes = 50 << 20
	markFailedTimeout    = 10 * time.Second
)

// Options tune a Processor. Zero values take defaults.
type Options struct {
	JobTimeout  time.Duration
	Parallelism int
	// MaxImageBytes caps how much of an image original is read into memory.
	MaxImageBytes int64
}

// Processor runs jobs against its collaborators.
type Processor struct {
	status    Records
	originals Originals
	transform Transformer
	cache     ListingInvalidator
	notify    Notifier

	jobTimeout    time.Duration
	parallelism   int
	maxImageBytes int64
}

// NewProcessor wires a Processor. notify may be nil.
func NewProcessor(status Records, originals Originals, tr Transformer, cache ListingInvalidator, notify Notifier, opts Options) *Processor {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	return &Processor{
		status:      status,
		originals:   originals,
		transform:   tr,
		cache:       cache,
		notify:      notify,
		jobTimeout:    opts.JobTimeout,
		parallelism:   opts.Parallelism,
		maxImageBytes: opts.MaxImageBytes,
	}
}

// Process runs one job to completion. On error the record has been marked
// failed (best effort) and the error is returned for the caller to report.
func (p *Processor) Process(ctx context.Context, job media.Job) error {
	start := time.Now()
	kind := media.KindOf(job.FileType)
	logger := log.With().Str("mediaId", job.MediaID).Str("userId", job.UserID).Str("key", job.S3Key).Logger()
	logger.Info().Str("kind", string(kind)).Msg("Processing media")

	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	res, size, err := p.run(jobCtx, job)
	if err != nil {
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("job timed out after %s: %w", p.jobTimeout, err)
		}
		p.fail(ctx, job, kind, err)
		metrics.MediaFailed(string(kind), job.MediaID, time.Since(start))
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Media processing failed")
		return err
	}

	if p.notify != nil {
		ev := events.MediaEvent{
			MediaID:      job.MediaID,
			UserID:       job.UserID,
			S3Key:        job.S3Key,
			Kind:         res.Kind,
			ThumbnailKey: res.ThumbnailKey,
		}
		if err := p.notify.Processed(ctx, ev); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish MediaProcessed (non-fatal)")
		}
	}
	metrics.MediaProcessed(string(res.Kind), job.MediaID, time.Since(start), size)
	logger.Info().Str("thumbnailKey", res.ThumbnailKey).Dur("duration", time.Since(start)).Msg("Media ready")
	return nil
}

func (p *Processor) run(ctx context.Context, job media.Job) (transform.Result, int64, error) {
	if err := p.status.MarkProcessing(ctx, job.MediaID); err != nil {
		return transform.Result{}, 0, fmt.Errorf("mark processing: %w", err)
	}

	if err := p.originals.TagObject(ctx, job.S3Key); err != nil {
		log.Warn().Err(err).Str("key", job.S3Key).Msg("Failed to tag uploaded object (non-fatal)")
	}

	obj, err := p.fetch(ctx, job)
	if err != nil {
		return transform.Result{}, 0, fmt.Errorf("fetch original: %w", err)
	}

	res, err := p.transform.Run(ctx, transform.Source{
		Key:          job.S3Key,
		DeclaredType: job.FileType,
		ContentType:  obj.ContentType,
		Size:         obj.Size,
		Body:         obj.Body,
	})
	if err != nil {
		return transform.Result{}, obj.Size, fmt.Errorf("transform: %w", err)
	}

	if err := p.status.Complete(ctx, job.MediaID, res.Metadata, res.ThumbnailKey); err != nil {
		return transform.Result{}, obj.Size, fmt.Errorf("complete: %w", err)
	}

	if err := p.invalidate(ctx, job); err != nil {
		return transform.Result{}, obj.Size, fmt.Errorf("invalidate listings: %w", err)
	}
	return res, obj.Size, nil
}

// fetch reads image bodies under the byte cap. Video and pass-through
// transforms never look at the bytes, so only object metadata is read.
func (p *Processor) fetch(ctx context.Context, job media.Job) (*s3util.Object, error) {
	if media.KindOf(job.FileType) == media.KindImage {
		return p.originals.Get(ctx, job.S3Key, p.maxImageBytes)
	}
	return p.originals.Stat(ctx, job.S3Key)
}

func (p *Processor) invalidate(ctx context.Context, job media.Job) error {
	if _, err := p.cache.InvalidateUser(ctx, job.UserID); err != nil {
		return err
	}
	recipients, err := p.status.ShareRecipients(ctx, job.MediaID)
	if err != nil {
		return fmt.Errorf("share recipients: %w", err)
	}
	return p.cache.InvalidateShared(ctx, recipients)
}

// fail records the failure on a context detached from the job deadline, so
// a timed-out job can still be marked.
func (p *Processor) fail(parent context.Context, job media.Job, kind media.Kind, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), markFailedTimeout)
	defer cancel()

	if err := p.status.MarkFailed(ctx, job.MediaID, cause.Error()); err != nil {
		log.Error().Err(err).Str("mediaId", job.MediaID).Msg("Failed to mark media failed")
	}
	if p.notify != nil {
		ev := events.MediaEvent{
			MediaID: job.MediaID,
			UserID:  job.UserID,
			S3Key:   job.S3Key,
			Kind:    kind,
			Error:   cause.Error(),
		}
		if err := p.notify.Failed(ctx, ev); err != nil {
			log.Warn().Err(err).Str("mediaId", job.MediaID).Msg("Failed to publish MediaFailed (non-fatal)")
		}
	}
}

// BatchResult is the outcome of one delivered batch.
type BatchResult struct {
	Processed int
	// Failed holds the message ids to redeliver, in delivery order.
	Failed []string
}

// HandleBatch processes every message independently. A malformed message
// fails only itself.
func (p *Processor) HandleBatch(ctx context.Context, msgs []queue.Message) BatchResult {
	failed := make([]bool, len(msgs))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(p.parallelism)
	for i, msg := range msgs {
		i, msg := i, msg
		g.Go(func() error {
			if err := p.handleMessage(ctx, msg); err != nil {
				mu.Lock()
				failed[i] = true
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var res BatchResult
	for i, f := range failed {
		if f {
			res.Failed = append(res.Failed, msgs[i].ID)
		} else {
			res.Processed++
		}
	}
	metrics.Batch(len(msgs), len(res.Failed))
	log.Info().Int("size", len(msgs)).Int("processed", res.Processed).Int("failed", len(res.Failed)).Msg("Batch complete")
	return res
}

func (p *Processor) handleMessage(ctx context.Context, msg queue.Message) error {
	job, err := ParseJob(msg.Body)
	if err != nil {
		metrics.MediaFailed("unknown", "", 0)
		log.Error().Err(err).Str("messageId", msg.ID).Int("receiveCount", msg.ReceiveCount).Msg("Rejecting malformed job")
		return err
	}
	if msg.ReceiveCount > 1 {
		log.Warn().Str("messageId", msg.ID).Str("mediaId", job.MediaID).Int("receiveCount", msg.ReceiveCount).Msg("Redelivered job")
	}
	return p.Process(ctx, job)
}

// BatchHandler adapts the Processor to the long-poll consumer.
func (p *Processor) BatchHandler() queue.BatchHandler {
	return func(ctx context.Context, msgs []queue.Message) []string {
		return p.HandleBatch(ctx, msgs).Failed
	}
}
