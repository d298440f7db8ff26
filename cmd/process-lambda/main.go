// Package main is the processing worker Lambda.
//
// Triggered by the job queue's event source mapping. Each invocation carries
// up to MEDIA_QUEUE_MAX_MESSAGES jobs; every job is processed on its own and
// failed message ids are returned as batchItemFailures, so SQS redelivers
// only those. The event source mapping must enable ReportBatchItemFailures.
//
// Memory: 1 GB
// Timeout: 6 minutes (above MEDIA_WORKER_JOB_TIMEOUT)
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/devstream-shilpa/Media-Platform/internal/boot"
	"github.com/devstream-shilpa/Media-Platform/internal/config"
	"github.com/devstream-shilpa/Media-Platform/internal/logging"
)

var coldStart = true

var (
	worker       *boot.Worker
	partialBatch bool
)

// setup runs once per cold start, before the first invocation.
func setup() {
	cfg, err := config.Load()
	if err != nil {
		logging.InitFromEnv()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	worker = boot.NewWorker(context.Background(), "process-lambda", cfg, false)
	partialBatch = cfg.Worker.PartialBatch
	worker.Startup.CommitHash(commitHash).BuildTime(buildTime).Log()
}

func main() {
	setup()
	lambda.Start(handler)
}

func handler(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "process-lambda").Msg("Cold start, first invocation")
	}
	start := time.Now()
	resp, err := handleEvent(ctx, worker.Processor, partialBatch, ev)
	log.Debug().Int("records", len(ev.Records)).Dur("duration", time.Since(start)).Msg("Invocation complete")
	return resp, err
}
