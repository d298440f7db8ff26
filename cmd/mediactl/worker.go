package main

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/devstream-shilpa/Media-Platform/internal/boot"
	"github.com/devstream-shilpa/Media-Platform/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Long-poll the job queue and process media",
	Long: `worker receives jobs from MEDIA_QUEUE_URL and processes them with the
same pipeline as the Lambda. Only successfully processed messages are
deleted; failures become visible again after the visibility timeout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w := boot.NewWorker(ctx, "mediactl worker", cfg, true)
		defer w.Close()
		w.Startup.CommitHash(commitHash).BuildTime(buildTime).Log()

		consumer := queue.NewConsumer(w.SQS, cfg.Queue.URL, w.Processor.BatchHandler(), queue.ConsumerOptions{
			WaitTime:          cfg.Queue.WaitTime,
			VisibilityTimeout: cfg.Queue.VisibilityTimeout,
			MaxMessages:       cfg.Queue.MaxMessages,
		})
		log.Info().Str("queue", cfg.Queue.URL).Msg("Worker polling")
		err := consumer.Run(ctx)
		log.Info().Msg("Worker stopped")
		return err
	},
}
