package main

import (
	"github.com/spf13/cobra"

	"github.com/devstream-shilpa/Media-Platform/internal/boot"
	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

var job media.Job

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one media record synchronously",
	Long: `process runs the pipeline for a single job without the queue. Useful for
reprocessing a failed record by hand or debugging a transform.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := job.Validate(); err != nil {
			return err
		}
		w := boot.NewWorker(cmd.Context(), "mediactl process", cfg, false)
		defer w.Close()
		return w.Processor.Process(cmd.Context(), job)
	},
}

func init() {
	processCmd.Flags().StringVar(&job.MediaID, "media-id", "", "media record id")
	processCmd.Flags().StringVar(&job.UserID, "user-id", "", "owner user id")
	processCmd.Flags().StringVar(&job.S3Key, "key", "", "object key of the original")
	processCmd.Flags().StringVar(&job.FileType, "type", "", "declared content type")
}
