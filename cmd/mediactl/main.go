// Command mediactl runs the media platform outside Lambda: the API server,
// the long-poll worker, database migrations and one-off job processing.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/devstream-shilpa/Media-Platform/internal/config"
	"github.com/devstream-shilpa/Media-Platform/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mediactl",
	Short: "Run and operate the media platform",
	Long: `mediactl hosts the media platform's long-running processes.

Configuration comes from MEDIA_* environment variables and an optional .env
file in the working directory.

Examples:
  mediactl migrate up
  mediactl serve
  mediactl worker
  mediactl process --media-id 42 --user-id 7 --key uploads/7/1700000000-cat.jpg --type image/jpeg`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		c, err := config.Load()
		if err != nil {
			logging.InitFromEnv()
			return err
		}
		logging.Init(c.Log.Level, c.Log.Format)
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd, processCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("mediactl failed")
		os.Exit(1)
	}
}
