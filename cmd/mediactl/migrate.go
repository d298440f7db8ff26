package main

import (
	"github.com/spf13/cobra"

	"github.com/devstream-shilpa/Media-Platform/internal/boot"
	"github.com/devstream-shilpa/Media-Platform/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <command> [args]",
	Short: "Run goose migrations against the media database",
	Long: `migrate runs a goose command (up, down, status, version, redo, reset,
up-to N, down-to N) with the migrations embedded in the binary.`,
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: []string{"up", "down", "status", "version", "redo", "reset", "up-to", "down-to"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db := cfg.DB
		db.AutoMigrate = false
		pool, _ := boot.InitDB(ctx, boot.InitAWS(ctx), db)
		defer pool.Close()
		return store.Migrate(ctx, pool, args[0], args[1:]...)
	},
}
