package cmd

import (
	"context"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/surrealdb/surreal-sync-go/internal/fullsync"
)

func newFullSyncCommand() *cobra.Command {
	var source string
	var syncConfigPath string

	command := &cobra.Command{
		Use:   "full-sync",
		Short: "Bulk-copy every table in the schema into the sink, bracketed by checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := LoadConfig(syncConfigPath)
			if err != nil {
				return err
			}
			cfg.Source.Kind = source

			schema, err := loadSchema(cfg)
			if err != nil {
				return err
			}

			src, closeSrc, err := fullSyncSource(ctx, cfg, schema)
			if err != nil {
				return err
			}
			defer closeSrc()

			sink := newSurrealClient(cfg, schema)

			var syncConfig *fullsync.SyncConfig
			if cfg.Source.Kind != sourceMQ && cfg.Source.Kind != sourceFiles {
				bootstrap, err := bootstrapper(ctx, cfg, schema)
				if err != nil {
					return err
				}
				store, err := openCheckpoints(cfg)
				if err != nil {
					return err
				}
				syncConfig = &fullsync.SyncConfig{Bootstrap: bootstrap, Checkpoints: store}
			}

			result, err := fullsync.RunFullSync(ctx, src, sink, fullsync.Options{
				BatchSize: cfg.Sync.BatchSize,
				DryRun:    cfg.Sync.DryRun,
			}, syncConfig)
			if err != nil {
				return errors.Annotate(err, "full-sync")
			}

			log.Info("full sync complete", zap.Uint64("total_rows", result.Total))
			for table, n := range result.PerTable {
				log.Info("table synced", zap.String("table", table), zap.Uint64("rows", n))
			}
			return nil
		},
	}

	command.Flags().StringVar(&source, "source", "", "source kind: mysql-audit | mongo-changestream | postgres-wal | files")
	command.Flags().StringVar(&syncConfigPath, "sync-config", "", "path to the TOML sync config")
	_ = command.MarkFlagRequired("source")
	_ = command.MarkFlagRequired("sync-config")

	return command
}
