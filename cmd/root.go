// Package cmd is the one-shot CLI of spec.md §6: full-sync,
// incremental, and verify, dispatched by --source kind over a TOML
// sync config. Grounded on cmd/client.go's newXCommand() →
// rootCmd.AddCommand registration idiom, trimmed of the teacher's
// etcd/PD cluster-management surface - this tool runs one operation
// and exits, it is not an interactive shell.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/surrealdb/surreal-sync-go/pkg/util"
)

var logConfig util.Config

var rootCmd = &cobra.Command{
	Use:   "surreal-sync",
	Short: "Sync heterogeneous sources into SurrealDB",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logConfig.Adjust()
		return util.InitLogger(&logConfig)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logConfig.Level, "log-level", "info", "log level (debug/info/warning/error)")
	rootCmd.PersistentFlags().StringVar(&logConfig.File, "log-file", "", "log output file (default stderr)")

	rootCmd.AddCommand(newFullSyncCommand())
	rootCmd.AddCommand(newIncrementalCommand())
	rootCmd.AddCommand(newVerifyCommand())
}

// Execute runs the CLI and returns the process exit code of spec.md
// §6: 0 success; 1 fatal decode/encode error; 2 connection failure; 3
// cursor corruption; 4 verification found mismatches.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return 0
}
