package cmd

import (
	"fmt"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/surrealdb/surreal-sync-go/internal/verify"
)

func newVerifyCommand() *cobra.Command {
	var source string
	var syncConfigPath string
	var table string
	var count uint64
	var start uint64
	var seed uint64

	command := &cobra.Command{
		Use:   "verify",
		Short: "Replay the deterministic row generator against the sink and report mismatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(syncConfigPath)
			if err != nil {
				return err
			}
			cfg.Source.Kind = source

			schema, err := loadSchema(cfg)
			if err != nil {
				return err
			}

			sink := newSurrealClient(cfg, schema)

			v, err := verify.NewVerifier(sink, schema, seed, table)
			if err != nil {
				return err
			}

			report, err := v.VerifyRange(cmd.Context(), start, count)
			if err != nil {
				return errors.Annotate(err, "verify")
			}

			log.Info("verification complete",
				zap.Uint64("expected", report.Expected),
				zap.Uint64("found", report.Found),
				zap.Uint64("matched", report.Matched),
				zap.Uint64("missing", report.Missing),
				zap.Uint64("mismatched", report.Mismatched))

			if !report.OK() {
				for _, m := range report.MissingRows {
					fmt.Printf("missing: %s (index %d)\n", m.RecordID, m.Index)
				}
				for _, m := range report.MismatchedRows {
					fmt.Printf("mismatched: %s (index %d)\n", m.RecordID, m.Index)
					for _, f := range m.Fields {
						fmt.Printf("  %s: expected %s, got %s\n", f.Field, f.Expected, f.Actual)
					}
				}
				return &mismatchError{report: fmt.Sprintf("%d missing, %d mismatched of %d expected", report.Missing, report.Mismatched, report.Expected)}
			}
			return nil
		},
	}

	command.Flags().StringVar(&source, "source", "", "source kind, for Config's benefit (verify itself only talks to the sink)")
	command.Flags().StringVar(&syncConfigPath, "sync-config", "", "path to the TOML sync config")
	command.Flags().StringVar(&table, "table", "", "table to verify")
	command.Flags().Uint64Var(&count, "count", 0, "number of rows to verify")
	command.Flags().Uint64Var(&start, "start", 0, "row index to start from")
	command.Flags().Uint64Var(&seed, "seed", 0, "generator seed the fixture rows were produced with")
	_ = command.MarkFlagRequired("sync-config")
	_ = command.MarkFlagRequired("table")
	_ = command.MarkFlagRequired("count")

	return command
}
