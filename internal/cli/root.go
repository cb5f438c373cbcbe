// Package cli wires the extraction job behind a small command tree. The
// job itself is trigger-agnostic; these commands are the manual and
// scheduled invocation surfaces.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func NewRootCmd(logger *slog.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "extract",
		Short: "extract - declarative multi-table extraction to object storage",
		Long: `extract runs a declarative list of SQL queries against a relational
source and lands the results in S3-compatible object storage as CSV or
parquet, with bounded per-table retries and deadlines.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(
		NewRunCmd(logger),
		NewValidateCmd(logger),
		NewScheduleCmd(logger),
		NewVersionCmd(),
	)
	return rootCmd
}
