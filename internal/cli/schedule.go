package cli

import (
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func NewScheduleCmd(logger *slog.Logger) *cobra.Command {
	opts := &RunOptions{}
	var cronExpr string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the extraction job on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cronExpr == "" {
				return errors.New("--cron is required")
			}
			ctx := cmd.Context()

			scheduler := cron.New()
			_, err := scheduler.AddFunc(cronExpr, func() {
				if err := runJob(ctx, logger, opts); err != nil {
					logger.Error("scheduled run failed", "error", err)
				}
			})
			if err != nil {
				return errors.Join(errors.New("invalid cron expression"), err)
			}

			logger.Info("scheduler started", "cron", cronExpr, "config", opts.Config)
			scheduler.Start()
			<-ctx.Done()

			// Let an in-flight run finish before exiting.
			stopCtx := scheduler.Stop()
			<-stopCtx.Done()
			logger.Info("scheduler stopped")
			return nil
		},
	}
	addRunFlags(cmd, opts)
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression, e.g. \"0 2 * * *\"")
	return cmd
}
