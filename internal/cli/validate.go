package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/edp-labs/extract-go/internal/config"
	platformstore "github.com/edp-labs/extract-go/internal/platform/objectstore"
	"github.com/edp-labs/extract-go/internal/storage/objectstore"
	"github.com/spf13/cobra"
)

func NewValidateCmd(logger *slog.Logger) *cobra.Command {
	var configRef string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the job document and print resolved per-table settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var store objectstore.Store
			if strings.HasPrefix(configRef, "s3://") {
				storeCfg, err := platformstore.ConfigFromEnv()
				if err != nil {
					return fmt.Errorf("object store config: %w", err)
				}
				s, err := objectstore.NewMinioStore(storeCfg)
				if err != nil {
					return fmt.Errorf("object store client: %w", err)
				}
				store = s
			}

			spec, err := config.Load(cmd.Context(), store, configRef)
			if err != nil {
				return err
			}

			for _, table := range spec.Tables {
				eff := table.Effective(spec.Settings)
				fmt.Printf("%s -> s3://%s/%s (%s) batch_size=%d timeout=%s retry_attempts=%d\n",
					table.Name, table.Output.Bucket, table.Output.Prefix, table.Output.Format,
					eff.BatchSize, eff.Timeout, eff.RetryAttempts)
			}
			logger.Info("job document valid", "tables", len(spec.Tables), "workers", spec.Settings.Workers)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configRef, "config", "c", "configs/tables.yaml",
		"Job document: local path or s3://bucket/key")
	return cmd
}
