package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edp-labs/extract-go/internal/config"
	"github.com/edp-labs/extract-go/internal/domain"
	"github.com/edp-labs/extract-go/internal/extract"
	"github.com/edp-labs/extract-go/internal/platform/dbconn"
	platformstore "github.com/edp-labs/extract-go/internal/platform/objectstore"
	"github.com/edp-labs/extract-go/internal/storage/objectstore"
	"github.com/spf13/cobra"
)

type RunOptions struct {
	Config        string
	ReportBucket  string
	ReportKey     string
	EnsureBuckets bool
}

func NewRunCmd(logger *slog.Logger) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the extraction job once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd.Context(), logger, opts)
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "configs/tables.yaml",
		"Job document: local path or s3://bucket/key")
	cmd.Flags().StringVar(&opts.ReportBucket, "report-bucket", "",
		"Bucket for the uploaded job report (defaults to the first table's bucket)")
	cmd.Flags().StringVar(&opts.ReportKey, "report-key", "",
		"Object key for the job report; empty disables the upload")
	cmd.Flags().BoolVar(&opts.EnsureBuckets, "ensure-buckets", false,
		"Create missing destination buckets before extracting")
}

func runJob(ctx context.Context, logger *slog.Logger, opts *RunOptions) error {
	storeCfg, err := platformstore.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("object store config: %w", err)
	}
	client, err := platformstore.NewMinIOClient(storeCfg)
	if err != nil {
		return fmt.Errorf("object store client: %w", err)
	}
	store, err := objectstore.NewMinioStoreWithClient(client)
	if err != nil {
		return err
	}

	spec, err := config.Load(ctx, store, opts.Config)
	if err != nil {
		return err
	}

	db, err := openSource(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if opts.EnsureBuckets {
		if err := platformstore.EnsureBuckets(ctx, client, storeCfg.Region, outputBuckets(spec)); err != nil {
			return err
		}
	}

	report := extract.NewOrchestrator(logger, db, store).Run(ctx, spec)

	payload, err := extract.RenderReport(report)
	if err != nil {
		return err
	}
	fmt.Println(string(payload))

	if opts.ReportKey != "" {
		bucket := opts.ReportBucket
		if bucket == "" {
			bucket = spec.Tables[0].Output.Bucket
		}
		if err := extract.UploadReport(ctx, store, bucket, opts.ReportKey, report); err != nil {
			return err
		}
		logger.Info("report uploaded", "bucket", bucket, "key", opts.ReportKey)
	}
	return nil
}

func openSource(ctx context.Context) (*sql.DB, error) {
	dbCfg, err := dbconn.ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("source config: %w", err)
	}
	db, err := dbconn.Open(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("source unavailable: %w", err)
	}
	return db, nil
}

func outputBuckets(spec domain.JobSpec) []string {
	seen := make(map[string]struct{}, len(spec.Tables))
	var buckets []string
	for _, table := range spec.Tables {
		name := strings.TrimSpace(table.Output.Bucket)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		buckets = append(buckets, name)
	}
	return buckets
}
