// Package config loads the declarative job document and turns it into a
// validated domain.JobSpec. Validation is eager: a malformed document is
// rejected in full before any table runs.
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/edp-labs/extract-go/internal/domain"
	"github.com/edp-labs/extract-go/internal/storage/objectstore"
	"gopkg.in/yaml.v3"
)

// Document mirrors the wire format of the job description. Field names
// are a frozen external interface shared with config producers.
type Document struct {
	Tables   []TableDocument  `yaml:"tables"`
	Settings SettingsDocument `yaml:"settings"`
}

type TableDocument struct {
	Name   string         `yaml:"name"`
	Query  string         `yaml:"query"`
	Output OutputDocument `yaml:"output"`

	// Optional per-table overrides of the job-level settings.
	BatchSize     *int `yaml:"batch_size,omitempty"`
	Timeout       *int `yaml:"timeout,omitempty"`
	RetryAttempts *int `yaml:"retry_attempts,omitempty"`
}

type OutputDocument struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Format string `yaml:"format"`
}

type SettingsDocument struct {
	BatchSize     int              `yaml:"batch_size"`
	Timeout       int              `yaml:"timeout"` // seconds
	RetryAttempts int              `yaml:"retry_attempts"`
	Workers       int              `yaml:"workers,omitempty"`
	Backoff       *BackoffDocument `yaml:"backoff,omitempty"`
}

type BackoffDocument struct {
	InitialDelay string  `yaml:"initial_delay,omitempty"`
	Multiplier   float64 `yaml:"multiplier,omitempty"`
	MaxDelay     string  `yaml:"max_delay,omitempty"`
}

const (
	defaultWorkers         = 1
	defaultInitialDelay    = time.Second
	defaultBackoffMultiple = 2.0
	defaultMaxDelay        = 30 * time.Second
)

// Load reads the job document from a local path or, for s3:// references,
// from object storage, and parses it. The original deployment kept its
// table config next to the data, so both forms are first-class.
func Load(ctx context.Context, store objectstore.Store, ref string) (domain.JobSpec, error) {
	raw, err := read(ctx, store, ref)
	if err != nil {
		return domain.JobSpec{}, err
	}
	return Parse(raw)
}

func read(ctx context.Context, store objectstore.Store, ref string) ([]byte, error) {
	if bucket, key, ok := splitObjectRef(ref); ok {
		if store == nil {
			return nil, fmt.Errorf("read config %s: no object store configured", ref)
		}
		body, _, err := store.Get(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", ref, err)
		}
		defer func() { _ = body.Close() }()
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", ref, err)
		}
		return raw, nil
	}

	raw, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", ref, err)
	}
	return raw, nil
}

func splitObjectRef(ref string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(ref, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Parse decodes and validates a job document.
func Parse(raw []byte) (domain.JobSpec, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return domain.JobSpec{}, &domain.ConfigError{Field: "document", Reason: err.Error()}
	}
	return doc.ToJobSpec()
}

// ToJobSpec validates the document and builds the immutable JobSpec.
func (d Document) ToJobSpec() (domain.JobSpec, error) {
	settings, err := d.Settings.toSettings()
	if err != nil {
		return domain.JobSpec{}, err
	}

	if len(d.Tables) == 0 {
		return domain.JobSpec{}, &domain.ConfigError{Field: "tables", Reason: "must list at least one table"}
	}

	tables := make([]domain.TableSpec, 0, len(d.Tables))
	seen := make(map[string]struct{}, len(d.Tables))
	for i, td := range d.Tables {
		table, err := td.toTableSpec(i)
		if err != nil {
			return domain.JobSpec{}, err
		}
		if _, dup := seen[table.Name]; dup {
			return domain.JobSpec{}, &domain.ConfigError{
				Field:  fmt.Sprintf("tables[%d].name", i),
				Reason: fmt.Sprintf("duplicate table name %q", table.Name),
			}
		}
		seen[table.Name] = struct{}{}
		tables = append(tables, table)
	}

	return domain.JobSpec{Tables: tables, Settings: settings}, nil
}

func (td TableDocument) toTableSpec(i int) (domain.TableSpec, error) {
	field := func(name string) string { return fmt.Sprintf("tables[%d].%s", i, name) }

	if strings.TrimSpace(td.Name) == "" {
		return domain.TableSpec{}, &domain.ConfigError{Field: field("name"), Reason: "is required"}
	}
	if strings.TrimSpace(td.Query) == "" {
		return domain.TableSpec{}, &domain.ConfigError{Field: field("query"), Reason: "is required"}
	}
	if strings.TrimSpace(td.Output.Bucket) == "" {
		return domain.TableSpec{}, &domain.ConfigError{Field: field("output.bucket"), Reason: "is required"}
	}
	prefix := strings.TrimSpace(td.Output.Prefix)
	if prefix == "" {
		return domain.TableSpec{}, &domain.ConfigError{Field: field("output.prefix"), Reason: "is required"}
	}
	if strings.HasPrefix(prefix, "/") {
		return domain.TableSpec{}, &domain.ConfigError{Field: field("output.prefix"), Reason: "must not start with /"}
	}
	format, err := domain.ParseFormat(td.Output.Format)
	if err != nil {
		return domain.TableSpec{}, &domain.ConfigError{Field: field("output.format"), Reason: err.Error()}
	}

	table := domain.TableSpec{
		Name:  td.Name,
		Query: td.Query,
		Output: domain.OutputSpec{
			Bucket: td.Output.Bucket,
			Prefix: strings.TrimSuffix(prefix, "/"),
			Format: format,
		},
	}

	if td.BatchSize != nil {
		if *td.BatchSize <= 0 {
			return domain.TableSpec{}, &domain.ConfigError{Field: field("batch_size"), Reason: "must be positive"}
		}
		table.BatchSize = td.BatchSize
	}
	if td.Timeout != nil {
		if *td.Timeout <= 0 {
			return domain.TableSpec{}, &domain.ConfigError{Field: field("timeout"), Reason: "must be positive"}
		}
		timeout := time.Duration(*td.Timeout) * time.Second
		table.Timeout = &timeout
	}
	if td.RetryAttempts != nil {
		if *td.RetryAttempts < 0 {
			return domain.TableSpec{}, &domain.ConfigError{Field: field("retry_attempts"), Reason: "must be >= 0"}
		}
		table.RetryAttempts = td.RetryAttempts
	}

	return table, nil
}

func (sd SettingsDocument) toSettings() (domain.Settings, error) {
	if sd.BatchSize <= 0 {
		return domain.Settings{}, &domain.ConfigError{Field: "settings.batch_size", Reason: "must be positive"}
	}
	if sd.Timeout <= 0 {
		return domain.Settings{}, &domain.ConfigError{Field: "settings.timeout", Reason: "must be positive"}
	}
	if sd.RetryAttempts < 0 {
		return domain.Settings{}, &domain.ConfigError{Field: "settings.retry_attempts", Reason: "must be >= 0"}
	}
	workers := sd.Workers
	if workers == 0 {
		workers = defaultWorkers
	}
	if workers < 0 {
		return domain.Settings{}, &domain.ConfigError{Field: "settings.workers", Reason: "must be positive"}
	}

	backoff := domain.Backoff{
		InitialDelay: defaultInitialDelay,
		Multiplier:   defaultBackoffMultiple,
		MaxDelay:     defaultMaxDelay,
	}
	if sd.Backoff != nil {
		b, err := sd.Backoff.toBackoff(backoff)
		if err != nil {
			return domain.Settings{}, err
		}
		backoff = b
	}

	return domain.Settings{
		BatchSize:     sd.BatchSize,
		Timeout:       time.Duration(sd.Timeout) * time.Second,
		RetryAttempts: sd.RetryAttempts,
		Workers:       workers,
		Backoff:       backoff,
	}, nil
}

func (bd BackoffDocument) toBackoff(def domain.Backoff) (domain.Backoff, error) {
	out := def
	if bd.InitialDelay != "" {
		d, err := time.ParseDuration(bd.InitialDelay)
		if err != nil || d <= 0 {
			return domain.Backoff{}, &domain.ConfigError{Field: "settings.backoff.initial_delay", Reason: "must be a positive duration"}
		}
		out.InitialDelay = d
	}
	if bd.Multiplier != 0 {
		if bd.Multiplier < 1 {
			return domain.Backoff{}, &domain.ConfigError{Field: "settings.backoff.multiplier", Reason: "must be >= 1"}
		}
		out.Multiplier = bd.Multiplier
	}
	if bd.MaxDelay != "" {
		d, err := time.ParseDuration(bd.MaxDelay)
		if err != nil || d <= 0 {
			return domain.Backoff{}, &domain.ConfigError{Field: "settings.backoff.max_delay", Reason: "must be a positive duration"}
		}
		out.MaxDelay = d
	}
	if out.MaxDelay < out.InitialDelay {
		return domain.Backoff{}, &domain.ConfigError{Field: "settings.backoff.max_delay", Reason: "must be >= initial_delay"}
	}
	return out, nil
}
