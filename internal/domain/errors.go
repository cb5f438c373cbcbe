package domain

import (
	"context"
	"errors"
	"fmt"
)

// ConfigError reports a malformed job document. It is job-level and fatal:
// a job that fails validation never starts extracting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// SourceQueryError covers connection loss, bad SQL and source-side
// timeouts. Transient: the supervisor restarts the table's pipeline.
type SourceQueryError struct {
	Table string
	Err   error
}

func (e *SourceQueryError) Error() string {
	return fmt.Sprintf("source query for table %q: %v", e.Table, e.Err)
}

func (e *SourceQueryError) Unwrap() error { return e.Err }

// SinkError covers faults persisting a chunk to object storage. Transient.
type SinkError struct {
	Key string
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink put %q: %v", e.Key, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// SchemaMismatchError reports a query result whose shape changed between
// chunks of one table. Fatal for the table: a data-shape defect does not
// heal on retry.
type SchemaMismatchError struct {
	Table  string
	Column string
	Want   string
	Got    string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in table %q column %q: expected %s, got %s",
		e.Table, e.Column, e.Want, e.Got)
}

// SerializationError reports a value the target format cannot represent.
// Fatal for the table.
type SerializationError struct {
	Table  string
	Column string
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize table %q column %q: %s", e.Table, e.Column, e.Reason)
}

// Transient reports whether err is worth a fresh attempt. Deadline
// expiration counts: the attempt was cancelled mid-flight, not rejected.
func Transient(err error) bool {
	var sourceErr *SourceQueryError
	var sinkErr *SinkError
	if errors.As(err, &sourceErr) || errors.As(err, &sinkErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
