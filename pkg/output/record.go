// Package output provides JSONL output for listings and URL results.
//
// Output is structured as typed record envelopes containing entries,
// errors, URLs and summaries. Each line is a self-contained JSON
// object that can be parsed independently.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/3leaps/nimbusfs/pkg/adapter"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: nimbusfs.<type>.v<version>
const (
	// TypeEntry identifies file and directory listing records.
	TypeEntry = "nimbusfs.entry.v1"

	// TypeError identifies error records.
	TypeError = "nimbusfs.error.v1"

	// TypeURL identifies public or signed URL records.
	TypeURL = "nimbusfs.url.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "nimbusfs.summary.v1"
)

// Entry kinds.
const (
	KindFile      = "file"
	KindDirectory = "dir"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "nimbusfs.entry.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created.
	TS time.Time `json:"ts"`

	// RunID correlates every record written by one command.
	RunID string `json:"run_id"`

	// Bucket is the bucket the adapter is bound to.
	Bucket string `json:"bucket"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// NewRunID returns a fresh correlation id.
func NewRunID() string {
	return uuid.New().String()
}

// EntryRecord is the data payload for listing entries. Paths are relative
// to the adapter root.
type EntryRecord struct {
	Path         string         `json:"path"`
	Kind         string         `json:"kind"`
	Size         *int64         `json:"size,omitempty"`
	LastModified *time.Time     `json:"last_modified,omitempty"`
	MimeType     string         `json:"mime_type,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// NewEntryRecord converts adapter attributes to an entry payload.
func NewEntryRecord(attrs adapter.Attributes) *EntryRecord {
	switch a := attrs.(type) {
	case *adapter.FileAttributes:
		rec := &EntryRecord{
			Path:     a.Path,
			Kind:     KindFile,
			Size:     a.Size,
			MimeType: a.MimeType,
			Extra:    a.Extra,
		}
		if a.LastModified != nil {
			ts := time.Unix(*a.LastModified, 0).UTC()
			rec.LastModified = &ts
		}
		return rec
	default:
		return &EntryRecord{Path: attrs.EntryPath(), Kind: KindDirectory}
	}
}

// ErrorRecord is the data payload for errors.
//
// Listing errors are emitted as records rather than failing silently,
// so consumers can tell a partial listing from a complete one.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Path is the adapter path related to this error, if applicable.
	Path string `json:"path,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeAccessDenied    = "ACCESS_DENIED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnavailable     = "UNAVAILABLE"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeInternal        = "INTERNAL"
)

// NewErrorRecord classifies err by its adapter error kind.
func NewErrorRecord(path string, err error) *ErrorRecord {
	return &ErrorRecord{Code: ErrorCode(err), Message: err.Error(), Path: path}
}

// ErrorCode maps an adapter error to an ErrorRecord code.
func ErrorCode(err error) string {
	switch {
	case adapter.IsNotFound(err):
		return ErrCodeNotFound
	case adapter.IsAccessDenied(err):
		return ErrCodeAccessDenied
	case adapter.IsInvalidArgument(err):
		return ErrCodeInvalidArgument
	case adapter.IsUnavailable(err):
		return ErrCodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	default:
		return ErrCodeInternal
	}
}

// URLRecord is the data payload for public, signed and temporary URLs.
type URLRecord struct {
	Path      string     `json:"path"`
	Kind      string     `json:"kind"`
	URL       string     `json:"url"`
	Method    string     `json:"method,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// SummaryRecord is the data payload for final listing summaries.
type SummaryRecord struct {
	// Files is the number of file entries written.
	Files int64 `json:"files"`

	// Directories is the number of directory entries written.
	Directories int64 `json:"directories"`

	// BytesTotal is the cumulative size of listed files in bytes.
	BytesTotal int64 `json:"bytes_total"`

	// Duration is the total listing duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`

	// Errors is the count of errors encountered.
	Errors int64 `json:"errors"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
