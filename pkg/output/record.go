// Package output provides the JSONL event stream for transfer runs.
//
// Each line is a self-contained record envelope carrying a typed payload:
// one record per transferred or failed file, periodic progress records and a
// final summary. The stream is meant for machines; the human-facing logs live
// in internal/observability.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: goferry.<type>.v<version>
const (
	// TypeTransfer identifies a successfully transferred file.
	TypeTransfer = "goferry.transfer.v1"

	// TypeFailure identifies a file that failed terminally.
	TypeFailure = "goferry.failure.v1"

	// TypeProgress identifies progress update records.
	TypeProgress = "goferry.progress.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "goferry.summary.v1"

	// TypePlan identifies plan preview records.
	TypePlan = "goferry.plan.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "goferry.transfer.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// SessionID correlates every record of one transfer invocation.
	SessionID string `json:"session_id"`

	// Route names the backends involved (e.g., "hdfs->s3").
	Route string `json:"route"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// TransferRecord is the data payload for one transferred file.
type TransferRecord struct {
	Source  string `json:"source"`
	Staging string `json:"staging,omitempty"`
	Dest    string `json:"dest"`
	Bytes   int64  `json:"bytes"`
}

// FailureRecord is the data payload for a file that failed terminally.
//
// The staging copy of a file that failed on upload is left on disk, so
// Staging doubles as the location to inspect.
type FailureRecord struct {
	Source  string `json:"source"`
	Staging string `json:"staging,omitempty"`
	Dest    string `json:"dest"`
	Bytes   int64  `json:"bytes"`

	// Stage is the step that failed: "download", "upload" or "transfer".
	Stage string `json:"stage"`

	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is the error text.
	Message string `json:"message"`
}

// Failure stages.
const (
	StageDownload = "download"
	StageUpload   = "upload"
	StageTransfer = "transfer"
)

// Error codes for FailureRecord.
const (
	// ErrCodeAccessDenied indicates permission failure.
	ErrCodeAccessDenied = "ACCESS_DENIED"

	// ErrCodeNotFound indicates the object or path was not found.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeTimeout indicates an operation timed out or was cancelled.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeThrottled indicates rate limiting.
	ErrCodeThrottled = "THROTTLED"

	// ErrCodeProviderUnavailable indicates the backend could not be reached.
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// ProgressRecord is the data payload for progress updates.
type ProgressRecord struct {
	ItemsDone   int64   `json:"items_done"`
	ItemsTotal  int64   `json:"items_total"`
	BytesDone   int64   `json:"bytes_done,omitempty"`
	BytesTotal  int64   `json:"bytes_total,omitempty"`
	Failures    int64   `json:"failures"`
	Percent     float64 `json:"percent"`
	ElapsedSecs float64 `json:"elapsed_secs"`

	// ETASecs is the estimated remaining time. Absent until the first item
	// finishes.
	ETASecs *float64 `json:"eta_secs,omitempty"`
}

// SummaryRecord is the data payload for the final summary.
type SummaryRecord struct {
	Source     string `json:"source"`
	Dest       string `json:"dest"`
	ItemsTotal int64  `json:"items_total"`
	Failures   int64  `json:"failures"`
	BytesTotal int64  `json:"bytes_total"`
	BytesDone  int64  `json:"bytes_done"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`

	// Cancelled is set when the run stopped before every item was attempted.
	Cancelled bool `json:"cancelled,omitempty"`
}

// PlanRecord is the data payload for one planned item in a preview.
type PlanRecord struct {
	Source  string `json:"source"`
	Staging string `json:"staging,omitempty"`
	Dest    string `json:"dest"`
	Bytes   int64  `json:"bytes"`
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
