package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer outputs JSONL records for a transfer run.
//
// Implementations must be safe for concurrent use: the stage and sink
// workers write from separate goroutines.
type Writer interface {
	// WriteTransfer emits a record for a file that reached its destination.
	WriteTransfer(ctx context.Context, rec *TransferRecord) error

	// WriteFailure emits a record for a file that failed terminally.
	WriteFailure(ctx context.Context, rec *FailureRecord) error

	// WriteProgress emits a progress record.
	WriteProgress(ctx context.Context, rec *ProgressRecord) error

	// WriteSummary emits the final summary record.
	WriteSummary(ctx context.Context, rec *SummaryRecord) error

	// WritePlan emits one planned item of a preview.
	WritePlan(ctx context.Context, rec *PlanRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// Writes are serialized with a mutex so lines never interleave.
type JSONLWriter struct {
	w         io.Writer
	sessionID string
	route     string
	mu        sync.Mutex

	// closed indicates the writer has been closed.
	closed bool
}

// NewJSONLWriter creates a new JSONL writer.
//
// Parameters:
//   - w: The underlying writer (stdout, file, etc.)
//   - sessionID: Correlation ID for this transfer invocation
//   - route: Backends involved, e.g. "hdfs->s3"
func NewJSONLWriter(w io.Writer, sessionID, route string) *JSONLWriter {
	return &JSONLWriter{
		w:         w,
		sessionID: sessionID,
		route:     route,
	}
}

// WriteTransfer emits a transfer record.
func (jw *JSONLWriter) WriteTransfer(ctx context.Context, rec *TransferRecord) error {
	return jw.writeRecord(ctx, TypeTransfer, rec)
}

// WriteFailure emits a failure record.
func (jw *JSONLWriter) WriteFailure(ctx context.Context, rec *FailureRecord) error {
	return jw.writeRecord(ctx, TypeFailure, rec)
}

// WriteProgress emits a progress record.
func (jw *JSONLWriter) WriteProgress(ctx context.Context, rec *ProgressRecord) error {
	return jw.writeRecord(ctx, TypeProgress, rec)
}

// WriteSummary emits a summary record.
func (jw *JSONLWriter) WriteSummary(ctx context.Context, rec *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, rec)
}

// WritePlan emits a plan record.
func (jw *JSONLWriter) WritePlan(ctx context.Context, rec *PlanRecord) error {
	return jw.writeRecord(ctx, TypePlan, rec)
}

// Close marks the writer as closed.
//
// If the underlying writer implements io.Closer, it is NOT closed.
// The caller is responsible for closing the underlying writer.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line while holding
// the mutex.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Marshal the payload outside the lock.
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}

	record := Record{
		Type:      recordType,
		TS:        time.Now().UTC(),
		SessionID: jw.sessionID,
		Route:     jw.route,
		Data:      dataBytes,
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	// io.Writer may report a short write with a nil error; a truncated line
	// would corrupt the stream.
	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}

	return nil
}

// writeAll writes all bytes to w, handling short writes.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// Discard is a Writer that drops every record. Used when no --output is
// requested.
var Discard Writer = discard{}

type discard struct{}

func (discard) WriteTransfer(context.Context, *TransferRecord) error { return nil }
func (discard) WriteFailure(context.Context, *FailureRecord) error   { return nil }
func (discard) WriteProgress(context.Context, *ProgressRecord) error { return nil }
func (discard) WriteSummary(context.Context, *SummaryRecord) error   { return nil }
func (discard) WritePlan(context.Context, *PlanRecord) error         { return nil }
func (discard) Close() error                                         { return nil }

// Compile-time check that JSONLWriter implements Writer.
var _ Writer = (*JSONLWriter)(nil)
