package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/3leaps/goferry/pkg/output"
	"github.com/3leaps/goferry/pkg/provider"
)

// Sentinel conditions behind the fatal error types.
var (
	// ErrNothingToTransfer means the source root holds no files.
	ErrNothingToTransfer = errors.New("nothing to transfer")

	// ErrDestinationNotEmpty means the destination already holds files.
	ErrDestinationNotEmpty = errors.New("destination not empty")
)

// EnumerationError reports that listing the source failed or found no
// files. It aborts the invocation before any worker starts.
type EnumerationError struct {
	Root string
	Err  error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumerate %s: %v", e.Root, e.Unwrap())
}

func (e *EnumerationError) Unwrap() error {
	if e.Err == nil {
		return ErrNothingToTransfer
	}
	return e.Err
}

// PreconditionError reports that the destination of a single-stage transfer
// already holds files. Nothing is transferred.
type PreconditionError struct {
	Dest     string
	Existing int
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("destination %s: %d existing file(s): %v", e.Dest, e.Existing, ErrDestinationNotEmpty)
}

func (e *PreconditionError) Unwrap() error { return ErrDestinationNotEmpty }

// StageTransferError is a failed download of one item into staging. The item
// is terminal and never reaches the sink.
type StageTransferError struct {
	Item TransferItem
	Err  error
}

func (e *StageTransferError) Error() string {
	return fmt.Sprintf("download %s --> %s: %v", e.Item.SourcePath, e.Item.StagingPath, e.Err)
}

func (e *StageTransferError) Unwrap() error { return e.Err }

// SinkTransferError is a failed upload of one staged item. The staging copy
// is kept.
type SinkTransferError struct {
	Item TransferItem
	Err  error
}

func (e *SinkTransferError) Error() string {
	src := e.Item.StagingPath
	if src == "" {
		src = e.Item.SourcePath
	}
	return fmt.Sprintf("upload %s --> %s: %v", src, e.Item.DestPath, e.Err)
}

func (e *SinkTransferError) Unwrap() error { return e.Err }

// LocalIOError is a best-effort staging directory operation that failed.
// It is logged as a warning and never aborts a run.
type LocalIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *LocalIOError) Error() string {
	return fmt.Sprintf("staging %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LocalIOError) Unwrap() error { return e.Err }

// IsFatal reports whether err aborted a run before any item was attempted.
func IsFatal(err error) bool {
	var enumErr *EnumerationError
	var preErr *PreconditionError
	return errors.As(err, &enumErr) || errors.As(err, &preErr)
}

func classifyErrCode(err error) string {
	switch {
	case provider.IsNotFound(err), provider.IsBucketNotFound(err):
		return output.ErrCodeNotFound
	case provider.IsAccessDenied(err), provider.IsInvalidCredentials(err):
		return output.ErrCodeAccessDenied
	case provider.IsThrottled(err):
		return output.ErrCodeThrottled
	case provider.IsProviderUnavailable(err):
		return output.ErrCodeProviderUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return output.ErrCodeTimeout
	default:
		return output.ErrCodeInternal
	}
}
