package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/goferry/internal/config"
	"github.com/3leaps/goferry/pkg/manifest"
	"github.com/3leaps/goferry/pkg/provider"
	"github.com/3leaps/goferry/pkg/transfer"
)

// Process exit codes. Codes shared with other Fulmen tools come from the
// foundry catalog; the transfer-specific ones follow sysexits(3).
const (
	ExitSuccess                    = 0
	ExitFailure                    = 1
	ExitInvalidArgument            = foundry.ExitInvalidArgument
	ExitNothingToTransfer          = 65
	ExitFileNotFound               = foundry.ExitFileNotFound
	ExitDestinationNotEmpty        = 67
	ExitExternalServiceUnavailable = foundry.ExitExternalServiceUnavailable
	ExitFileWriteError             = foundry.ExitFileWriteError
	ExitFileReadError              = foundry.ExitFileReadError
	ExitConfigError                = 78
	ExitSignalInt                  = foundry.ExitSignalInt
)

// ExitError carries the exit code a failed command should end the process
// with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (exit code %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}

// planExit classifies a BuildPlan failure.
func planExit(err error) error {
	switch {
	case errors.Is(err, transfer.ErrNothingToTransfer):
		return exitError(ExitNothingToTransfer, "Nothing to transfer", err)
	case errors.Is(err, transfer.ErrDestinationNotEmpty):
		return exitError(ExitDestinationNotEmpty, "Destination is not empty", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return exitError(ExitSignalInt, "Planning cancelled", err)
	case provider.IsNotFound(err):
		return exitError(ExitFileNotFound, "Source not found", err)
	case transfer.IsFatal(err):
		return exitError(ExitExternalServiceUnavailable, "Failed to enumerate source", err)
	default:
		return exitError(ExitInvalidArgument, "Failed to build plan", err)
	}
}

// loadExit classifies a configuration or job file failure. Parse errors
// end with fallback.
func loadExit(message string, err error, fallback int) error {
	var cfgErr *config.ValidationError
	switch {
	case errors.As(err, &cfgErr):
		return exitError(ExitConfigError, message, err)
	case errors.Is(err, manifest.ErrValidationFailed):
		return exitError(ExitInvalidArgument, message, err)
	case errors.Is(err, fs.ErrNotExist):
		return exitError(ExitFileNotFound, message, err)
	case errors.Is(err, fs.ErrPermission):
		return exitError(ExitFileReadError, message, err)
	default:
		return exitError(fallback, message, err)
	}
}
