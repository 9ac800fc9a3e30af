package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/3leaps/goferry/pkg/output"
	"github.com/3leaps/goferry/pkg/provider"
)

func TestClassifyErrCode(t *testing.T) {
	pe := func(sentinel error) error {
		return &provider.ProviderError{Op: "GetFile", Provider: provider.ProviderHDFS, Key: "/data/a", Err: sentinel}
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", pe(provider.ErrNotFound), output.ErrCodeNotFound},
		{"bucket not found", pe(provider.ErrBucketNotFound), output.ErrCodeNotFound},
		{"access denied", pe(provider.ErrAccessDenied), output.ErrCodeAccessDenied},
		{"invalid credentials", pe(provider.ErrInvalidCredentials), output.ErrCodeAccessDenied},
		{"throttled", pe(provider.ErrThrottled), output.ErrCodeThrottled},
		{"unavailable", pe(provider.ErrProviderUnavailable), output.ErrCodeProviderUnavailable},
		{"canceled", context.Canceled, output.ErrCodeTimeout},
		{"deadline", context.DeadlineExceeded, output.ErrCodeTimeout},
		{"unknown", io.ErrUnexpectedEOF, output.ErrCodeInternal},
		{"wrapped in stage error", &StageTransferError{Err: pe(provider.ErrNotFound)}, output.ErrCodeNotFound},
		{"wrapped in sink error", &SinkTransferError{Err: pe(provider.ErrThrottled)}, output.ErrCodeThrottled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyErrCode(tt.err))
		})
	}
}

func TestEnumerationError(t *testing.T) {
	empty := &EnumerationError{Root: "/data"}
	assert.ErrorIs(t, empty, ErrNothingToTransfer)
	assert.Contains(t, empty.Error(), "/data")
	assert.True(t, IsFatal(empty))

	listErr := &EnumerationError{Root: "/data", Err: provider.ErrAccessDenied}
	assert.ErrorIs(t, listErr, provider.ErrAccessDenied)
	assert.NotErrorIs(t, listErr, ErrNothingToTransfer)
	assert.True(t, IsFatal(fmt.Errorf("plan: %w", listErr)))
}

func TestPreconditionError(t *testing.T) {
	err := &PreconditionError{Dest: "backup/2024", Existing: 2}
	assert.ErrorIs(t, err, ErrDestinationNotEmpty)
	assert.Contains(t, err.Error(), "backup/2024")
	assert.Contains(t, err.Error(), "2 existing")
	assert.True(t, IsFatal(err))
}

func TestItemErrors_NotFatal(t *testing.T) {
	item := TransferItem{SourcePath: "/data/a", StagingPath: "/tmp/cache/data/a", DestPath: "backup/a"}

	stageErr := &StageTransferError{Item: item, Err: provider.ErrNotFound}
	assert.False(t, IsFatal(stageErr))
	assert.ErrorIs(t, stageErr, provider.ErrNotFound)
	assert.Contains(t, stageErr.Error(), "/data/a --> /tmp/cache/data/a")

	sinkErr := &SinkTransferError{Item: item, Err: provider.ErrThrottled}
	assert.False(t, IsFatal(sinkErr))
	assert.Contains(t, sinkErr.Error(), "/tmp/cache/data/a --> backup/a")

	direct := &SinkTransferError{Item: TransferItem{SourcePath: "/data/a", DestPath: "backup/a"}, Err: errors.New("boom")}
	assert.Contains(t, direct.Error(), "/data/a --> backup/a")

	ioErr := &LocalIOError{Op: "evict", Path: "/tmp/cache/data/a", Err: errors.New("busy")}
	assert.False(t, IsFatal(ioErr))
	assert.Equal(t, "staging evict /tmp/cache/data/a: busy", ioErr.Error())
}
