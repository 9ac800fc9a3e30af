package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FileFunc copies one file from src to dst.
type FileFunc func(ctx context.Context, src, dst string) error

// Sequential is the single-stage engine: one loop, one primitive per item,
// no staging.
type Sequential struct {
	copy      FileFunc
	reporter  *Reporter
	sessionID string
}

// NewSequential wires a sequential engine around copyFn. A nil reporter
// discards all events.
func NewSequential(copyFn FileFunc, reporter *Reporter, sessionID string) *Sequential {
	if reporter == nil {
		reporter = NewReporter(ReporterOptions{})
	}
	return &Sequential{copy: copyFn, reporter: reporter, sessionID: sessionID}
}

// Run copies every item of plan in order. Progress is estimated from item
// counts because files are not sized up front on every backend.
//
// The error is non-nil only when ctx ended the run early.
func (q *Sequential) Run(ctx context.Context, plan *Plan) (*Summary, error) {
	id := q.sessionID
	if id == "" {
		id = uuid.NewString()
	}
	s := newSession(id, plan)
	q.reporter.begin(s)

	var runErr error
	for idx, it := range plan.Items {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		start := time.Now()
		if err := q.copy(ctx, it.SourcePath, it.DestPath); err != nil {
			if cerr := ctx.Err(); cerr != nil {
				runErr = cerr
				break
			}
			s.complete(it, true)
			q.reporter.transferFailed(ctx, s, idx, &SinkTransferError{Item: it, Err: err}, time.Since(start))
		} else {
			s.complete(it, false)
			q.reporter.transferred(ctx, s, idx, time.Since(start))
		}
		q.reporter.itemProgress(ctx, s)
	}

	sum := s.summary(runErr != nil)
	q.reporter.finish(ctx, s, sum)
	return sum, runErr
}
