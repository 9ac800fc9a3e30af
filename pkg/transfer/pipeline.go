// Package transfer moves whole directory trees between storage backends.
//
// Two engines share one plan builder and one reporter:
//
//   - Pipeline stages every file through a local disk buffer. A stage worker
//     downloads files in plan order and hands them over a bounded queue to a
//     sink worker that uploads them and evicts the staged copy.
//   - Sequential copies each file directly with a single primitive, one at
//     a time, and refuses to start when the destination is not empty.
//
// A failure on one file is terminal for that file only; it is counted,
// logged and never retried.
package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/3leaps/goferry/pkg/provider"
	"github.com/3leaps/goferry/pkg/staging"
)

// PipelineConfig tunes a Pipeline.
type PipelineConfig struct {
	// QueueCapacity bounds the number of staged files awaiting upload.
	// Zero uses DefaultQueueCapacity.
	QueueCapacity int

	// SessionID tags logs and records. Empty generates a new UUID.
	SessionID string
}

// Pipeline is the two-stage engine: source -> staging -> sink.
type Pipeline struct {
	source   provider.FileGetter
	sink     provider.FilePutter
	area     *staging.Area
	reporter *Reporter
	cfg      PipelineConfig
}

// NewPipeline wires a pipeline. A nil reporter discards all events.
func NewPipeline(source provider.FileGetter, sink provider.FilePutter, area *staging.Area, reporter *Reporter, cfg PipelineConfig) *Pipeline {
	if reporter == nil {
		reporter = NewReporter(ReporterOptions{})
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	return &Pipeline{source: source, sink: sink, area: area, reporter: reporter, cfg: cfg}
}

// Run executes plan. Every item of a plan built with staging is attempted
// exactly once by the stage worker and, on success, exactly once by the
// sink worker.
//
// Run returns a summary in every case. The error is non-nil only when ctx
// ended the run early.
func (p *Pipeline) Run(ctx context.Context, plan *Plan) (*Summary, error) {
	id := p.cfg.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	s := newQueuedSession(id, plan, p.cfg.QueueCapacity)
	p.reporter.begin(s)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.stage(gctx, s) })
	g.Go(func() error { return p.drain(gctx, s) })
	err := g.Wait()

	cancelled := err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
	sum := s.summary(cancelled)
	p.reporter.finish(ctx, s, sum)
	return sum, err
}

// stage downloads every item in plan order and enqueues the ones that land
// in staging. Closing the queue is the completion signal.
func (p *Pipeline) stage(ctx context.Context, s *Session) error {
	defer s.finishStage()

	for idx, it := range s.Plan.Items {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		if err := p.source.GetFile(ctx, it.SourcePath, it.StagingPath); err != nil {
			// An interrupted download is not an item failure.
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			s.complete(it, true)
			p.reporter.stageFailed(ctx, s, idx, &StageTransferError{Item: it, Err: err}, time.Since(start))
			continue
		}
		p.reporter.staged(s, idx, time.Since(start))

		if err := s.enqueue(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// drain uploads staged items in FIFO order until the stage worker is done
// and the queue is empty.
func (p *Pipeline) drain(ctx context.Context, s *Session) error {
	for {
		idx, ok, err := s.dequeue(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := p.upload(ctx, s, idx); err != nil {
			return err
		}
	}
}

// upload returns an error only when ctx interrupted the put.
func (p *Pipeline) upload(ctx context.Context, s *Session, idx int) error {
	it := s.Plan.Items[idx]

	start := time.Now()
	err := p.sink.PutFile(ctx, it.StagingPath, it.DestPath)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		// The staged copy stays on disk for inspection.
		s.complete(it, true)
		p.reporter.uploadFailed(ctx, s, idx, &SinkTransferError{Item: it, Err: err}, time.Since(start))
	} else {
		s.complete(it, false)
		p.reporter.uploaded(ctx, s, idx, time.Since(start))
		if p.area != nil {
			if err := p.area.Evict(it.StagingPath); err != nil {
				p.reporter.localIO(&LocalIOError{Op: "evict", Path: it.StagingPath, Err: err})
			}
		}
	}
	p.reporter.byteProgress(ctx, s)
	return nil
}
