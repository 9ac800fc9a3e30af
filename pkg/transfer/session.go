package transfer

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultQueueCapacity bounds how many staged files may wait for upload.
const DefaultQueueCapacity = 16

// Session is the state one invocation shares between its workers.
//
// Counters are atomics and the pending queue, present only for pipelined
// runs, is a bounded channel. No lock is held around any I/O. A session is
// discarded when its run returns.
type Session struct {
	ID    string
	Plan  *Plan
	Start time.Time

	pending chan int

	processedSize atomic.Int64
	failures      atomic.Int64
	done          atomic.Int64
	stageComplete atomic.Bool
}

// newSession returns a session without a pending queue, for runs that copy
// one item at a time.
func newSession(id string, plan *Plan) *Session {
	return &Session{
		ID:    id,
		Plan:  plan,
		Start: time.Now(),
	}
}

// newQueuedSession returns a session whose stage and sink workers hand items
// over through a queue of queueCap slots.
func newQueuedSession(id string, plan *Plan, queueCap int) *Session {
	if queueCap <= 0 {
		queueCap = DefaultQueueCapacity
	}
	s := newSession(id, plan)
	s.pending = make(chan int, queueCap)
	return s
}

// enqueue hands a staged item to the sink, blocking while the queue is full.
func (s *Session) enqueue(ctx context.Context, idx int) error {
	select {
	case s.pending <- idx:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dequeue blocks for the next staged item. ok is false once the stage
// worker has finished and the queue is drained.
func (s *Session) dequeue(ctx context.Context) (idx int, ok bool, err error) {
	select {
	case idx, ok = <-s.pending:
		return idx, ok, nil
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}

// finishStage records that every item has been attempted by the stage
// worker. It must be called exactly once.
func (s *Session) finishStage() {
	s.stageComplete.Store(true)
	if s.pending != nil {
		close(s.pending)
	}
}

// complete records the terminal outcome of one item.
func (s *Session) complete(item TransferItem, failed bool) {
	if failed {
		s.failures.Add(1)
	}
	s.processedSize.Add(item.Size)
	s.done.Add(1)
}

// ProcessedSize returns the bytes of items that reached a terminal outcome.
func (s *Session) ProcessedSize() int64 { return s.processedSize.Load() }

// Failures returns the number of failed items.
func (s *Session) Failures() int64 { return s.failures.Load() }

// Done returns the number of items that reached a terminal outcome.
func (s *Session) Done() int64 { return s.done.Load() }

// StageComplete reports whether the stage worker has attempted every item.
func (s *Session) StageComplete() bool { return s.stageComplete.Load() }

// QueueDepth returns the number of staged items waiting for upload.
func (s *Session) QueueDepth() int { return len(s.pending) }

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	SessionID     string        `json:"session_id"`
	Source        string        `json:"source"`
	Dest          string        `json:"dest"`
	ItemsTotal    int64         `json:"items_total"`
	ItemsDone     int64         `json:"items_done"`
	BytesTotal    int64         `json:"bytes_total"`
	BytesDone     int64         `json:"bytes_done"`
	Failures      int64         `json:"failures"`
	QueueDepth    int           `json:"queue_depth"`
	StageComplete bool          `json:"stage_complete"`
	Elapsed       time.Duration `json:"elapsed_ns"`
}

// Snapshot returns the current counters.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		SessionID:     s.ID,
		Source:        s.Plan.SourceRoot,
		Dest:          s.Plan.DestRoot,
		ItemsTotal:    int64(s.Plan.Len()),
		ItemsDone:     s.Done(),
		BytesTotal:    s.Plan.TotalSize,
		BytesDone:     s.ProcessedSize(),
		Failures:      s.Failures(),
		QueueDepth:    s.QueueDepth(),
		StageComplete: s.StageComplete(),
		Elapsed:       time.Since(s.Start),
	}
}

// Summary is the outcome of one run.
type Summary struct {
	SessionID      string
	Items          int
	Failures       int64
	TotalBytes     int64
	ProcessedBytes int64
	Duration       time.Duration

	// Cancelled is set when the context ended the run early; unattempted
	// items are then neither processed nor failed.
	Cancelled bool
}

func (s *Session) summary(cancelled bool) *Summary {
	return &Summary{
		SessionID:      s.ID,
		Items:          s.Plan.Len(),
		Failures:       s.Failures(),
		TotalBytes:     s.Plan.TotalSize,
		ProcessedBytes: s.ProcessedSize(),
		Duration:       time.Since(s.Start),
		Cancelled:      cancelled,
	}
}
