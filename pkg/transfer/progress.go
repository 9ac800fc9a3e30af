package transfer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/3leaps/goferry/pkg/metrics"
	"github.com/3leaps/goferry/pkg/output"
)

// ByteETA estimates the remaining time of a pipelined run from bytes:
// (total - processed) / processed * elapsed. ok is false until some bytes
// have been processed.
func ByteETA(total, processed int64, elapsed time.Duration) (eta time.Duration, ok bool) {
	if processed <= 0 {
		return 0, false
	}
	remaining := total - processed
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(float64(remaining) / float64(processed) * float64(elapsed)), true
}

// ItemETA estimates the remaining time of a sequential run from item
// counts: (count - done) / done * elapsed. ok is false until one item is
// done.
func ItemETA(count, done int64, elapsed time.Duration) (eta time.Duration, ok bool) {
	if done <= 0 {
		return 0, false
	}
	remaining := count - done
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(float64(remaining) / float64(done) * float64(elapsed)), true
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 100
	}
	return float64(part) / float64(whole) * 100
}

// ReporterOptions wires the sinks a Reporter writes to. Every field is
// optional.
type ReporterOptions struct {
	// General is the operational log.
	General *zap.Logger

	// Success receives one line per transferred file.
	Success *zap.Logger

	// Failure receives one line per failed file with the full path chain.
	Failure *zap.Logger

	// Output receives JSONL records.
	Output output.Writer

	// Metrics receives Prometheus updates.
	Metrics *metrics.Metrics
}

// Reporter turns worker events into log lines, JSONL records and metrics.
// It is safe for concurrent use by both workers.
type Reporter struct {
	general *zap.Logger
	success *zap.Logger
	failure *zap.Logger
	out     output.Writer
	metrics *metrics.Metrics

	current atomic.Pointer[Session]
}

// NewReporter builds a Reporter, substituting no-op sinks for nil options.
func NewReporter(opts ReporterOptions) *Reporter {
	r := &Reporter{
		general: opts.General,
		success: opts.Success,
		failure: opts.Failure,
		out:     opts.Output,
		metrics: opts.Metrics,
	}
	if r.general == nil {
		r.general = zap.NewNop()
	}
	if r.success == nil {
		r.success = zap.NewNop()
	}
	if r.failure == nil {
		r.failure = zap.NewNop()
	}
	if r.out == nil {
		r.out = output.Discard
	}
	return r
}

// Snapshot returns the state of the session in flight, if any.
func (r *Reporter) Snapshot() (Snapshot, bool) {
	s := r.current.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

func (r *Reporter) begin(s *Session) {
	r.current.Store(s)
	r.metrics.StartSession(s.Plan.Len(), s.Plan.TotalSize)
	r.general.Info(fmt.Sprintf("start to transfer %s --> %s, file_cnt = %d, total_size = %s",
		s.Plan.SourceRoot, s.Plan.DestRoot, s.Plan.Len(), humanize.IBytes(uint64(s.Plan.TotalSize))),
		zap.String("session_id", s.ID),
		zap.Int("excluded", s.Plan.Excluded),
	)
}

func (r *Reporter) staged(s *Session, idx int, d time.Duration) {
	it := s.Plan.Items[idx]
	r.metrics.RecordItem(output.StageDownload, true, it.Size, d)
	r.general.Debug(fmt.Sprintf("succeeded to download %d/%d: %s --> %s", idx+1, s.Plan.Len(), it.SourcePath, it.StagingPath))
}

func (r *Reporter) stageFailed(ctx context.Context, s *Session, idx int, err error, d time.Duration) {
	it := s.Plan.Items[idx]
	r.metrics.RecordItem(output.StageDownload, false, it.Size, d)
	r.general.Warn(fmt.Sprintf("failed to download %d/%d: %s --> %s", idx+1, s.Plan.Len(), it.SourcePath, it.StagingPath),
		zap.Error(err))
	r.failure.Info(fmt.Sprintf("%s --> %s --> %s on stage Download, message: %v", it.SourcePath, it.StagingPath, it.DestPath, err))
	r.writeFailure(ctx, it, output.StageDownload, err)
}

func (r *Reporter) uploaded(ctx context.Context, s *Session, idx int, d time.Duration) {
	it := s.Plan.Items[idx]
	r.metrics.RecordItem(output.StageUpload, true, it.Size, d)
	r.general.Debug(fmt.Sprintf("succeeded to upload %d/%d: %s --> %s", idx+1, s.Plan.Len(), it.StagingPath, it.DestPath))
	r.success.Info(fmt.Sprintf("%s --> %s", it.SourcePath, it.DestPath))
	r.writeTransfer(ctx, it)
}

func (r *Reporter) uploadFailed(ctx context.Context, s *Session, idx int, err error, d time.Duration) {
	it := s.Plan.Items[idx]
	r.metrics.RecordItem(output.StageUpload, false, it.Size, d)
	r.general.Warn(fmt.Sprintf("failed to upload %d/%d: %s --> %s", idx+1, s.Plan.Len(), it.StagingPath, it.DestPath),
		zap.Error(err))
	r.failure.Info(fmt.Sprintf("%s --> %s --> %s on stage Upload, message: %v", it.SourcePath, it.StagingPath, it.DestPath, err))
	r.writeFailure(ctx, it, output.StageUpload, err)
}

func (r *Reporter) transferred(ctx context.Context, s *Session, idx int, d time.Duration) {
	it := s.Plan.Items[idx]
	r.metrics.RecordItem(output.StageTransfer, true, it.Size, d)
	r.general.Debug(fmt.Sprintf("succeeded to transfer %d/%d: %s --> %s", idx+1, s.Plan.Len(), it.SourcePath, it.DestPath))
	r.success.Info(fmt.Sprintf("%s --> %s", it.SourcePath, it.DestPath))
	r.writeTransfer(ctx, it)
}

func (r *Reporter) transferFailed(ctx context.Context, s *Session, idx int, err error, d time.Duration) {
	it := s.Plan.Items[idx]
	r.metrics.RecordItem(output.StageTransfer, false, it.Size, d)
	r.general.Warn(fmt.Sprintf("failed to transfer %d/%d: %s --> %s", idx+1, s.Plan.Len(), it.SourcePath, it.DestPath),
		zap.Error(err))
	r.failure.Info(fmt.Sprintf("%s --> %s, message: %v", it.SourcePath, it.DestPath, err))
	r.writeFailure(ctx, it, output.StageTransfer, err)
}

func (r *Reporter) localIO(err *LocalIOError) {
	r.general.Warn("Staging cleanup failed", zap.Error(err))
}

// byteProgress emits the pipelined progress line, estimated from bytes.
func (r *Reporter) byteProgress(ctx context.Context, s *Session) {
	done, total := s.Done(), int64(s.Plan.Len())
	processed := s.ProcessedSize()
	elapsed := time.Since(s.Start)
	eta, ok := ByteETA(s.Plan.TotalSize, processed, elapsed)

	r.metrics.SetProgress(processed, s.Failures())
	r.metrics.SetQueueDepth(s.QueueDepth())
	r.general.Info(fmt.Sprintf("processed file_cnt %d/%d=%.1f%%, file_size %s/%s=%.1f%%, elapsed %.2f hours, estimate to finish in %s",
		done, total, percent(done, total),
		humanize.IBytes(uint64(processed)), humanize.IBytes(uint64(s.Plan.TotalSize)), percent(processed, s.Plan.TotalSize),
		elapsed.Hours(), etaText(eta, ok)))
	r.writeProgress(ctx, s, elapsed, eta, ok)
}

// itemProgress emits the sequential progress line, estimated from counts.
func (r *Reporter) itemProgress(ctx context.Context, s *Session) {
	done, total := s.Done(), int64(s.Plan.Len())
	elapsed := time.Since(s.Start)
	eta, ok := ItemETA(total, done, elapsed)

	r.metrics.SetProgress(s.ProcessedSize(), s.Failures())
	r.general.Info(fmt.Sprintf("processed file_cnt %d/%d=%.1f%%, elapsed %.1f hours, estimate to finish in %s",
		done, total, percent(done, total), elapsed.Hours(), etaText(eta, ok)))
	r.writeProgress(ctx, s, elapsed, eta, ok)
}

func etaText(eta time.Duration, ok bool) string {
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%.2f hours", eta.Hours())
}

func (r *Reporter) finish(ctx context.Context, s *Session, sum *Summary) {
	msg := fmt.Sprintf("finished transfering %s --> %s, failure_cnt = %d/%d", s.Plan.SourceRoot, s.Plan.DestRoot, sum.Failures, sum.Items)
	if sum.Failures > 0 {
		msg += ", see in failure log"
	}
	fields := []zap.Field{
		zap.String("session_id", s.ID),
		zap.String("bytes", humanize.IBytes(uint64(sum.ProcessedBytes))),
		zap.Duration("duration", sum.Duration),
	}
	if sum.Cancelled {
		r.general.Warn("transfer cancelled, "+msg, fields...)
	} else {
		r.general.Info(msg, fields...)
	}

	r.metrics.SetProgress(sum.ProcessedBytes, sum.Failures)
	r.emit(r.out.WriteSummary(context.WithoutCancel(ctx), &output.SummaryRecord{
		Source:        s.Plan.SourceRoot,
		Dest:          s.Plan.DestRoot,
		ItemsTotal:    int64(sum.Items),
		Failures:      sum.Failures,
		BytesTotal:    sum.TotalBytes,
		BytesDone:     sum.ProcessedBytes,
		Duration:      sum.Duration,
		DurationHuman: sum.Duration.Round(time.Millisecond).String(),
		Cancelled:     sum.Cancelled,
	}))
	r.current.CompareAndSwap(s, nil)
}

func (r *Reporter) writeTransfer(ctx context.Context, it TransferItem) {
	r.emit(r.out.WriteTransfer(ctx, &output.TransferRecord{
		Source:  it.SourcePath,
		Staging: it.StagingPath,
		Dest:    it.DestPath,
		Bytes:   it.Size,
	}))
}

func (r *Reporter) writeFailure(ctx context.Context, it TransferItem, stage string, err error) {
	r.emit(r.out.WriteFailure(context.WithoutCancel(ctx), &output.FailureRecord{
		Source:  it.SourcePath,
		Staging: it.StagingPath,
		Dest:    it.DestPath,
		Bytes:   it.Size,
		Stage:   stage,
		Code:    classifyErrCode(err),
		Message: err.Error(),
	}))
}

func (r *Reporter) writeProgress(ctx context.Context, s *Session, elapsed, eta time.Duration, ok bool) {
	rec := &output.ProgressRecord{
		ItemsDone:   s.Done(),
		ItemsTotal:  int64(s.Plan.Len()),
		BytesDone:   s.ProcessedSize(),
		BytesTotal:  s.Plan.TotalSize,
		Failures:    s.Failures(),
		Percent:     percent(s.Done(), int64(s.Plan.Len())),
		ElapsedSecs: elapsed.Seconds(),
	}
	if ok {
		secs := eta.Seconds()
		rec.ETASecs = &secs
	}
	r.emit(r.out.WriteProgress(ctx, rec))
}

func (r *Reporter) emit(err error) {
	if err != nil {
		r.general.Debug("Output record dropped", zap.Error(err))
	}
}
