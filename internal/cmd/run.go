package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/3leaps/goferry/internal/observability"
	"github.com/3leaps/goferry/internal/server"
	"github.com/3leaps/goferry/internal/server/handlers"
	"github.com/3leaps/goferry/pkg/metrics"
	"github.com/3leaps/goferry/pkg/output"
	"github.com/3leaps/goferry/pkg/provider"
	"github.com/3leaps/goferry/pkg/provider/hdfs"
	"github.com/3leaps/goferry/pkg/provider/s3"
	"github.com/3leaps/goferry/pkg/transfer"
)

// Routes tag JSONL records with the backends involved.
const (
	routeHDFSToS3  = "hdfs->s3"
	routeLocalToS3 = "local->s3"
	routeS3ToLocal = "s3->local"
)

type objectStore interface {
	provider.Lister
	provider.FileGetter
	provider.FilePutter
	io.Closer
}

type sourceFS interface {
	provider.Lister
	provider.FileGetter
	io.Closer
}

// Provider constructors, swapped out in tests.
var (
	openObjectStore = func(ctx context.Context, c s3.Config) (objectStore, error) {
		p, err := s3.New(ctx, c)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	openSourceFS = func(ctx context.Context, c hdfs.Config) (sourceFS, error) {
		p, err := hdfs.New(ctx, c)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
)

// runEnv is everything one invocation reports through.
type runEnv struct {
	id       string
	route    string
	start    time.Time
	loggers  *observability.TransferLoggers
	writer   output.Writer
	reporter *transfer.Reporter

	closeWriter func()
	stopStatus  func()
}

// openRun builds the log channels, the JSONL writer, the metrics and the
// optional status server. healthDir, when set, is reported by /healthz.
func openRun(ctx context.Context, route, healthDir string) (*runEnv, error) {
	env := &runEnv{
		id:    uuid.NewString(),
		route: route,
		start: time.Now(),
	}

	loggers, err := observability.NewTransferLoggers(cfg.Logging, verbose)
	if err != nil {
		observability.CLILogger.Error("Failed to open log files", zap.String("dir", cfg.Logging.Dir), zap.Error(err))
		return nil, exitError(ExitFileWriteError, "Failed to open log files", err)
	}
	env.loggers = loggers

	w, closeWriter, err := createWriter(outputDest, env.id, route)
	if err != nil {
		_ = loggers.Close()
		observability.CLILogger.Error("Failed to create writer", zap.Error(err))
		return nil, exitError(ExitFileWriteError, "Failed to create output", err)
	}
	env.writer = w
	env.closeWriter = closeWriter

	reg := prometheus.NewRegistry()
	env.reporter = transfer.NewReporter(transfer.ReporterOptions{
		General: loggers.General,
		Success: loggers.Success,
		Failure: loggers.Failure,
		Output:  w,
		Metrics: metrics.New(reg),
	})

	env.stopStatus = func() {}
	if cfg.Status.Addr != "" {
		stop, err := startStatus(ctx, env, reg, healthDir)
		if err != nil {
			env.close()
			observability.CLILogger.Error("Failed to start status server", zap.String("addr", cfg.Status.Addr), zap.Error(err))
			return nil, exitError(ExitFailure, "Failed to start status server", err)
		}
		env.stopStatus = stop
	}
	return env, nil
}

func startStatus(ctx context.Context, env *runEnv, reg *prometheus.Registry, healthDir string) (func(), error) {
	health := handlers.NewHealthManager(versionInfo.Version)
	if healthDir != "" {
		health.RegisterChecker("staging", handlers.DirChecker{Dir: healthDir})
	}
	srv := server.New(cfg.Status.Addr, server.Options{
		Progress:        env.reporter,
		Health:          health,
		Gatherer:        reg,
		ShutdownTimeout: cfg.Status.ShutdownTimeout,
		Log:             env.loggers.General,
	})

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", srv.Addr())
	if err != nil {
		return nil, err
	}

	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(srvCtx, ln) }()

	return func() {
		cancel()
		if err := <-done; err != nil {
			env.loggers.General.Warn("Status server stopped", zap.Error(err))
		}
	}, nil
}

// close logs the wall time of the invocation and releases every sink.
func (e *runEnv) close() {
	e.loggers.General.Info(fmt.Sprintf("spent %.2f minutes", time.Since(e.start).Minutes()),
		zap.String("session_id", e.id))
	if e.stopStatus != nil {
		e.stopStatus()
	}
	if e.closeWriter != nil {
		e.closeWriter()
	}
	if err := e.loggers.Close(); err != nil {
		observability.CLILogger.Debug("Closing log files", zap.Error(err))
	}
}

// result turns an engine outcome into the command error. Per-file failures
// are not errors; only a cancelled run is.
func (e *runEnv) result(sum *transfer.Summary, err error) error {
	if err == nil {
		return nil
	}
	if sum == nil {
		sum = &transfer.Summary{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		observability.CLILogger.Warn("Transfer cancelled",
			zap.String("session_id", e.id),
			zap.Int64("failures", sum.Failures),
			zap.Int64("bytes_done", sum.ProcessedBytes))
		return exitError(ExitSignalInt, "Transfer cancelled", err)
	}
	return exitError(ExitFailure, "Transfer failed", err)
}

// createWriter opens the JSONL destination. Empty discards records.
func createWriter(dest, sessionID, route string) (output.Writer, func(), error) {
	switch dest {
	case "":
		return output.Discard, func() {}, nil
	case "stdout", "-":
		w := output.NewJSONLWriter(os.Stdout, sessionID, route)
		return w, func() { _ = w.Close() }, nil
	}

	path := strings.TrimPrefix(dest, "file:")
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	w := output.NewJSONLWriter(f, sessionID, route)
	cleanup := func() {
		_ = w.Close()
		_ = f.Close()
	}
	return w, cleanup, nil
}

// showPlan prints plan and emits one plan record per item.
func showPlan(ctx context.Context, out io.Writer, env *runEnv, plan *transfer.Plan) error {
	_, _ = fmt.Fprintln(out, "=== Transfer Plan ===")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "Route:    %s\n", env.route)
	_, _ = fmt.Fprintf(out, "Source:   %s\n", plan.SourceRoot)
	_, _ = fmt.Fprintf(out, "Dest:     %s\n", plan.DestRoot)
	_, _ = fmt.Fprintf(out, "Files:    %d (%s)\n", plan.Len(), humanize.IBytes(uint64(plan.TotalSize)))
	if plan.Excluded > 0 {
		_, _ = fmt.Fprintf(out, "Excluded: %d\n", plan.Excluded)
	}
	_, _ = fmt.Fprintln(out)

	for _, it := range plan.Items {
		_, _ = fmt.Fprintf(out, "  %s --> %s (%s)\n", it.SourcePath, it.DestPath, humanize.IBytes(uint64(it.Size)))
		if err := env.writer.WritePlan(ctx, &output.PlanRecord{
			Source:  it.SourcePath,
			Staging: it.StagingPath,
			Dest:    it.DestPath,
			Bytes:   it.Size,
		}); err != nil {
			return exitError(ExitFileWriteError, "Failed to write plan", err)
		}
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Plan built successfully. Remove --plan to execute.")
	return nil
}
