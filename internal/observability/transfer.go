package observability

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/3leaps/goferry/internal/config"
)

// Log file names under logging.dir.
const (
	GeneralLogFile = "general.log"
	SuccessLogFile = "success.log"
	FailureLogFile = "failure.log"
)

// TransferLoggers are the three channels of a transfer run.
type TransferLoggers struct {
	// General carries operational messages and progress. It always writes
	// to stderr and, with a log dir, to general.log.
	General *zap.Logger

	// Success gets one "src --> dst" line per transferred file.
	Success *zap.Logger

	// Failure gets one line per failed file with its full path chain.
	Failure *zap.Logger

	files []io.Closer
}

// NewTransferLoggers builds the channels described by cfg. The level applies
// to the general log file; stderr shows info and above unless verbose.
func NewTransferLoggers(cfg config.LoggingConfig, verbose bool) (*TransferLoggers, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return newTransferLoggers(cfg, level, consoleCore(verbose))
}

func newTransferLoggers(cfg config.LoggingConfig, level zapcore.Level, console zapcore.Core) (*TransferLoggers, error) {
	tl := &TransferLoggers{
		General: zap.New(console),
		Success: zap.NewNop(),
		Failure: zap.NewNop(),
	}
	if cfg.Dir == "" {
		return tl, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	general := tl.rotating(cfg, GeneralLogFile, level)
	tl.General = zap.New(zapcore.NewTee(console, general))
	tl.Success = zap.New(tl.rotating(cfg, SuccessLogFile, zapcore.DebugLevel))
	tl.Failure = zap.New(tl.rotating(cfg, FailureLogFile, zapcore.DebugLevel))
	return tl, nil
}

func (tl *TransferLoggers) rotating(cfg config.LoggingConfig, name string, level zapcore.Level) zapcore.Core {
	w := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
	}
	tl.files = append(tl.files, w)
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(w), level)
}

// Close flushes every channel and closes the log files.
func (tl *TransferLoggers) Close() error {
	var errs []error
	for _, l := range []*zap.Logger{tl.General, tl.Success, tl.Failure} {
		// Syncing stderr fails on some terminals; only the files matter.
		_ = l.Sync()
	}
	for _, f := range tl.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
