// Package observability owns the process loggers.
//
// CLILogger is the operator-facing console logger used by command code.
// A transfer run additionally gets three channels from NewTransferLoggers:
// general, success and failure.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the console logger for command code. It is a no-op until
// InitCLILogger runs.
var CLILogger = zap.NewNop()

// TimeLayout is the timestamp format of every human-readable log line.
const TimeLayout = "2006-01-02 15:04:05"

// InitCLILogger points CLILogger at stderr. verbose enables debug output.
func InitCLILogger(name string, verbose bool) {
	CLILogger = zap.New(consoleCore(verbose)).Named(name)
}

func consoleCore(verbose bool) zapcore.Core {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stderr), level)
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(TimeLayout)
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = ""
	cfg.ConsoleSeparator = " "
	return cfg
}
