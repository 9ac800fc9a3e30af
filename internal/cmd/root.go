// Package cmd holds the goferry and goferry-s3 command trees.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/goferry/internal/config"
	"github.com/3leaps/goferry/internal/observability"
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for --version.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate

	v := fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
	rootCmd.Version = v
	s3RootCmd.Version = v
}

var (
	configPath string
	verbose    bool
	outputDest string
	statusAddr string
	stagingDir string
	excludes   []string
	planOnly   bool
)

// cfg is loaded once per invocation before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "goferry",
	Short: "Migrate HDFS directory trees to an object store",
	Long: `goferry copies whole HDFS directory trees into an S3 bucket.

Every file is downloaded into a local staging directory, then uploaded and
evicted by a second worker, so downloads and uploads overlap. A failed file
is logged and counted; the run always continues.

Examples:
  goferry line my-bucket /warehouse/events backup/events
  goferry file my-bucket jobs.tsv
  goferry line my-bucket /warehouse/events backup/events --plan`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var s3RootCmd = &cobra.Command{
	Use:   "goferry-s3",
	Short: "Copy between the local disk and an object store",
	Long: `goferry-s3 copies a local directory tree into an S3 prefix (put) or an S3
prefix into a local directory (get), one file at a time.

The destination must be empty; otherwise nothing is copied.

Examples:
  goferry-s3 put my-bucket /data/export exports/2024
  goferry-s3 get my-bucket exports/2024 /data/restore`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	for _, root := range []*cobra.Command{rootCmd, s3RootCmd} {
		pf := root.PersistentFlags()
		pf.StringVarP(&configPath, "config", "c", "", "Config file (default: goferry.yaml in . or $XDG_CONFIG_HOME/goferry)")
		pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug output on stderr")
		pf.StringVarP(&outputDest, "output", "o", "", "Write JSONL records to stdout or a file")
		pf.StringVar(&statusAddr, "status-addr", "", "Serve /healthz, /progress and /metrics on this address")
		pf.StringSliceVar(&excludes, "exclude", nil, "Skip files matching this glob (repeatable)")
		pf.BoolVar(&planOnly, "plan", false, "List what would be transferred and exit")
	}
	rootCmd.PersistentFlags().StringVar(&stagingDir, "staging-dir", "", "Override staging.dir")
}

func setup(cmd *cobra.Command, args []string) error {
	observability.InitCLILogger(cmd.Root().Name(), verbose)

	overrides := map[string]any{}
	if stagingDir != "" {
		overrides["staging"] = map[string]any{"dir": stagingDir}
	}
	if statusAddr != "" {
		overrides["status"] = map[string]any{"addr": statusAddr}
	}

	c, err := config.LoadFile(commandContext(cmd), configPath, overrides)
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.String("path", configPath), zap.Error(err))
		return loadExit("Failed to load configuration", err, ExitConfigError)
	}
	cfg = c
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Execute runs the goferry command tree and returns the process exit code.
func Execute() int { return execute(rootCmd) }

// ExecuteS3 runs the goferry-s3 command tree and returns the process exit
// code.
func ExecuteS3() int { return execute(s3RootCmd) }

func execute(root *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return ExitCode(err)
}
