package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/goferry/internal/observability"
	"github.com/3leaps/goferry/pkg/manifest"
)

var fileCmd = &cobra.Command{
	Use:   "file <bucket> <job-file>",
	Short: "Migrate every source/destination pair listed in a job file",
	Long: `Run one pipelined migration per job, one job after another.

The job file format follows its extension:
  .yaml/.yml  jobs: [{source: ..., destination: ...}]
  .json       {"jobs": [{"source": ..., "destination": ...}]}
  otherwise   one "<hdfs-source> <dest-prefix>" pair per line; blank lines
              and lines starting with '#' are skipped

A malformed job file aborts before anything is transferred. A job that
cannot start (empty source, unreachable namenode) is logged and the next
job runs.

Examples:
  goferry file my-bucket jobs.tsv
  goferry file my-bucket jobs.yaml --plan`,
	Args: cobra.ExactArgs(2),
	RunE: runFile,
}

func init() {
	rootCmd.AddCommand(fileCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	bucket, jobPath := args[0], args[1]

	jobs, err := manifest.Load(jobPath)
	if err != nil {
		observability.CLILogger.Error("Invalid job file", zap.String("path", jobPath), zap.Error(err))
		return loadExit("Invalid job file", err, ExitInvalidArgument)
	}

	env, err := openRun(ctx, routeHDFSToS3, cfg.Staging.Dir)
	if err != nil {
		return err
	}
	defer env.close()

	source, err := openSourceFS(ctx, cfg.HDFSProvider())
	if err != nil {
		observability.CLILogger.Error("Failed to connect to HDFS", zap.Error(err))
		return exitError(ExitExternalServiceUnavailable, "Failed to connect to HDFS", err)
	}
	defer func() { _ = source.Close() }()

	var sink objectStore
	if !planOnly {
		sink, err = openObjectStore(ctx, cfg.S3Provider(bucket))
		if err != nil {
			observability.CLILogger.Error("Failed to connect to object store", zap.String("bucket", bucket), zap.Error(err))
			return exitError(ExitExternalServiceUnavailable, "Failed to connect to object store", err)
		}
		defer func() { _ = sink.Close() }()
	}

	var failed int
	for i, job := range jobs.Jobs {
		env.loggers.General.Debug("Starting job",
			zap.Int("job", i+1), zap.Int("jobs", jobs.Len()),
			zap.String("source", job.Source), zap.String("dest", job.Destination))

		err := migrate(ctx, cmd.OutOrStdout(), env, source, sink, job.Source, job.Destination, "")
		if err == nil {
			continue
		}
		if ExitCode(err) == ExitSignalInt {
			return err
		}
		failed++
		observability.CLILogger.Error("Job failed",
			zap.Int("job", i+1),
			zap.String("source", job.Source),
			zap.Error(err))
	}

	if failed > 0 {
		return exitError(ExitFailure, "Job file completed with failed jobs",
			fmt.Errorf("%d of %d jobs could not run", failed, jobs.Len()))
	}
	return nil
}
