package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/goferry/internal/observability"
	"github.com/3leaps/goferry/pkg/provider"
	"github.com/3leaps/goferry/pkg/staging"
	"github.com/3leaps/goferry/pkg/transfer"
)

var lineCmd = &cobra.Command{
	Use:   "line <bucket> <hdfs-source> <dest-prefix>",
	Short: "Migrate one HDFS directory tree into a bucket",
	Long: `Migrate every file below an HDFS path into a key prefix of a bucket.

The staging directory (staging.dir) is wiped and rebuilt first. Existing
objects under the prefix are overwritten.

Examples:
  goferry line my-bucket /warehouse/events backup/events
  goferry line my-bucket /warehouse/events backup/events --exclude '**/_SUCCESS'`,
	Args: cobra.ExactArgs(3),
	RunE: runLine,
}

func init() {
	rootCmd.AddCommand(lineCmd)
}

func runLine(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	bucket, src, dst := args[0], args[1], args[2]

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

	return migrate(ctx, cmd.OutOrStdout(), env, source, sink, src, dst, env.id)
}

// migrate runs one pipelined transfer of src into dst. With --plan it only
// prints the plan and sink may be nil.
func migrate(ctx context.Context, out io.Writer, env *runEnv, source sourceFS, sink provider.FilePutter, src, dst, sessionID string) error {
	area := staging.NewOS(cfg.Staging.Dir)

	opts := transfer.PlanOptions{
		Staging:  area,
		Excludes: excludes,
		Log:      env.loggers.General,
	}
	if planOnly {
		// A preview must not wipe the staging tree of a run in progress.
		opts.Staging = nil
	}

	plan, err := transfer.BuildPlan(ctx, source, src, dst, opts)
	if err != nil {
		env.loggers.General.Error("Failed to build plan",
			zap.String("source", src), zap.String("dest", dst), zap.Error(err))
		return planExit(err)
	}

	if planOnly {
		for i := range plan.Items {
			plan.Items[i].StagingPath = area.Path(plan.Items[i].SourcePath)
		}
		return showPlan(ctx, out, env, plan)
	}

	p := transfer.NewPipeline(source, sink, area, env.reporter, transfer.PipelineConfig{
		QueueCapacity: cfg.Pipeline.QueueCapacity,
		SessionID:     sessionID,
	})
	sum, err := p.Run(ctx, plan)
	return env.result(sum, err)
}
