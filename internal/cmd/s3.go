package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/goferry/internal/observability"
	"github.com/3leaps/goferry/pkg/provider"
	"github.com/3leaps/goferry/pkg/provider/local"
	"github.com/3leaps/goferry/pkg/transfer"
)

var putCmd = &cobra.Command{
	Use:   "put <bucket> <local-source> <dest-prefix>",
	Short: "Copy a local directory tree into a bucket",
	Long: `Upload every file below a local path into a key prefix of a bucket, one
file at a time. Nothing is uploaded when the prefix already holds objects.

Examples:
  goferry-s3 put my-bucket /data/export exports/2024
  goferry-s3 put my-bucket ./report.csv reports/report.csv`,
	Args: cobra.ExactArgs(3),
	RunE: runPut,
}

var getCmd = &cobra.Command{
	Use:   "get <bucket> <source-prefix> <local-dest>",
	Short: "Copy a key prefix of a bucket into a local directory",
	Long: `Download every object below a key prefix into a local directory, one
object at a time. Nothing is downloaded when the directory already holds
files.

Examples:
  goferry-s3 get my-bucket exports/2024 /data/restore`,
	Args: cobra.ExactArgs(3),
	RunE: runGet,
}

func init() {
	s3RootCmd.AddCommand(putCmd)
	s3RootCmd.AddCommand(getCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	bucket, dst := args[0], args[2]
	src, err := filepath.Abs(args[1])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid source path", err)
	}

	env, err := openRun(ctx, routeLocalToS3, "")
	if err != nil {
		return err
	}
	defer env.close()

	disk := local.NewOS()
	if planOnly {
		return preview(cmd, env, disk, src, dst)
	}

	store, err := openObjectStore(ctx, cfg.S3Provider(bucket))
	if err != nil {
		observability.CLILogger.Error("Failed to connect to object store", zap.String("bucket", bucket), zap.Error(err))
		return exitError(ExitExternalServiceUnavailable, "Failed to connect to object store", err)
	}
	defer func() { _ = store.Close() }()

	return copyTree(cmd, env, disk, store, store.PutFile, src, dst)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	bucket, src := args[0], args[1]
	dst, err := filepath.Abs(args[2])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid destination path", err)
	}

	env, err := openRun(ctx, routeS3ToLocal, "")
	if err != nil {
		return err
	}
	defer env.close()

	store, err := openObjectStore(ctx, cfg.S3Provider(bucket))
	if err != nil {
		observability.CLILogger.Error("Failed to connect to object store", zap.String("bucket", bucket), zap.Error(err))
		return exitError(ExitExternalServiceUnavailable, "Failed to connect to object store", err)
	}
	defer func() { _ = store.Close() }()

	if planOnly {
		return preview(cmd, env, store, src, dst)
	}
	return copyTree(cmd, env, store, local.NewOS(), store.GetFile, src, dst)
}

func preview(cmd *cobra.Command, env *runEnv, source provider.Lister, src, dst string) error {
	ctx := commandContext(cmd)
	plan, err := transfer.BuildPlan(ctx, source, src, dst, transfer.PlanOptions{
		Excludes: excludes,
		Log:      env.loggers.General,
	})
	if err != nil {
		env.loggers.General.Error("Failed to build plan", zap.String("source", src), zap.String("dest", dst), zap.Error(err))
		return planExit(err)
	}
	return showPlan(ctx, cmd.OutOrStdout(), env, plan)
}

// copyTree runs a single-stage transfer. dest is listed first and must be
// empty.
func copyTree(cmd *cobra.Command, env *runEnv, source, dest provider.Lister, copyFn transfer.FileFunc, src, dst string) error {
	ctx := commandContext(cmd)
	plan, err := transfer.BuildPlan(ctx, source, src, dst, transfer.PlanOptions{
		Dest:     dest,
		Excludes: excludes,
		Log:      env.loggers.General,
	})
	if err != nil {
		env.loggers.General.Error("Failed to build plan", zap.String("source", src), zap.String("dest", dst), zap.Error(err))
		return planExit(err)
	}

	sum, err := transfer.NewSequential(copyFn, env.reporter, env.id).Run(ctx, plan)
	return env.result(sum, err)
}
