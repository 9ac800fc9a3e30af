package transfer

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/3leaps/goferry/pkg/match"
	"github.com/3leaps/goferry/pkg/provider"
	"github.com/3leaps/goferry/pkg/staging"
)

func TestBuildPlan_Pipelined(t *testing.T) {
	area := newMemArea()
	src := newMemSource(area.Filesystem())
	src.dirs = []string{"/data/sub", "/data/empty"}
	src.add("/data/a.bin", 10)
	src.add("/data/sub/b.bin", 20)
	src.add("/data/sub/c.bin", 30)
	src.add("/other/x.bin", 99)

	// Leftovers from a previous run are wiped.
	require.NoError(t, util.WriteFile(area.Filesystem(), "/tmp/cache/stale/file", []byte("old"), 0o644))

	plan, err := BuildPlan(context.Background(), src, "/data", "backup/2024", PlanOptions{Staging: area})
	require.NoError(t, err)

	assert.Equal(t, 3, plan.Len())
	assert.Equal(t, int64(60), plan.TotalSize)
	assert.Equal(t, []TransferItem{
		{SourcePath: "/data/a.bin", StagingPath: "/tmp/cache/data/a.bin", DestPath: "backup/2024/a.bin", Size: 10},
		{SourcePath: "/data/sub/b.bin", StagingPath: "/tmp/cache/data/sub/b.bin", DestPath: "backup/2024/sub/b.bin", Size: 20},
		{SourcePath: "/data/sub/c.bin", StagingPath: "/tmp/cache/data/sub/c.bin", DestPath: "backup/2024/sub/c.bin", Size: 30},
	}, plan.Items)

	stale, err := area.Exists("/tmp/cache/stale/file")
	require.NoError(t, err)
	assert.False(t, stale)

	for _, dir := range []string{"/tmp/cache", "/tmp/cache/data/sub", "/tmp/cache/data/empty"} {
		fi, err := area.Filesystem().Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, fi.IsDir(), dir)
	}
}

func TestBuildPlan_Idempotent(t *testing.T) {
	area := newMemArea()
	src := newMemSource(area.Filesystem())
	src.add("/data/a", 1)
	src.add("/data/b/c", 2)

	first, err := BuildPlan(context.Background(), src, "/data", "dst", PlanOptions{Staging: area})
	require.NoError(t, err)
	second, err := BuildPlan(context.Background(), src, "/data", "dst", PlanOptions{Staging: area})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildPlan_FileRoot(t *testing.T) {
	area := newMemArea()
	src := newMemSource(area.Filesystem())
	src.add("/data/only.bin", 5)

	plan, err := BuildPlan(context.Background(), src, "/data/only.bin", "backup/only.bin", PlanOptions{Staging: area})
	require.NoError(t, err)
	require.Equal(t, 1, plan.Len())
	assert.Equal(t, "backup/only.bin", plan.Items[0].DestPath)
	assert.Equal(t, "/tmp/cache/data/only.bin", plan.Items[0].StagingPath)

	fi, err := area.Filesystem().Stat("/tmp/cache/data")
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestBuildPlan_StagingLeavesOperatorDataAlone(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/home/op/keep.txt", []byte("keep"), 0o644))
	require.NoError(t, util.WriteFile(fs, "/data/a", []byte("host copy"), 0o644))
	area := staging.New(fs, "/")

	src := newMemSource(fs)
	src.add("/data/a", 1)

	plan, err := BuildPlan(context.Background(), src, "/data", "dst", PlanOptions{Staging: area})
	require.NoError(t, err)
	assert.Equal(t, "/cache/data/a", plan.Items[0].StagingPath)

	for _, name := range []string{"/home/op/keep.txt", "/data/a"} {
		ok, err := area.Exists(name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
}

func TestBuildPlan_EmptySource(t *testing.T) {
	src := newMemSource(memfs.New())
	src.dirs = []string{"/data/empty"}

	plan, err := BuildPlan(context.Background(), src, "/data", "dst", PlanOptions{})
	assert.Nil(t, plan)

	var enumErr *EnumerationError
	require.ErrorAs(t, err, &enumErr)
	assert.Equal(t, "/data", enumErr.Root)
	assert.ErrorIs(t, err, ErrNothingToTransfer)
}

func TestBuildPlan_ListFailure(t *testing.T) {
	src := newMemSource(memfs.New())
	src.listErr = &provider.ProviderError{Op: "ListRecursive", Provider: provider.ProviderHDFS, Key: "/data", Err: provider.ErrAccessDenied}

	_, err := BuildPlan(context.Background(), src, "/data", "dst", PlanOptions{})
	var enumErr *EnumerationError
	require.ErrorAs(t, err, &enumErr)
	assert.True(t, provider.IsAccessDenied(err))
}

func TestBuildPlan_DestinationNotEmpty(t *testing.T) {
	fs := memfs.New()
	src := newMemSource(fs)
	src.add("/data/a", 1)

	dst := newMemSink(fs)
	dst.objects["backup/old"] = []byte("x")
	dst.objects["elsewhere/x"] = []byte("x")

	_, err := BuildPlan(context.Background(), src, "/data", "backup", PlanOptions{Dest: dst})
	var preErr *PreconditionError
	require.ErrorAs(t, err, &preErr)
	assert.Equal(t, 1, preErr.Existing)
	assert.ErrorIs(t, err, ErrDestinationNotEmpty)

	// A sibling prefix does not count.
	plan, err := BuildPlan(context.Background(), src, "/data", "fresh", PlanOptions{Dest: dst})
	require.NoError(t, err)
	assert.Equal(t, "fresh/a", plan.Items[0].DestPath)
	assert.Empty(t, plan.Items[0].StagingPath)
}

func TestBuildPlan_Excludes(t *testing.T) {
	src := newMemSource(memfs.New())
	src.add("/data/keep.bin", 1)
	src.add("/data/_SUCCESS", 1)
	src.add("/data/sub/_SUCCESS", 1)
	src.add("/data/tmp/part-0", 1)

	plan, err := BuildPlan(context.Background(), src, "/data", "dst", PlanOptions{
		Excludes: []string{"_SUCCESS", "tmp/**"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, plan.Len())
	assert.Equal(t, "/data/keep.bin", plan.Items[0].SourcePath)
	assert.Equal(t, 3, plan.Excluded)

	_, err = BuildPlan(context.Background(), src, "/data", "dst", PlanOptions{Excludes: []string{"[oops"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, match.ErrInvalidPattern)
	assert.False(t, IsFatal(err))
}

func TestBuildPlan_StagingWarnings(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	fs := memfs.New()
	// A regular file above the staging root makes every mkdir fail.
	require.NoError(t, util.WriteFile(fs, "/tmp", []byte("not a dir"), 0o644))
	area := staging.New(fs, "/tmp")

	src := newMemSource(fs)
	src.add("/data/a", 1)

	plan, err := BuildPlan(context.Background(), src, "/data", "dst", PlanOptions{Staging: area, Log: zap.New(core)})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Len())

	warnings := logs.FilterMessage("Staging setup").All()
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0].ContextMap()["error"], "staging mkdir")
}

func TestMapDest(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		sourceRoot string
		destRoot   string
		want       string
	}{
		{"nested", "/data/x/y.bin", "/data", "backup", "backup/x/y.bin"},
		{"trailing slash on root", "/data/x", "/data/", "backup", "backup/x"},
		{"root is the file", "/data/x", "/data/x", "backup/x", "backup/x"},
		{"object keys", "logs/2024/a.gz", "logs", "/archive/logs", "/archive/logs/2024/a.gz"},
		{"bucket root", "a/b", "", "dst", "dst/a/b"},
		{"prefix lookalike", "/database/x", "/data", "backup", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapDest(tt.source, tt.sourceRoot, tt.destRoot))
		})
	}
}
