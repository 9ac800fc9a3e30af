package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersionInfo(t *testing.T) {
	// Save original values
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		SetVersionInfo(origVersion, origCommit, origBuildDate)
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "set all values",
			version:   "1.0.0",
			commit:    "abc123",
			buildDate: "2024-01-15",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
		},
		{
			name:      "set empty values",
			version:   "",
			commit:    "",
			buildDate: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
			assert.Contains(t, rootCmd.Version, tt.commit)
			assert.Equal(t, rootCmd.Version, s3RootCmd.Version)
		})
	}
}

func TestCommandTrees(t *testing.T) {
	names := func(cmds []string) map[string]bool {
		out := map[string]bool{}
		for _, c := range cmds {
			out[c] = true
		}
		return out
	}

	var root, s3 []string
	for _, c := range rootCmd.Commands() {
		root = append(root, c.Name())
	}
	for _, c := range s3RootCmd.Commands() {
		s3 = append(s3, c.Name())
	}

	assert.True(t, names(root)["line"])
	assert.True(t, names(root)["file"])
	assert.True(t, names(s3)["put"])
	assert.True(t, names(s3)["get"])
	assert.False(t, names(s3)["line"])

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("staging-dir"))
	assert.Nil(t, s3RootCmd.PersistentFlags().Lookup("staging-dir"))
}

func TestSetup_InvalidConfig(t *testing.T) {
	t.Setenv("GOFERRY_PIPELINE_QUEUE_CAPACITY", "0")
	useFakes(t, nil, nil)

	_, err := runCommand(t, rootCmd, "line", "bkt", "/src", "dst")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestSetup_MissingConfigFile(t *testing.T) {
	useFakes(t, nil, nil)

	_, err := runCommand(t, s3RootCmd, "put", "bkt", "/src", "dst",
		"--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFileNotFound, ExitCode(err))
}

func TestSetup_ConfigFile(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})
	logDir := t.TempDir()

	conf := filepath.Join(t.TempDir(), "goferry.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("logging:\n  dir: "+logDir+"\n"), 0o644))

	store := newFakeStore()
	useFakes(t, store, nil)

	_, err := runCommand(t, s3RootCmd, "put", "bkt", src, "dst", "--config", conf)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(logDir, "success.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "--> dst/a.txt")

	general, err := os.ReadFile(filepath.Join(logDir, "general.log"))
	require.NoError(t, err)
	assert.Contains(t, string(general), "spent")
}

func TestStatusServerDuringRun(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})

	store := newFakeStore()
	useFakes(t, store, nil)

	_, err := runCommand(t, s3RootCmd, "put", "bkt", src, "dst", "--status-addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Equal(t, []string{"dst/a.txt"}, store.keys())
}
