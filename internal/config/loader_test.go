package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps a developer's own goferry.yaml out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)
		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 1000, cfg.S3.MaxKeys)
		assert.Zero(t, cfg.S3.ListRateLimit)
		assert.False(t, cfg.S3.ForcePathStyle)
		assert.Empty(t, cfg.HDFS.Namenodes)
		assert.Equal(t, defaultStagingDir(), cfg.Staging.Dir)
		assert.True(t, filepath.IsAbs(cfg.Staging.Dir))
		assert.Equal(t, "staging", filepath.Base(cfg.Staging.Dir))
		assert.Equal(t, 16, cfg.Pipeline.QueueCapacity)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, 7, cfg.Logging.MaxAgeDays)
		assert.Empty(t, cfg.Status.Addr)
		assert.Equal(t, 5*time.Second, cfg.Status.ShutdownTimeout)
	})

	t.Run("RootStagingRejected", func(t *testing.T) {
		isolate(t)
		_, err := Load(ctx, map[string]any{"staging": map[string]any{"dir": "/"}})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "staging.dir", verr.Key)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)
		overrides := map[string]any{
			"pipeline": map[string]any{
				"queue_capacity": 4,
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, 4, cfg.Pipeline.QueueCapacity)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 1000, cfg.S3.MaxKeys)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("GOFERRY_S3_ENDPOINT", "http://localhost:9000")
		t.Setenv("GOFERRY_S3_FORCE_PATH_STYLE", "true")
		t.Setenv("GOFERRY_HDFS_NAMENODES", "nn1:8020,nn2:8020")
		t.Setenv("GOFERRY_LOGGING_LEVEL", "warn")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:9000", cfg.S3.Endpoint)
		assert.True(t, cfg.S3.ForcePathStyle)
		assert.Equal(t, []string{"nn1:8020", "nn2:8020"}, cfg.HDFS.Namenodes)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)
		t.Setenv("GOFERRY_PIPELINE_QUEUE_CAPACITY", "8")

		cfg, err := Load(ctx, map[string]any{
			"pipeline": map[string]any{"queue_capacity": 2},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Pipeline.QueueCapacity)
	})

	t.Run("DurationFromEnv", func(t *testing.T) {
		isolate(t)
		t.Setenv("GOFERRY_STATUS_SHUTDOWN_TIMEOUT", "45s")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, cfg.Status.ShutdownTimeout)
	})

	t.Run("SearchedFile", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", home)
		dir := filepath.Join(home, "goferry")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "goferry.yaml"),
			[]byte("staging:\n  dir: /data/staging\n"), 0o600))

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "/data/staging", cfg.Staging.Dir)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Load(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	isolate(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
s3:
  region: eu-west-1
  part_size_mb: 16
hdfs:
  namenodes: [nn:8020]
  user: etl
status:
  addr: ":9102"
`), 0o600))

	cfg, err := LoadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
	assert.Equal(t, []string{"nn:8020"}, cfg.HDFS.Namenodes)
	assert.Equal(t, ":9102", cfg.Status.Addr)

	s3cfg := cfg.S3Provider("warehouse")
	assert.Equal(t, "warehouse", s3cfg.Bucket)
	assert.Equal(t, "eu-west-1", s3cfg.Region)
	assert.Equal(t, int64(16<<20), s3cfg.PartSize)

	hcfg := cfg.HDFSProvider()
	assert.Equal(t, "etl", hcfg.User)

	_, err = LoadFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			S3:       S3Config{MaxKeys: 1000},
			Staging:  StagingConfig{Dir: "/tmp/staging"},
			Pipeline: PipelineConfig{QueueCapacity: 16},
			Logging:  LoggingConfig{Level: "info"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"relative staging", func(c *Config) { c.Staging.Dir = "staging" }, "staging.dir"},
		{"empty staging", func(c *Config) { c.Staging.Dir = "" }, "staging.dir"},
		{"root staging", func(c *Config) { c.Staging.Dir = "/" }, "staging.dir"},
		{"root staging unclean", func(c *Config) { c.Staging.Dir = "/tmp/.." }, "staging.dir"},
		{"zero queue", func(c *Config) { c.Pipeline.QueueCapacity = 0 }, "pipeline.queue_capacity"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"negative rotation", func(c *Config) { c.Logging.MaxAgeDays = -1 }, "logging"},
		{"max keys too large", func(c *Config) { c.S3.MaxKeys = 5000 }, "s3.max_keys"},
		{"negative rate", func(c *Config) { c.S3.ListRateLimit = -1 }, "s3.list_rate_limit"},
		{"negative part size", func(c *Config) { c.S3.PartSizeMB = -1 }, "s3"},
		{"empty namenode", func(c *Config) { c.HDFS.Namenodes = []string{"nn:8020", ""} }, "hdfs.namenodes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.key, verr.Key)
		})
	}
}
