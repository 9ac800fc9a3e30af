// Package config loads goferry settings from defaults, an optional YAML file,
// GOFERRY_* environment variables and runtime overrides, in increasing order
// of precedence.
//
// The result is a plain value: the CLI builds it once and passes the pieces
// each adapter needs to its constructor.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/3leaps/goferry/pkg/provider/hdfs"
	"github.com/3leaps/goferry/pkg/provider/s3"
)

// Config is the full goferry configuration.
type Config struct {
	S3       S3Config       `mapstructure:"s3"`
	HDFS     HDFSConfig     `mapstructure:"hdfs"`
	Staging  StagingConfig  `mapstructure:"staging"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Status   StatusConfig   `mapstructure:"status"`
}

// S3Config holds object store connection settings. The bucket is a command
// argument, not a setting.
type S3Config struct {
	Endpoint        string  `mapstructure:"endpoint"`
	Region          string  `mapstructure:"region"`
	Profile         string  `mapstructure:"profile"`
	AccessKeyID     string  `mapstructure:"access_key_id"`
	SecretAccessKey string  `mapstructure:"secret_access_key"`
	ForcePathStyle  bool    `mapstructure:"force_path_style"`
	MaxKeys         int     `mapstructure:"max_keys"`
	ListRateLimit   float64 `mapstructure:"list_rate_limit"`
	PartSizeMB      int64   `mapstructure:"part_size_mb"`
	PartConcurrency int     `mapstructure:"part_concurrency"`
}

// HDFSConfig holds namenode settings. Empty namenodes fall back to the
// Hadoop configuration on the host.
type HDFSConfig struct {
	Namenodes []string `mapstructure:"namenodes"`
	User      string   `mapstructure:"user"`
}

// StagingConfig locates the local disk buffer.
type StagingConfig struct {
	Dir string `mapstructure:"dir"`
}

// PipelineConfig tunes the two-stage engine.
type PipelineConfig struct {
	QueueCapacity int `mapstructure:"queue_capacity"`
}

// LoggingConfig controls the general, success and failure logs.
type LoggingConfig struct {
	Level string `mapstructure:"level"`

	// Dir holds general.log, success.log and failure.log. Empty logs the
	// general channel to stderr only and discards the other two.
	Dir string `mapstructure:"dir"`

	MaxAgeDays int `mapstructure:"max_age_days"`
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
}

// StatusConfig controls the optional HTTP status endpoint.
type StatusConfig struct {
	// Addr is the listen address. Empty disables the server.
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ValidationError reports one invalid setting.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Message)
}

// Validate checks the settings that have no safe fallback.
func (c *Config) Validate() error {
	if c.Staging.Dir == "" || !filepath.IsAbs(c.Staging.Dir) {
		return &ValidationError{Key: "staging.dir", Message: "must be an absolute path"}
	}
	if filepath.Clean(c.Staging.Dir) == string(filepath.Separator) {
		return &ValidationError{Key: "staging.dir", Message: "must not be the filesystem root"}
	}
	if c.Pipeline.QueueCapacity < 1 {
		return &ValidationError{Key: "pipeline.queue_capacity", Message: "must be at least 1"}
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return &ValidationError{Key: "logging.level", Message: err.Error()}
	}
	if c.Logging.MaxAgeDays < 0 || c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return &ValidationError{Key: "logging", Message: "rotation limits must not be negative"}
	}
	if c.S3.MaxKeys < 0 || c.S3.MaxKeys > s3.MaxAllowedKeys {
		return &ValidationError{Key: "s3.max_keys", Message: fmt.Sprintf("must be between 0 and %d", s3.MaxAllowedKeys)}
	}
	if c.S3.ListRateLimit < 0 {
		return &ValidationError{Key: "s3.list_rate_limit", Message: "must not be negative"}
	}
	if c.S3.PartSizeMB < 0 || c.S3.PartConcurrency < 0 {
		return &ValidationError{Key: "s3", Message: "part settings must not be negative"}
	}
	for _, nn := range c.HDFS.Namenodes {
		if nn == "" {
			return &ValidationError{Key: "hdfs.namenodes", Message: "empty address"}
		}
	}
	return nil
}

// S3Provider returns the provider config for bucket.
func (c *Config) S3Provider(bucket string) s3.Config {
	return s3.Config{
		Bucket:          bucket,
		Region:          c.S3.Region,
		Endpoint:        c.S3.Endpoint,
		Profile:         c.S3.Profile,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		ForcePathStyle:  c.S3.ForcePathStyle,
		MaxKeys:         c.S3.MaxKeys,
		ListRateLimit:   c.S3.ListRateLimit,
		PartSize:        c.S3.PartSizeMB << 20,
		PartConcurrency: c.S3.PartConcurrency,
	}
}

// HDFSProvider returns the provider config for the namenodes.
func (c *Config) HDFSProvider() hdfs.Config {
	return hdfs.Config{
		Namenodes: c.HDFS.Namenodes,
		User:      c.HDFS.User,
	}
}
