package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GOFERRY_S3_ENDPOINT.
const EnvPrefix = "GOFERRY"

// DefaultConfigName is the file searched for when no path is given.
const DefaultConfigName = "goferry"

// Load builds a Config from defaults, a goferry.yaml found in the working
// directory or $XDG_CONFIG_HOME/goferry, the environment, and overrides.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, "", overrides...)
}

// LoadFile is Load with an explicit config file. An explicit file must
// exist; the searched-for default may be absent.
//
// Precedence, lowest first: defaults, file, environment, overrides.
func LoadFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := configHome(); dir != "" {
			v.AddConfigPath(filepath.Join(dir, DefaultConfigName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.profile", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.force_path_style", false)
	v.SetDefault("s3.max_keys", 1000)
	v.SetDefault("s3.list_rate_limit", 0)
	v.SetDefault("s3.part_size_mb", 0)
	v.SetDefault("s3.part_concurrency", 0)

	v.SetDefault("hdfs.namenodes", []string{})
	v.SetDefault("hdfs.user", "")

	v.SetDefault("staging.dir", defaultStagingDir())

	v.SetDefault("pipeline.queue_capacity", 16)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dir", "")
	v.SetDefault("logging.max_age_days", 7)
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 0)

	v.SetDefault("status.addr", "")
	v.SetDefault("status.shutdown_timeout", "5s")
}

// defaultStagingDir is the staging directory under the app data dir, or
// under the temp dir when no data dir can be derived.
func defaultStagingDir() string {
	if dir := gfconfig.GetAppDataDir(DefaultConfigName); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, "staging")
	}
	return filepath.Join(os.TempDir(), DefaultConfigName, "staging")
}

func configHome() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir
}

// flatten maps the dotted leaf keys of a nested override map to their
// values.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = val
	}
	return out
}
