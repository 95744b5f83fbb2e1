package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads a YAML config file through viper, applying CONNPOOL_-prefixed
// environment variable overrides on top (e.g. CONNPOOL_POOL_ACQUIRE_INCREMENT),
// and unmarshals the result into a Config seeded with Default() values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CONNPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// setDefaults seeds viper with cfg's zero-config defaults so that a config
// file only needs to specify overrides.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("pool.partition_count", cfg.Pool.PartitionCount)
	v.SetDefault("pool.min_connections_per_partition", cfg.Pool.MinConnectionsPerPartition)
	v.SetDefault("pool.max_connections_per_partition", cfg.Pool.MaxConnectionsPerPartition)
	v.SetDefault("pool.acquire_increment", cfg.Pool.AcquireIncrement)
	v.SetDefault("pool.idle_connection_test_period", cfg.Pool.IdleConnectionTestPeriod)
	v.SetDefault("pool.idle_max_age", cfg.Pool.IdleMaxAge)
	v.SetDefault("pool.release_helper_thread_count", cfg.Pool.ReleaseHelperThreadCount)
	v.SetDefault("observability.enable_metrics", cfg.Observability.EnableMetrics)
	v.SetDefault("observability.enable_tracing", cfg.Observability.EnableTracing)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.encoding", cfg.Logging.Encoding)
}
