package config

import (
	"runtime"
	"time"

	"github.com/nebulapool/connpool/pkg/poolerrors"
)

// DatabaseConfig carries the collaborator connection details handed to a
// ConnectionFactory. Driver selects which concrete factory
// implementation cmd/connpoolctl wires up.
type DatabaseConfig struct {
	// Driver is "postgres", "mysql" or "memory"; empty selects "memory".
	Driver   string `yaml:"driver" json:"driver"`
	DSN      string `yaml:"dsn" json:"dsn"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PoolConfig holds every option the pool recognizes plus the values
// PoolWatch and ConnectionTester need expressed as Go durations rather
// than millis.
type PoolConfig struct {
	PartitionCount             int           `yaml:"partition_count" json:"partition_count"`
	MinConnectionsPerPartition int           `yaml:"min_connections_per_partition" json:"min_connections_per_partition"`
	MaxConnectionsPerPartition int           `yaml:"max_connections_per_partition" json:"max_connections_per_partition"`
	AcquireIncrement           int           `yaml:"acquire_increment" json:"acquire_increment"`
	IdleConnectionTestPeriod   time.Duration `yaml:"idle_connection_test_period" json:"idle_connection_test_period"`
	IdleMaxAge                 time.Duration `yaml:"idle_max_age" json:"idle_max_age"`
	ConnectionTestStatement    string        `yaml:"connection_test_statement" json:"connection_test_statement"`
	ReleaseHelperThreadCount   int           `yaml:"release_helper_thread_count" json:"release_helper_thread_count"`
	// CloseConnectionWatch is recognized for config round-tripping but the
	// debug watchdog itself isn't implemented; New logs a warning when
	// this is set true instead.
	CloseConnectionWatch bool `yaml:"close_connection_watch" json:"close_connection_watch"`
}

// ObservabilityConfig toggles the ambient metrics/tracing surface.
type ObservabilityConfig struct {
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
}

// LoggingConfig is the single source of truth for logger construction,
// kept in this package (rather than pkg/logger) so it can be unmarshaled
// from YAML without importing zap here.
type LoggingConfig struct {
	Level       string   `yaml:"level" json:"level"`
	Development bool     `yaml:"development" json:"development"`
	Encoding    string   `yaml:"encoding" json:"encoding"`
	OutputPaths []string `yaml:"output_paths" json:"output_paths"`
}

// Config is the full, immutable-once-loaded configuration object referenced
// throughout the pool.
type Config struct {
	Database      DatabaseConfig      `yaml:"database" json:"database"`
	Pool          PoolConfig          `yaml:"pool" json:"pool"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
}

// Default returns a Config with sensible defaults, scaling partition
// count to the host's CPU count.
func Default() *Config {
	partitions := runtime.NumCPU()
	if partitions < 1 {
		partitions = 1
	}
	if partitions > 4 {
		partitions = 4
	}
	return &Config{
		Pool: PoolConfig{
			PartitionCount:             partitions,
			MinConnectionsPerPartition: 5,
			MaxConnectionsPerPartition: 20,
			AcquireIncrement:           5,
			IdleConnectionTestPeriod:   60 * time.Second,
			IdleMaxAge:                 10 * time.Minute,
			ReleaseHelperThreadCount:   0,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			EnableTracing: false,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Sanitize clamps invalid values in place and reports configuration that
// cannot be repaired.
func (c *Config) Sanitize() error {
	if c.Pool.PartitionCount < 1 {
		c.Pool.PartitionCount = 1
	}
	if c.Pool.MinConnectionsPerPartition < 0 {
		c.Pool.MinConnectionsPerPartition = 0
	}
	if c.Pool.MaxConnectionsPerPartition < 1 {
		c.Pool.MaxConnectionsPerPartition = 1
	}
	if c.Pool.MinConnectionsPerPartition > c.Pool.MaxConnectionsPerPartition {
		c.Pool.MinConnectionsPerPartition = c.Pool.MaxConnectionsPerPartition
	}
	if c.Pool.AcquireIncrement < 1 {
		c.Pool.AcquireIncrement = 1
	}
	if c.Pool.ReleaseHelperThreadCount < 0 {
		c.Pool.ReleaseHelperThreadCount = 0
	}
	if c.Pool.IdleConnectionTestPeriod < 0 {
		c.Pool.IdleConnectionTestPeriod = 0
	}
	if c.Pool.IdleMaxAge < 0 {
		c.Pool.IdleMaxAge = 0
	}
	if c.Database.Driver != "" && c.Database.Driver != "postgres" && c.Database.Driver != "mysql" && c.Database.Driver != "memory" {
		return poolerrors.InvalidConfig("unrecognized database driver: " + c.Database.Driver)
	}
	return nil
}
