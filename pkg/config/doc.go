// Package config provides the configuration structure for the connection
// pool, following the same section-per-concern layout used across this
// project's other components: a top-level Config with nested, tagged
// structs for each configuration domain.
//
// # Loading
//
// Config is normally loaded with Load, which reads a YAML file through
// viper and applies environment-variable overrides prefixed CONNPOOL_
// (e.g. CONNPOOL_POOL_MAX_CONNECTIONS_PER_PARTITION overrides
// pool.max_connections_per_partition). Programmatic construction is also
// supported via Default(), followed by direct field assignment.
//
//	cfg, err := config.Load("connpool.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Sanitize(); err != nil {
//	    log.Fatal(err)
//	}
package config
