// Package connpool provides a partitioned database connection pool: a
// bounded checkout/checkin engine backed by independent partitions, each
// with its own free queue, pending-release queue, and background
// maintenance loops.
//
// # Architecture
//
// A Pool is divided into N partitions, each an independent shard with a
// bounded free queue and its own accounting (spec'd on BoneCP's
// partitioned design). Partitioning trades perfect fairness for reduced
// lock contention: Acquire prefers a caller's home partition and Release
// prefers the connection's origin partition; each falls back to scanning
// the rest only when that partition is empty or full.
//
// Three background loops keep a partition healthy:
//
//   - PoolWatch grows a partition in batches once its free ratio drops
//     below a threshold, up to its configured ceiling.
//   - ConnectionTester periodically evicts idle connections that have
//     exceeded their max age or failed a liveness probe.
//   - ReleaseHelper, when enabled, offloads the possibly-blocking work of
//     returning a connection onto dedicated goroutines instead of the
//     caller's own.
//
// # Quick start
//
//	cfg := config.Default()
//	cfg.Database.Driver = "postgres"
//	cfg.Database.DSN = "postgres://localhost/app"
//
//	p, err := pool.New(cfg, factory.NewPostgres(cfg.Database.DSN))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown()
//
//	conn, err := p.Acquire(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Release(ctx, conn)
//
// # Key packages
//
//	internal/pool        - the partitioned checkout/checkin engine
//	internal/factory      - ConnectionFactory implementations (postgres, mysql, memory)
//	internal/poolmetrics  - Prometheus counters and gopsutil host sampling
//	pkg/config            - configuration loading and sanitization
//	pkg/logger            - structured logging
//	pkg/poolerrors        - structured error kinds
//	pkg/observability     - optional distributed tracing around acquire/release
//	cmd/connpoolctl       - CLI: serve, validate, version
package connpool
