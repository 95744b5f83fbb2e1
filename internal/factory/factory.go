// Package factory provides the collaborator contract the pool depends on
// to open and probe database connections.
package factory

import "context"

// Statement is a prepared handle used only for the liveness probe when a
// ConnectionTestStatement is configured.
type Statement interface {
	Execute(ctx context.Context) error
	Close() error
}

// RawConnection is the opaque database handle produced by a
// ConnectionFactory. The pool touches it in exactly two places: the
// liveness probe (Prepare/Tables) and final teardown (Close). Everything
// else is the caller's business once a connection has been acquired.
type RawConnection interface {
	// Prepare compiles a liveness test statement when
	// config.PoolConfig.ConnectionTestStatement is set.
	Prepare(ctx context.Context, query string) (Statement, error)
	// Tables performs the metadata round trip used as a liveness probe
	// when no test statement is configured — the "BONECPKEEPALIVE"
	// sentinel lookup.
	Tables(ctx context.Context, pattern string) error
	// Close releases the underlying connection. The pool logs but never
	// surfaces errors from Close.
	Close() error
}

// ConnectionFactory produces RawConnection values. Open must
// be safe to call concurrently; it is only ever invoked from pool
// construction and from the PoolWatch loop.
type ConnectionFactory interface {
	Open(ctx context.Context) (RawConnection, error)
}
