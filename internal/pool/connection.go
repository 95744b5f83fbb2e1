package pool

import (
	"sync/atomic"
	"time"

	"github.com/nebulapool/connpool/internal/factory"
)

// Hook lets an embedding application observe checkout, checkin,
// release, and destroy events without reaching into pool internals.
// All four methods must tolerate being called from any of the pool's
// background goroutines; the pool recovers panics raised inside them
// and logs, rather than letting a broken hook corrupt pool state.
type Hook interface {
	OnCheckOut(conn *PooledConnection)
	OnCheckIn(conn *PooledConnection)
	// OnRelease runs on every release, before the possibly-broken check,
	// standing in for BoneCP's prepared-statement-cache eviction: this
	// pool caches no statements itself, so a Hook with nothing to evict can
	// leave it empty. Without an installed Hook nothing is called here.
	OnRelease(conn *PooledConnection)
	OnDestroy(conn *PooledConnection)
}

// PooledConnection wraps a factory.RawConnection with the bookkeeping the
// pool needs to route it back to its owning partition and decide whether
// it should be tested or retired.
type PooledConnection struct {
	raw factory.RawConnection

	origin atomic.Pointer[Partition]

	createdAtMillis int64
	lastUsedMillis  atomic.Int64
	possiblyBroken  atomic.Bool
}

func newPooledConnection(raw factory.RawConnection, origin *Partition) *PooledConnection {
	c := &PooledConnection{
		raw:             raw,
		createdAtMillis: time.Now().UnixMilli(),
	}
	c.origin.Store(origin)
	c.lastUsedMillis.Store(c.createdAtMillis)
	return c
}

// Raw returns the underlying database handle. Callers use it to issue
// application queries; the pool itself only calls it during the liveness
// probe.
func (c *PooledConnection) Raw() factory.RawConnection { return c.raw }

// Origin returns the partition this connection is currently attributed
// to. It changes across the connection's lifetime: cross-partition
// fallback on acquire and releaseIntoAnyFreePartition on release can both
// reassign it.
func (c *PooledConnection) Origin() *Partition { return c.origin.Load() }

func (c *PooledConnection) setOrigin(p *Partition) { c.origin.Store(p) }

// LastUsed returns the timestamp of the connection's last checkout or
// release, used by the ConnectionTester's idle-max-age eviction.
func (c *PooledConnection) LastUsed() time.Time {
	return time.UnixMilli(c.lastUsedMillis.Load())
}

func (c *PooledConnection) stampLastUsed() {
	c.lastUsedMillis.Store(time.Now().UnixMilli())
}

// MarkPossiblyBroken flags the connection as suspect after a failing SQL
// operation performed by the caller. Release will run the liveness
// probe before returning it to a free queue.
func (c *PooledConnection) MarkPossiblyBroken() { c.possiblyBroken.Store(true) }

// PossiblyBroken reports whether the connection is suspect.
func (c *PooledConnection) PossiblyBroken() bool { return c.possiblyBroken.Load() }

// renew clears the possibly-broken flag and stamps last-used, mirroring
// the source's renewConnection step on every successful acquire.
func (c *PooledConnection) renew() {
	c.possiblyBroken.Store(false)
	c.stampLastUsed()
}
