package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

// Partition is an independent shard of the pool: its own bounded free
// queue, pending-release queue, and accounting.
// Partitioning replaces a single global lock with N independent ones,
// trading perfect fairness for reduced contention.
type Partition struct {
	index int

	freeQueue           chan *PooledConnection
	pendingReleaseQueue chan *PooledConnection

	createdCount       atomic.Int32
	maxConnections     int32
	unableToCreateMore atomic.Bool

	almostFullMu       sync.Mutex
	almostFullCond     *sync.Cond
	almostFullSignaled bool
	closed             atomic.Bool
}

func newPartition(index, maxConnections int) *Partition {
	p := &Partition{
		index:               index,
		freeQueue:           make(chan *PooledConnection, maxConnections),
		pendingReleaseQueue: make(chan *PooledConnection, maxConnections),
		maxConnections:      int32(maxConnections),
	}
	p.almostFullCond = sync.NewCond(&p.almostFullMu)
	return p
}

// Index returns the partition's position within the pool, used for
// metrics and log labeling.
func (p *Partition) Index() int { return p.index }

// MaxConnections returns the partition's bound.
func (p *Partition) MaxConnections() int { return int(p.maxConnections) }

// CreatedCount returns the partition's current live-connection count.
func (p *Partition) CreatedCount() int { return int(p.createdCount.Load()) }

// FreeLen returns the number of idle connections available right now.
func (p *Partition) FreeLen() int { return len(p.freeQueue) }

// UnableToCreateMore reports whether the factory-failure latch is set.
// Cleared only by postDestroy.
func (p *Partition) UnableToCreateMore() bool { return p.unableToCreateMore.Load() }

// signalAlmostFull wakes the PoolWatch loop; it is a lazy signal, not a
// semaphore, so spurious wakeups and missed signals are both tolerated.
func (p *Partition) signalAlmostFull() {
	p.almostFullMu.Lock()
	p.almostFullSignaled = true
	p.almostFullCond.Signal()
	p.almostFullMu.Unlock()
}

// waitAlmostFull blocks until signaled or the partition is closed for
// shutdown. It returns false once closed, telling the caller to stop.
func (p *Partition) waitAlmostFull() bool {
	p.almostFullMu.Lock()
	defer p.almostFullMu.Unlock()
	for !p.almostFullSignaled && !p.closed.Load() {
		p.almostFullCond.Wait()
	}
	p.almostFullSignaled = false
	return !p.closed.Load()
}

// closeWatch wakes any goroutine blocked in waitAlmostFull so PoolWatch can
// observe shutdown even though it is parked on a condition variable rather
// than a context.
func (p *Partition) closeWatch() {
	p.closed.Store(true)
	p.almostFullMu.Lock()
	p.almostFullCond.Broadcast()
	p.almostFullMu.Unlock()
}

// pollFree performs a non-blocking dequeue.
func (p *Partition) pollFree() *PooledConnection {
	select {
	case c := <-p.freeQueue:
		return c
	default:
		return nil
	}
}

// takeFree performs a blocking dequeue, cancellable via ctx.
func (p *Partition) takeFree(ctx context.Context) (*PooledConnection, error) {
	select {
	case c := <-p.freeQueue:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// offerFree performs a non-blocking enqueue.
func (p *Partition) offerFree(c *PooledConnection) bool {
	select {
	case p.freeQueue <- c:
		return true
	default:
		return false
	}
}

// putFree performs a blocking enqueue, guaranteed to eventually succeed
// under the accounting invariant createdCount <= maxConnections.
func (p *Partition) putFree(ctx context.Context, c *PooledConnection) error {
	select {
	case p.freeQueue <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drainFree empties the free queue without blocking, used by shutdown
// and by the idle tester's snapshot.
func (p *Partition) drainFree() []*PooledConnection {
	var out []*PooledConnection
	for {
		select {
		case c := <-p.freeQueue:
			out = append(out, c)
		default:
			return out
		}
	}
}

// putPendingRelease enqueues a connection for asynchronous release.
// Bounded by the same capacity as freeQueue, so the accounting invariant
// guarantees it cannot overflow.
func (p *Partition) putPendingRelease(ctx context.Context, c *PooledConnection) error {
	select {
	case p.pendingReleaseQueue <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// takePendingRelease is the ReleaseHelper loop's blocking-take.
// A nil value is the shutdown sentinel.
func (p *Partition) takePendingRelease(ctx context.Context) (*PooledConnection, error) {
	select {
	case c := <-p.pendingReleaseQueue:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
