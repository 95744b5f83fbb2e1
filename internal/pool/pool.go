// Package pool implements a partitioned database connection pool: bounded
// per-partition free queues, background growth and eviction loops, and
// cross-partition fallback on both acquire and release.
package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nebulapool/connpool/internal/factory"
	"github.com/nebulapool/connpool/internal/poolmetrics"
	"github.com/nebulapool/connpool/pkg/config"
	"github.com/nebulapool/connpool/pkg/logger"
	"github.com/nebulapool/connpool/pkg/observability"
	"github.com/nebulapool/connpool/pkg/poolerrors"
)

// maxConcurrentAsyncAcquire bounds how many AcquireAsync goroutines run
// Acquire at the same time. Goroutines beyond that bound are still
// started; they wait for a free slot before calling Acquire.
const maxConcurrentAsyncAcquire = 256

// Pool is a partitioned connection pool. Construct one with New; it
// starts its background loops immediately and must be stopped with
// Shutdown.
type Pool struct {
	name    string
	cfg     *config.Config
	factory factory.ConnectionFactory
	hook    Hook
	logger  *zap.Logger
	metrics *poolmetrics.Collector
	tracing bool

	partitions      []*Partition
	partitionCount  int
	homeCounter     atomic.Uint64
	starvationLatch atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup

	terminationLock sync.Mutex
	shutdownOnce    sync.Once
	shutdownFlag    atomic.Bool

	asyncSem chan struct{}
}

// Option customizes a Pool at construction time.
type Option func(*Pool)

// WithName sets the pool's identity, used in log fields and metric
// labels. Defaults to "connpool".
func WithName(name string) Option {
	return func(p *Pool) { p.name = name }
}

// WithHook installs a Hook to observe checkout/checkin/destroy events.
func WithHook(hook Hook) Option {
	return func(p *Pool) { p.hook = hook }
}

// WithLogger overrides the logger used by the pool's own methods (New,
// Acquire, Release, postDestroy, hook recovery). Defaults to logger.Get().
// The PoolWatch, ConnectionTester and ReleaseHelper loops log through
// logger.WithContext, which always uses the package-level logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithMetrics installs a poolmetrics.Collector. If omitted, the pool
// still runs correctly but reports no Prometheus series.
func WithMetrics(m *poolmetrics.Collector) Option {
	return func(p *Pool) { p.metrics = m }
}

// WithTracing enables otel spans around Acquire and Release.
func WithTracing(enabled bool) Option {
	return func(p *Pool) { p.tracing = enabled }
}

// New constructs a Pool, pre-creates MinConnectionsPerPartition
// connections per partition, and starts its background loops. If
// pre-creation fails partway through, every connection opened so far is
// closed and PoolInitFailed is returned.
func New(cfg *config.Config, f factory.ConnectionFactory, opts ...Option) (*Pool, error) {
	if err := cfg.Sanitize(); err != nil {
		return nil, poolerrors.PoolInitFailed(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:           "connpool",
		cfg:            cfg,
		factory:        f,
		logger:         logger.Get(),
		partitionCount: cfg.Pool.PartitionCount,
		cancel:         cancel,
		asyncSem:       make(chan struct{}, maxConcurrentAsyncAcquire),
	}
	for _, opt := range opts {
		opt(p)
	}
	if cfg.Observability.EnableTracing {
		p.tracing = true
	}
	if cfg.Pool.CloseConnectionWatch {
		p.logger.Warn("closeConnectionWatch is enabled but the debug watchdog is not implemented; this flag has no effect",
			zap.String("pool", p.name))
	}

	p.partitions = make([]*Partition, p.partitionCount)
	for i := range p.partitions {
		p.partitions[i] = newPartition(i, cfg.Pool.MaxConnectionsPerPartition)
	}

	if err := p.warmUp(ctx); err != nil {
		p.closeAllCreated()
		cancel()
		return nil, poolerrors.PoolInitFailed(err)
	}

	p.startBackgroundLoops(ctx)
	return p, nil
}

func (p *Pool) warmUp(ctx context.Context) error {
	for _, part := range p.partitions {
		for i := 0; i < p.cfg.Pool.MinConnectionsPerPartition; i++ {
			raw, err := p.factory.Open(ctx)
			if err != nil {
				return err
			}
			part.createdCount.Add(1)
			part.freeQueue <- newPooledConnection(raw, part)
		}
	}
	return nil
}

func (p *Pool) closeAllCreated() {
	for _, part := range p.partitions {
		for _, conn := range part.drainFree() {
			_ = conn.raw.Close()
		}
	}
}

func (p *Pool) startBackgroundLoops(ctx context.Context) {
	for _, part := range p.partitions {
		part := part

		p.wg.Add(1)
		go p.poolWatchLoop(ctx, part)

		if p.cfg.Pool.IdleConnectionTestPeriod > 0 {
			p.wg.Add(1)
			go p.connectionTesterLoop(ctx, part)
		}

		for i := 0; i < p.cfg.Pool.ReleaseHelperThreadCount; i++ {
			p.wg.Add(1)
			go p.releaseHelperLoop(ctx, part)
		}
	}
}

// Acquire checks out a connection, following the source's partition
// selection, growth signal, non-blocking attempt, cross-partition
// fallback, and starvation fallback sequence. ctx cancellation only
// takes effect once the pool has committed to blocking.
func (p *Pool) Acquire(ctx context.Context) (result *PooledConnection, err error) {
	if p.shutdownFlag.Load() {
		return nil, poolerrors.PoolShutDown()
	}

	homeIdx := int(p.homeCounter.Add(1) % uint64(p.partitionCount))
	home := p.partitions[homeIdx]
	chosen := home

	if p.tracing {
		var span trace.Span
		ctx, span = observability.StartAcquire(ctx, p.name, homeIdx)
		defer func() { observability.End(span, err) }()
	}

	if !home.UnableToCreateMore() {
		p.maybeSignalForMoreConnections(home)
	}

	if p.starvationLatch.Load() {
		result, err = home.takeFree(ctx)
		if err != nil {
			return nil, poolerrors.AcquireInterrupted(err)
		}
	} else {
		result = home.pollFree()
	}

	if result == nil {
		for i := 0; i < p.partitionCount; i++ {
			if i == homeIdx {
				continue
			}
			if c := p.partitions[i].pollFree(); c != nil {
				result = c
				chosen = p.partitions[i]
				break
			}
		}
	}

	if result == nil {
		if !p.starvationLatch.Swap(true) && p.metrics != nil {
			p.metrics.RecordStarvation()
		}
		result, err = home.takeFree(ctx)
		if err != nil {
			return nil, poolerrors.AcquireInterrupted(err)
		}
		chosen = home
	}

	result.setOrigin(chosen)
	result.renew()
	if p.hook != nil {
		p.safeHook(func() { p.hook.OnCheckOut(result) })
	}
	if p.metrics != nil {
		p.metrics.RecordAcquire(chosen.Index())
	}
	return result, nil
}

// AcquireResult is delivered on the channel returned by AcquireAsync.
type AcquireResult struct {
	Conn *PooledConnection
	Err  error
}

// AcquireAsync runs Acquire on a background goroutine and returns a
// single-value channel for the result. Every call starts one goroutine;
// at most maxConcurrentAsyncAcquire of them run Acquire at once, and the
// rest wait for a slot (or for ctx to be cancelled).
func (p *Pool) AcquireAsync(ctx context.Context) <-chan AcquireResult {
	out := make(chan AcquireResult, 1)
	go func() {
		select {
		case p.asyncSem <- struct{}{}:
			defer func() { <-p.asyncSem }()
		case <-ctx.Done():
			out <- AcquireResult{Err: poolerrors.AcquireInterrupted(ctx.Err())}
			close(out)
			return
		}
		conn, err := p.Acquire(ctx)
		out <- AcquireResult{Conn: conn, Err: err}
		close(out)
	}()
	return out
}

// Release returns conn to the pool, running the liveness probe if it
// was marked possibly-broken and otherwise placing it back in a free
// queue. Releasing a connection this pool did not create returns
// AlienConnection.
func (p *Pool) Release(ctx context.Context, conn *PooledConnection) (err error) {
	origin := conn.Origin()
	if origin == nil || !p.owns(origin) {
		return poolerrors.AlienConnection()
	}

	// A connection leased before Shutdown was called has nowhere left to
	// go: the free queues are being (or have been) drained and destroyed
	// out from under it. Close it directly rather than racing that drain.
	if p.shutdownFlag.Load() {
		_ = conn.raw.Close()
		return poolerrors.PoolShutDown()
	}

	if p.tracing {
		var span trace.Span
		ctx, span = observability.StartRelease(ctx, p.name, origin.Index())
		defer func() { observability.End(span, err) }()
	}

	if p.hook != nil {
		p.safeHook(func() { p.hook.OnCheckIn(conn) })
	}

	if p.cfg.Pool.ReleaseHelperThreadCount > 0 {
		if err := origin.putPendingRelease(ctx, conn); err != nil {
			return poolerrors.ReleaseInterrupted(err)
		}
		return nil
	}
	return p.internalRelease(ctx, conn)
}

// internalRelease performs the actual teardown-or-requeue decision,
// shared by Release (synchronous path) and releaseHelperLoop
// (asynchronous path).
func (p *Pool) internalRelease(ctx context.Context, conn *PooledConnection) error {
	if p.hook != nil {
		p.safeHook(func() { p.hook.OnRelease(conn) })
	}

	if conn.PossiblyBroken() && !p.isAlive(ctx, conn) {
		origin := conn.Origin()
		p.maybeSignalForMoreConnections(origin)
		p.postDestroy(conn)
		return nil
	}

	conn.stampLastUsed()
	return p.releaseIntoAnyFreePartition(ctx, conn, conn.Origin())
}

// releaseIntoAnyFreePartition tries the connection's own partition first,
// then scans every partition non-blocking, and finally blocks on the
// preferred partition as a last resort.
func (p *Pool) releaseIntoAnyFreePartition(ctx context.Context, conn *PooledConnection, preferred *Partition) error {
	if preferred.offerFree(conn) {
		return nil
	}
	for _, part := range p.partitions {
		if part.offerFree(conn) {
			conn.setOrigin(part)
			return nil
		}
	}
	if err := preferred.putFree(ctx, conn); err != nil {
		return poolerrors.ReleaseInterrupted(err)
	}
	return nil
}

// postDestroy tears a connection down for good: decrements its
// partition's created count, clears the factory-failure latch (a
// destroyed slot always makes room to try creating again), and invokes
// OnDestroy.
func (p *Pool) postDestroy(conn *PooledConnection) {
	origin := conn.Origin()
	origin.createdCount.Add(-1)
	origin.unableToCreateMore.Store(false)

	if p.hook != nil {
		p.safeHook(func() { p.hook.OnDestroy(conn) })
	}
	if err := conn.raw.Close(); err != nil {
		p.logger.Warn("error closing destroyed connection", zap.Error(err), zap.Int("partition", origin.Index()))
	}
	if p.metrics != nil {
		p.metrics.RecordDestroy(origin.Index())
	}
}

// Stats is a point-in-time snapshot of the pool's counters.
type Stats struct {
	TotalLeased  int
	TotalFree    int
	TotalCreated int
}

// Stats returns the pool's current counters, summed across partitions.
func (p *Pool) Stats() Stats {
	var s Stats
	for _, part := range p.partitions {
		created := part.CreatedCount()
		free := part.FreeLen()
		s.TotalCreated += created
		s.TotalFree += free
		s.TotalLeased += created - free
	}
	return s
}

// Shutdown stops every background loop and destroys every connection
// currently in a free queue. It is idempotent; only the first call has
// effect. Connections still checked out at the time of the call are
// unaffected until their caller releases them, at which point Release
// closes them directly instead of returning them to a partition.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.shutdownFlag.Store(true)
		p.cancel()

		for _, part := range p.partitions {
			part.closeWatch()
			for i := 0; i < p.cfg.Pool.ReleaseHelperThreadCount; i++ {
				select {
				case part.pendingReleaseQueue <- nil:
				default:
				}
			}
		}

		p.wg.Wait()
		p.terminateAllConnections()
	})
}

// terminateAllConnections drains and destroys every free connection. Its
// try-lock mirrors the source's terminationLock: a concurrent Shutdown
// call (impossible here since shutdownOnce already serializes it, but
// kept for a caller that reaches into internals during tests) is a no-op
// rather than a double-destroy.
func (p *Pool) terminateAllConnections() {
	if !p.terminationLock.TryLock() {
		return
	}
	defer p.terminationLock.Unlock()

	for _, part := range p.partitions {
		for _, conn := range part.drainFree() {
			p.postDestroy(conn)
		}
	}
}

func (p *Pool) owns(part *Partition) bool {
	for _, candidate := range p.partitions {
		if candidate == part {
			return true
		}
	}
	return false
}

// safeHook recovers a panic from a caller-supplied Hook method so a
// broken hook cannot corrupt pool state.
func (p *Pool) safeHook(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pool hook panicked", zap.Any("recover", r))
		}
	}()
	fn()
}

func withLoopContext(ctx context.Context, pool string, partition int, loop string) context.Context {
	ctx = context.WithValue(ctx, logger.PoolKey, pool)
	ctx = context.WithValue(ctx, logger.PartitionKey, partition)
	ctx = context.WithValue(ctx, logger.LoopKey, loop)
	return ctx
}
