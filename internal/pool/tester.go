package pool

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nebulapool/connpool/pkg/logger"
)

// connectionTesterLoop is the idle-eviction background loop: on every
// tick it snapshots a partition's free queue and evicts connections
// that have exceeded IdleMaxAge or that fail the liveness probe,
// returning the rest. Disabled entirely when IdleConnectionTestPeriod
// is zero.
func (p *Pool) connectionTesterLoop(ctx context.Context, part *Partition) {
	defer p.wg.Done()

	period := p.cfg.Pool.IdleConnectionTestPeriod
	if period <= 0 {
		return
	}

	log := logger.WithContext(withLoopContext(ctx, p.name, part.Index(), "tester"))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.testPartitionIdleConnections(ctx, part, log)
		}
	}
}

func (p *Pool) testPartitionIdleConnections(ctx context.Context, part *Partition, log *zap.Logger) {
	snapshot := part.drainFree()
	maxAge := p.cfg.Pool.IdleMaxAge

	for _, conn := range snapshot {
		if maxAge > 0 && time.Since(conn.LastUsed()) >= maxAge {
			log.Debug("evicting idle connection past max age")
			p.postDestroy(conn)
			continue
		}
		if !p.isAlive(ctx, conn) {
			log.Warn("evicting connection that failed liveness probe")
			p.postDestroy(conn)
			continue
		}
		if !part.offerFree(conn) {
			// Another goroutine grew the queue past capacity between our
			// drain and this offer; fall back to a blocking put so the
			// connection is never silently dropped.
			if err := part.putFree(ctx, conn); err != nil {
				p.postDestroy(conn)
			}
		}
	}
}
