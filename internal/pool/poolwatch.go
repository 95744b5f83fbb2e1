package pool

import (
	"context"

	"go.uber.org/zap"

	"github.com/nebulapool/connpool/pkg/logger"
)

// hitThreshold is the free-queue occupancy percentage below which a
// partition is considered "almost full" of leased connections and
// eligible for growth.
const hitThreshold = 20

// poolWatchLoop is the partition growth background loop: it parks on a
// partition's almost-full condition and, once signaled, grows the
// partition in batches of AcquireIncrement until the free ratio
// recovers, the partition hits its ceiling, or the factory starts
// failing.
func (p *Pool) poolWatchLoop(ctx context.Context, part *Partition) {
	defer p.wg.Done()
	log := logger.WithContext(withLoopContext(ctx, p.name, part.Index(), "poolwatch"))

	for {
		if !part.waitAlmostFull() {
			return
		}
		if ctx.Err() != nil {
			return
		}
		p.growPartition(ctx, part, log)
	}
}

// growPartition creates connections in batches until the partition is no
// longer almost-full, is at its ceiling, or the factory fails. A factory
// failure sets unableToCreateMore and stops growth for this partition
// until postDestroy clears the latch.
func (p *Pool) growPartition(ctx context.Context, part *Partition, log *zap.Logger) {
	for belowHitThreshold(part) &&
		part.CreatedCount() < part.MaxConnections() &&
		!part.UnableToCreateMore() {

		remaining := part.MaxConnections() - part.CreatedCount()
		batch := p.cfg.Pool.AcquireIncrement
		if batch > remaining {
			batch = remaining
		}

		for i := 0; i < batch; i++ {
			raw, err := p.factory.Open(ctx)
			if err != nil {
				part.unableToCreateMore.Store(true)
				log.Error("connection factory failed during growth", zap.Error(err))
				return
			}
			part.createdCount.Add(1)
			conn := newPooledConnection(raw, part)
			if err := part.putFree(ctx, conn); err != nil {
				// Shutdown raced us; the connection was created but never
				// published. Tear it down rather than leak it.
				part.createdCount.Add(-1)
				_ = raw.Close()
				return
			}
		}

		if p.metrics != nil {
			p.metrics.SetPartitionStats(part.Index(), part.CreatedCount()-part.FreeLen(), part.FreeLen(), part.CreatedCount(), part.UnableToCreateMore())
		}
	}
}

func belowHitThreshold(part *Partition) bool {
	max := part.MaxConnections()
	if max == 0 {
		return false
	}
	return part.FreeLen()*100/max < hitThreshold
}

// maybeSignalForMoreConnections wakes PoolWatch when a partition's free
// ratio has dropped under hitThreshold, unless the factory is already
// known to be failing.
func (p *Pool) maybeSignalForMoreConnections(part *Partition) {
	if part.UnableToCreateMore() {
		return
	}
	if belowHitThreshold(part) {
		part.signalAlmostFull()
	}
}
