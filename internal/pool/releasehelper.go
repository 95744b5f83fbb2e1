package pool

import (
	"context"

	"go.uber.org/zap"

	"github.com/nebulapool/connpool/pkg/logger"
)

// releaseHelperLoop is the async-release background loop: when
// ReleaseHelperThreadCount is greater than zero, Release offloads the
// possibly-blocking teardown work onto these goroutines instead of
// doing it on the caller's goroutine. It exits either when ctx is
// cancelled during shutdown or when it dequeues the nil shutdown
// sentinel.
func (p *Pool) releaseHelperLoop(ctx context.Context, part *Partition) {
	defer p.wg.Done()
	log := logger.WithContext(withLoopContext(ctx, p.name, part.Index(), "releasehelper"))

	for {
		conn, err := part.takePendingRelease(ctx)
		if err != nil {
			return
		}
		if conn == nil {
			return
		}
		if err := p.internalRelease(ctx, conn); err != nil {
			logReleaseHelperError(log, err)
		}
	}
}

func logReleaseHelperError(log *zap.Logger, err error) {
	log.Warn("release helper: internal release failed", zap.Error(err))
}
