package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nebulapool/connpool/internal/factory"
	"github.com/nebulapool/connpool/pkg/config"
	"github.com/nebulapool/connpool/pkg/testutil"
)

func TestConnectionTesterEvictsDeadConnections(t *testing.T) {
	cfg := config.Default()
	cfg.Pool.PartitionCount = 1
	cfg.Pool.MinConnectionsPerPartition = 2
	cfg.Pool.MaxConnectionsPerPartition = 4
	cfg.Pool.IdleConnectionTestPeriod = 10 * time.Millisecond
	cfg.Database.Driver = "memory"

	f := factory.NewMemory()
	p, err := New(cfg, f)
	require.NoError(t, err)
	defer p.Shutdown()

	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	part := p.partitions[0]
	for _, conn := range part.drainFree() {
		conn.Raw().(*factory.MemoryConnection).Alive.Store(false)
		require.NoError(t, part.putFree(ctx, conn))
	}

	testutil.AssertCreatedCountEventually(t, part.CreatedCount, 0, time.Second)
}

func TestConnectionTesterEvictsPastIdleMaxAge(t *testing.T) {
	cfg := config.Default()
	cfg.Pool.PartitionCount = 1
	cfg.Pool.MinConnectionsPerPartition = 1
	cfg.Pool.MaxConnectionsPerPartition = 4
	cfg.Pool.IdleConnectionTestPeriod = 10 * time.Millisecond
	cfg.Pool.IdleMaxAge = time.Millisecond
	cfg.Database.Driver = "memory"

	f := factory.NewMemory()
	p, err := New(cfg, f)
	require.NoError(t, err)
	defer p.Shutdown()

	time.Sleep(5 * time.Millisecond)

	testutil.AssertCreatedCountEventually(t, p.partitions[0].CreatedCount, 0, time.Second)
}
