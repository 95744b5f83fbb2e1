package pool

import (
	"bytes"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nebulapool/connpool/internal/factory"
	"github.com/nebulapool/connpool/pkg/config"
	"github.com/nebulapool/connpool/pkg/testutil"
)

// goroutineID extracts the calling goroutine's id from its own stack
// trace, used only to prove a callback ran off the caller's goroutine.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	fields := bytes.Fields(buf)
	id, _ := strconv.ParseUint(string(fields[1]), 10, 64)
	return id
}

func TestReleaseHelperDestroysBrokenConnectionAsynchronously(t *testing.T) {
	cfg := config.Default()
	cfg.Pool.PartitionCount = 1
	cfg.Pool.MinConnectionsPerPartition = 1
	cfg.Pool.MaxConnectionsPerPartition = 2
	cfg.Pool.IdleConnectionTestPeriod = 0
	cfg.Pool.ReleaseHelperThreadCount = 2
	cfg.Database.Driver = "memory"

	destroyGoroutine := make(chan uint64, 1)
	hook := &countingHook{
		onDestroy: func(*PooledConnection) { destroyGoroutine <- goroutineID() },
	}

	f := factory.NewMemory()
	p, err := New(cfg, f, WithHook(hook), WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)
	defer p.Shutdown()

	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	conn, err := p.Acquire(ctx)
	require.NoError(t, err)

	mem := conn.Raw().(*factory.MemoryConnection)
	mem.Alive.Store(false)
	conn.MarkPossiblyBroken()

	callerID := goroutineID()
	require.NoError(t, p.Release(ctx, conn))

	select {
	case gid := <-destroyGoroutine:
		require.NotEqual(t, callerID, gid, "destroy ran on the caller's own goroutine")
	case <-time.After(time.Second):
		t.Fatal("release helper never destroyed the broken connection")
	}

	testutil.AssertCreatedCountEventually(t, p.partitions[0].CreatedCount, 0, time.Second)
}

func TestReleaseHelperDrainsOnShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Pool.PartitionCount = 1
	cfg.Pool.MinConnectionsPerPartition = 1
	cfg.Pool.MaxConnectionsPerPartition = 2
	cfg.Pool.IdleConnectionTestPeriod = 0
	cfg.Pool.ReleaseHelperThreadCount = 3
	cfg.Database.Driver = "memory"

	f := factory.NewMemory()
	p, err := New(cfg, f, WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)

	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	conn, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, conn))

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not return; release helpers never exited")
	}
}
