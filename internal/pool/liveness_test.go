package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nebulapool/connpool/internal/factory"
	"github.com/nebulapool/connpool/pkg/config"
	"github.com/nebulapool/connpool/pkg/testutil"
)

func TestIsAliveUsesMetadataLookupByDefault(t *testing.T) {
	cfg := config.Default()
	p := &Pool{cfg: cfg}

	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	raw := &factory.MemoryConnection{}
	raw.Alive.Store(true)
	conn := newPooledConnection(raw, nil)

	assert.True(t, p.isAlive(ctx, conn))

	raw.Alive.Store(false)
	assert.False(t, p.isAlive(ctx, conn))
}

func TestIsAliveUsesConfiguredTestStatement(t *testing.T) {
	cfg := config.Default()
	cfg.Pool.ConnectionTestStatement = "SELECT 1"
	p := &Pool{cfg: cfg}

	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	raw := &factory.MemoryConnection{}
	raw.Alive.Store(true)
	conn := newPooledConnection(raw, nil)

	assert.True(t, p.isAlive(ctx, conn))
	assert.Equal(t, int64(1), raw.ExecCalls())

	raw.Alive.Store(false)
	assert.False(t, p.isAlive(ctx, conn))
}
