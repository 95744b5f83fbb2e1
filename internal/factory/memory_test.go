package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFactoryOpenAssignsDistinctIDs(t *testing.T) {
	f := NewMemory()
	c1, err := f.Open(context.Background())
	require.NoError(t, err)
	c2, err := f.Open(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, c1.(*MemoryConnection).ID, c2.(*MemoryConnection).ID)
	assert.Equal(t, int64(2), f.OpenCalls.Load())
}

func TestMemoryFactoryFailReturnsError(t *testing.T) {
	f := NewMemory()
	f.Fail.Store(true)
	_, err := f.Open(context.Background())
	assert.Error(t, err)
}

func TestMemoryConnectionTablesReflectsAliveFlag(t *testing.T) {
	f := NewMemory()
	raw, err := f.Open(context.Background())
	require.NoError(t, err)
	conn := raw.(*MemoryConnection)

	assert.NoError(t, conn.Tables(context.Background(), "BONECPKEEPALIVE"))

	conn.Alive.Store(false)
	assert.Error(t, conn.Tables(context.Background(), "BONECPKEEPALIVE"))
}

func TestMemoryConnectionCloseMarksClosed(t *testing.T) {
	f := NewMemory()
	raw, err := f.Open(context.Background())
	require.NoError(t, err)
	conn := raw.(*MemoryConnection)

	require.NoError(t, conn.Close())
	assert.True(t, conn.Closed())
}

func TestMemoryStatementExecuteCountsCalls(t *testing.T) {
	f := NewMemory()
	raw, err := f.Open(context.Background())
	require.NoError(t, err)
	conn := raw.(*MemoryConnection)

	stmt, err := conn.Prepare(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, stmt.Execute(context.Background()))
	require.NoError(t, stmt.Close())
	assert.Equal(t, int64(1), conn.ExecCalls())
}
