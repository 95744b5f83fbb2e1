package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeClampsInvalidValues(t *testing.T) {
	cfg := &Config{
		Pool: PoolConfig{
			PartitionCount:             0,
			MinConnectionsPerPartition: 10,
			MaxConnectionsPerPartition: 5,
			AcquireIncrement:           0,
		},
	}
	require.NoError(t, cfg.Sanitize())

	assert.Equal(t, 1, cfg.Pool.PartitionCount)
	assert.Equal(t, 5, cfg.Pool.MinConnectionsPerPartition)
	assert.Equal(t, 5, cfg.Pool.MaxConnectionsPerPartition)
	assert.Equal(t, 1, cfg.Pool.AcquireIncrement)
}

func TestSanitizeRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Sanitize())
}

func TestSanitizeAcceptsKnownDrivers(t *testing.T) {
	for _, driver := range []string{"", "postgres", "mysql", "memory"} {
		cfg := Default()
		cfg.Database.Driver = driver
		assert.NoError(t, cfg.Sanitize())
	}
}

func TestDefaultClampsPartitionCount(t *testing.T) {
	cfg := Default()
	assert.GreaterOrEqual(t, cfg.Pool.PartitionCount, 1)
	assert.LessOrEqual(t, cfg.Pool.PartitionCount, 4)
}
