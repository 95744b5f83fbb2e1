// Package poolmetrics exposes the pool's counters as Prometheus metrics,
// following the same promauto registration pattern as this project's
// other components: package-level collectors registered once, wrapped by
// a Collector that adds pool/partition labels.
package poolmetrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leasedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "connpool_leased_connections",
		Help: "Connections currently checked out by callers.",
	}, []string{"pool", "partition"})

	freeGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "connpool_free_connections",
		Help: "Connections idle in a partition's free queue.",
	}, []string{"pool", "partition"})

	createdGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "connpool_created_connections",
		Help: "Connections currently open for a partition.",
	}, []string{"pool", "partition"})

	unableToCreateMoreGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "connpool_unable_to_create_more",
		Help: "1 when a partition's factory-failure latch is set, 0 otherwise.",
	}, []string{"pool", "partition"})

	acquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connpool_acquire_total",
		Help: "Total successful Acquire calls served per partition.",
	}, []string{"pool", "partition"})

	destroyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connpool_destroy_total",
		Help: "Total connections destroyed per partition.",
	}, []string{"pool", "partition"})

	starvationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connpool_starvation_total",
		Help: "Number of times a pool's starvation latch was tripped.",
	}, []string{"pool"})
)

// Collector adds a pool name label to the package's shared metric
// families. One Collector per Pool instance.
type Collector struct {
	poolName string
}

// NewCollector returns a Collector labeling all series with poolName.
func NewCollector(poolName string) *Collector {
	return &Collector{poolName: poolName}
}

// SetPartitionStats reports a partition's point-in-time gauges. PoolWatch
// calls it after each batch of connections it creates; between batches
// the gauges keep their last reported values.
func (c *Collector) SetPartitionStats(partition, leased, free, created int, unableToCreateMore bool) {
	p := strconv.Itoa(partition)
	leasedGauge.WithLabelValues(c.poolName, p).Set(float64(leased))
	freeGauge.WithLabelValues(c.poolName, p).Set(float64(free))
	createdGauge.WithLabelValues(c.poolName, p).Set(float64(created))
	v := 0.0
	if unableToCreateMore {
		v = 1
	}
	unableToCreateMoreGauge.WithLabelValues(c.poolName, p).Set(v)
}

// RecordAcquire increments the acquire counter for a partition.
func (c *Collector) RecordAcquire(partition int) {
	acquireTotal.WithLabelValues(c.poolName, strconv.Itoa(partition)).Inc()
}

// RecordDestroy increments the destroy counter for a partition.
func (c *Collector) RecordDestroy(partition int) {
	destroyTotal.WithLabelValues(c.poolName, strconv.Itoa(partition)).Inc()
}

// RecordStarvation increments the starvation counter for the pool.
func (c *Collector) RecordStarvation() {
	starvationTotal.WithLabelValues(c.poolName).Inc()
}
