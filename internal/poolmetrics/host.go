package poolmetrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/process"
)

var openFDs = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "connpool_process_open_fds",
	Help: "Open file descriptors for the process hosting the pool, sampled via gopsutil.",
})

// SampleHost refreshes connpool_process_open_fds from the current
// process. Every pooled connection holds at least one fd; watching this
// next to the created-connections gauge flags fd exhaustion before the OS
// starts refusing new sockets. cmd/connpoolctl calls this on a timer;
// nothing in internal/pool depends on it.
func SampleHost() error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	n, err := proc.NumFDs()
	if err != nil {
		return err
	}
	openFDs.Set(float64(n))
	return nil
}
