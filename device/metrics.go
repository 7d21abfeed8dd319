package device

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	kernelLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lollipop_gg",
		Subsystem: "device",
		Name:      "kernel_launches_total",
		Help:      "Kernel launches by kernel name",
	}, []string{"kernel"})

	launchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lollipop_gg",
		Subsystem: "device",
		Name:      "launch_seconds",
		Help:      "Wall time from launch to completion of a kernel",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
	}, []string{"kernel"})

	// direction is "htod" or "dtoh".
	transferBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lollipop_gg",
		Subsystem: "device",
		Name:      "transfer_bytes_total",
		Help:      "Bytes copied between host and device copies of state arrays",
	}, []string{"direction"})

	worklistPushes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lollipop_gg",
		Subsystem: "device",
		Name:      "worklist_pushes_total",
		Help:      "Vertices admitted into outgoing frontiers",
	})

	executionFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lollipop_gg",
		Subsystem: "device",
		Name:      "execution_faults_total",
		Help:      "Launches aborted by an execution fault",
	}, []string{"kernel"})
)
