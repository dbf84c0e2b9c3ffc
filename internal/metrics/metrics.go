// Package metrics collects and exposes Prometheus metrics for the
// scheduler/runner/executor pipeline (spec.md §9's ambient observability
// concern — carried even though the core spec's Non-goals exclude a
// distributed metrics backend, since structured observability of a single
// process is not itself a Non-goal).
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Collector collects Prometheus metrics for one runner/scheduler instance.
type Collector struct {
	closuresSubmitted prometheus.Counter
	closuresCompleted prometheus.Counter
	closuresFailed    prometheus.Counter
	closuresCancelled prometheus.Counter

	closureLatency prometheus.Histogram

	pendingWaits   prometheus.Gauge
	poolInFlight   prometheus.Gauge
	poolQueueDepth prometheus.Gauge
}

// NewCollector creates and registers a new metrics collector.
func NewCollector() *Collector {
	c := &Collector{
		closuresSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parman_closures_submitted_total",
			Help: "Total number of closures submitted to a runner",
		}),
		closuresCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parman_closures_completed_total",
			Help: "Total number of closures that finished without error",
		}),
		closuresFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parman_closures_failed_total",
			Help: "Total number of closures that finished with an error",
		}),
		closuresCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parman_closures_cancelled_total",
			Help: "Total number of closures cancelled before or during execution",
		}),
		closureLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "parman_closure_latency_seconds",
			Help:    "Time from closure submission to resolution, in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		pendingWaits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parman_scheduler_pending_waits",
			Help: "Current number of closures waiting on unresolved dependencies",
		}),
		poolInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parman_executor_pool_in_flight",
			Help: "Current number of tasks running in the worker pool",
		}),
		poolQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parman_executor_pool_queue_depth",
			Help: "Current number of tasks queued but not yet picked up by a worker",
		}),
	}

	prometheus.MustRegister(c.closuresSubmitted)
	prometheus.MustRegister(c.closuresCompleted)
	prometheus.MustRegister(c.closuresFailed)
	prometheus.MustRegister(c.closuresCancelled)
	prometheus.MustRegister(c.closureLatency)
	prometheus.MustRegister(c.pendingWaits)
	prometheus.MustRegister(c.poolInFlight)
	prometheus.MustRegister(c.poolQueueDepth)

	return c
}

// RecordSubmit records a closure being submitted to a runner.
func (c *Collector) RecordSubmit() {
	c.closuresSubmitted.Inc()
}

// RecordCompleted records a closure resolving successfully, with its
// submit-to-resolve latency.
func (c *Collector) RecordCompleted(latencySeconds float64) {
	c.closuresCompleted.Inc()
	c.closureLatency.Observe(latencySeconds)
}

// RecordFailed records a closure resolving with an error, with its
// submit-to-resolve latency.
func (c *Collector) RecordFailed(latencySeconds float64) {
	c.closuresFailed.Inc()
	c.closureLatency.Observe(latencySeconds)
}

// RecordCancelled records a closure being cancelled.
func (c *Collector) RecordCancelled() {
	c.closuresCancelled.Inc()
}

// SetPendingWaits sets the current count of closures blocked on
// dependencies (the scheduler's live WaitGraph aggregate count).
func (c *Collector) SetPendingWaits(n int) {
	c.pendingWaits.Set(float64(n))
}

// SetPoolStats sets the worker pool's current in-flight and queued task
// counts.
func (c *Collector) SetPoolStats(inFlight, queued int) {
	c.poolInFlight.Set(float64(inFlight))
	c.poolQueueDepth.Set(float64(queued))
}

// Counts reports the current values of the submitted/completed/failed/
// cancelled counters, for callers that want to inspect a collector directly
// rather than scrape /metrics over HTTP (tests, in-process diagnostics).
func (c *Collector) Counts() (submitted, completed, failed, cancelled int) {
	return int(testutil.ToFloat64(c.closuresSubmitted)),
		int(testutil.ToFloat64(c.closuresCompleted)),
		int(testutil.ToFloat64(c.closuresFailed)),
		int(testutil.ToFloat64(c.closuresCancelled))
}

// StartServer starts a Prometheus metrics HTTP server on port, serving
// /metrics in the standard exposition format. Blocks until the server
// stops or errors.
func StartServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, nil)
}
