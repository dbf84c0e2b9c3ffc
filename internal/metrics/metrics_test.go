package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector := NewCollector()

	assert.NotNil(t, collector, "NewCollector should return a non-nil collector")
	assert.NotNil(t, collector.closuresSubmitted)
	assert.NotNil(t, collector.closuresCompleted)
	assert.NotNil(t, collector.closuresFailed)
	assert.NotNil(t, collector.closuresCancelled)
	assert.NotNil(t, collector.closureLatency)
	assert.NotNil(t, collector.pendingWaits)
	assert.NotNil(t, collector.poolInFlight)
	assert.NotNil(t, collector.poolQueueDepth)
}

func TestRecordSubmit(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordSubmit()
	})

	for i := 0; i < 5; i++ {
		collector.RecordSubmit()
	}
}

func TestRecordCompleted(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	latencies := []float64{0.001, 0.01, 0.1, 1.0, 5.0}
	for _, latency := range latencies {
		assert.NotPanics(t, func() {
			collector.RecordCompleted(latency)
		}, "RecordCompleted should not panic with latency %f", latency)
	}
}

func TestRecordFailed(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordFailed(0.2)
	})

	for i := 0; i < 3; i++ {
		collector.RecordFailed(0.2)
	}
}

func TestRecordCancelled(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordCancelled()
	})

	for i := 0; i < 2; i++ {
		collector.RecordCancelled()
	}
}

func TestSetPendingWaits(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	for _, n := range []int{0, 1, 50} {
		assert.NotPanics(t, func() {
			collector.SetPendingWaits(n)
		}, "SetPendingWaits should not panic with n=%d", n)
	}
}

func TestSetPoolStats(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	testCases := []struct {
		name     string
		inFlight int
		queued   int
	}{
		{"zero values", 0, 0},
		{"normal values", 5, 10},
		{"high queue", 8, 100},
		{"high in-flight", 50, 5},
		{"equal values", 20, 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				collector.SetPoolStats(tc.inFlight, tc.queued)
			})
		})
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	done := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func() {
			collector.RecordSubmit()
			collector.RecordCompleted(0.1)
			collector.SetPoolStats(5, 10)
			done <- true
		}()
	}

	for i := 0; i < 100; i++ {
		<-done
	}
}

func TestCollectorIsolation(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector1 := NewCollector()
	require.NotNil(t, collector1)

	// A second collector against the same registry panics on duplicate
	// registration — a process should have only one collector.
	assert.Panics(t, func() {
		NewCollector()
	})
}

func TestClosureLifecycleSequence(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordSubmit()
		collector.SetPendingWaits(1)

		collector.SetPendingWaits(0)
		collector.SetPoolStats(1, 0)

		collector.RecordCompleted(0.5)
		collector.SetPoolStats(0, 0)
	}, "complete closure lifecycle should not panic")
}

func TestClosureFailureSequence(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordSubmit()
		collector.SetPoolStats(1, 0)
		collector.RecordFailed(0.3)
		collector.SetPoolStats(0, 0)
	}, "closure failure sequence should not panic")
}

func TestZeroAndNegativeValues(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordCompleted(0.0)
		collector.SetPendingWaits(0)
		collector.SetPoolStats(0, 0)
		collector.SetPoolStats(-1, -1) // negative values (shouldn't happen)
	}, "edge case values should not panic")
}
