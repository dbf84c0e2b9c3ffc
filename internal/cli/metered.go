package cli

import (
	"sync"
	"time"

	"github.com/reproducible-reporting/parman/internal/metrics"
	"github.com/reproducible-reporting/parman/pkg/future"
	"github.com/reproducible-reporting/parman/pkg/metafunc"
	"github.com/reproducible-reporting/parman/pkg/runner"
	"github.com/reproducible-reporting/parman/pkg/tree"
)

// meteredRunner wraps another runner.Runner, recording every closure's
// submission and eventual outcome on a metrics.Collector. It is a plain
// decorator rather than a new backend: Call/Shutdown both pass straight
// through to inner, so wrapping never changes scheduling behavior.
type meteredRunner struct {
	inner     runner.Runner
	collector *metrics.Collector
}

func newMeteredRunner(inner runner.Runner, collector *metrics.Collector) *meteredRunner {
	return &meteredRunner{inner: inner, collector: collector}
}

func (m *meteredRunner) Call(c *metafunc.Closure) (any, error) {
	start := time.Now()
	m.collector.RecordSubmit()

	result, err := m.inner.Call(c)
	if err != nil {
		m.collector.RecordFailed(time.Since(start).Seconds())
		return nil, err
	}

	// result.(*future.Handle) only catches a bare-leaf promise tree.
	// runner.WorkerPool derives a promise tree congruent to the result's own
	// shape (pkg/runner/future_base.go's promiseTree), so a result whose mock
	// is itself a []any/map[string]any comes back as a []any/map[string]any
	// of *future.Handle leaves, not a single Handle. (A typed slice mock such
	// as templates/boot's []apitype.FilePath is one leaf, so one Handle.)
	// Walk it with pkg/tree to find every leaf handle, wherever it sits.
	var handles []*future.Handle
	_ = tree.Walk(func(_ []any, leaves []any) error {
		if h, ok := leaves[0].(*future.Handle); ok {
			handles = append(handles, h)
		}
		return nil
	}, result)

	if len(handles) == 0 {
		// runner.Serial: the result is already final, with no handles at all.
		m.collector.RecordCompleted(time.Since(start).Seconds())
		return result, nil
	}

	m.recordWhenAllDone(handles, start)
	return result, nil
}

// recordWhenAllDone attaches a done-callback to every handle in a promise
// tree and records exactly one outcome once the last of them settles: failed
// if any leaf failed, else cancelled if any leaf was cancelled, else
// completed. A handle's Cancelled state carries no error, so the decision
// switches on State(), not on err.
func (m *meteredRunner) recordWhenAllDone(handles []*future.Handle, start time.Time) {
	var mu sync.Mutex
	remaining := len(handles)
	anyFailed := false
	anyCancelled := false

	for _, h := range handles {
		h.AddDoneCallback(func(h *future.Handle) {
			state, _, _ := h.Snapshot()

			mu.Lock()
			defer mu.Unlock()
			switch state {
			case future.FinishedException:
				anyFailed = true
			case future.Cancelled:
				anyCancelled = true
			}
			remaining--
			if remaining > 0 {
				return
			}
			switch {
			case anyFailed:
				m.collector.RecordFailed(time.Since(start).Seconds())
			case anyCancelled:
				m.collector.RecordCancelled()
			default:
				m.collector.RecordCompleted(time.Since(start).Seconds())
			}
		})
	}
}

func (m *meteredRunner) Shutdown() error { return m.inner.Shutdown() }
