package runner

import (
	"github.com/reproducible-reporting/parman/pkg/executor/workerpool"
	"github.com/reproducible-reporting/parman/pkg/future"
	"github.com/reproducible-reporting/parman/pkg/metafunc"
	"github.com/reproducible-reporting/parman/pkg/waitgraph"
)

// WorkerPool runs closures on an in-process goroutine pool, the
// ConcurrentRunner analogue. With Schedule true, submission of a closure is
// deferred until every dependency in its argument tree has terminated
// (backed by pkg/scheduler); with Schedule false ("eager"), Call blocks the
// caller while resolving dependencies and submits immediately afterwards.
// Either way Call returns a tree of *future.Handle promises, never the raw
// result; in scheduled mode it returns without waiting on dependencies.
type WorkerPool struct {
	pool *workerpool.Pool
	fr   *futureRunner
}

// WorkerPoolOptions configures a WorkerPool.
type WorkerPoolOptions struct {
	// Workers is the goroutine pool size (runtime.NumCPU() if <= 0).
	Workers int
	// Schedule enables deferred (dependency-aware) submission. Eager by
	// default, matching the original's ConcurrentRunner default.
	Schedule bool
	// WaitGraph is shared across runners that need to interoperate; a fresh
	// one is created if nil.
	WaitGraph *waitgraph.WaitGraph
}

// NewWorkerPool constructs a WorkerPool per opts.
func NewWorkerPool(opts WorkerPoolOptions) *WorkerPool {
	wp := &WorkerPool{pool: workerpool.New(opts.Workers)}
	wp.fr = newFutureRunner(opts.Schedule, opts.WaitGraph, wp.submit)
	return wp
}

// submit is the futureRunner's submitFunc: the closure has already had
// every dependency handle replaced by its resolved value, so ValidatedCall
// never blocks on anything but the work itself.
func (wp *WorkerPool) submit(c *metafunc.Closure) (*future.Handle, error) {
	return wp.pool.Submit(func() (any, error) { return c.ValidatedCall() })
}

// Call runs c through the pool (eagerly or scheduled, per Schedule) and
// returns a promise tree congruent to c's result API.
func (wp *WorkerPool) Call(c *metafunc.Closure) (any, error) {
	return wp.fr.call(c)
}

// Shutdown stops the scheduler (if scheduled mode is in use), waits for all
// submitted work to finish, and shuts down the backing pool.
func (wp *WorkerPool) Shutdown() error {
	err := wp.fr.shutdown()
	wp.pool.Shutdown()
	return err
}
