package runner

import (
	"errors"
	"sync"

	"github.com/reproducible-reporting/parman/pkg/future"
	"github.com/reproducible-reporting/parman/pkg/metafunc"
	"github.com/reproducible-reporting/parman/pkg/scheduler"
	"github.com/reproducible-reporting/parman/pkg/tree"
	"github.com/reproducible-reporting/parman/pkg/waitgraph"
)

// submitFunc hands an already-unpacked closure (no *future.Handle leaves
// remain in its arguments) to a concrete backend (WorkerPool's executor) and
// returns the resulting WorkHandle. It must be safe to call from the
// scheduler's single submit goroutine.
type submitFunc func(c *metafunc.Closure) (*future.Handle, error)

// futureRunner is the FutureRunnerBase analogue: it turns Call(closure) into
// either an immediate (eager) or deferred (scheduled) submission, and always
// returns a promise tree of *future.Handle leaves rather than the raw
// WorkHandle, so that nested field access on a result (e.g. a templated
// job's "result.txt" path) gets its own independently awaitable handle.
type futureRunner struct {
	schedule  bool
	waitGraph *waitgraph.WaitGraph
	scheduler *scheduler.Scheduler
	submit    submitFunc

	mu      sync.Mutex
	futures []*future.Handle
}

func newFutureRunner(schedule bool, wg *waitgraph.WaitGraph, submit submitFunc) *futureRunner {
	if wg == nil {
		wg = waitgraph.New()
	}
	fr := &futureRunner{schedule: schedule, waitGraph: wg, submit: submit}
	if schedule {
		fr.scheduler = scheduler.New(fr.dispatch, wg)
	}
	return fr
}

// dispatch is the scheduler.UserSubmit callback: by the time the scheduler
// calls this, every dependency in the closure's argument tree is guaranteed
// terminal (the scheduler only queues a payload once its WaitGraph aggregate
// is done), so unpackAndSubmit never blocks here. A dependency that is not
// done at this point is an internal ordering error: dispatch returns it as
// an error, which fails that closure's ScheduledHandle.
func (fr *futureRunner) dispatch(payload any) (*future.Handle, error) {
	c := payload.(*metafunc.Closure)
	for _, d := range c.Dependencies() {
		if !d.Done() {
			return nil, errors.New("runner: closure dispatched before all its dependencies were done")
		}
	}
	return fr.unpackAndSubmit(c)
}

// unpackAndSubmit implements the original's _unpack_data/_wait_for_data: it
// replaces every *future.Handle leaf in c's arguments with that handle's
// resolved value, then calls submit. Two things diverge deliberately from a
// literal port, both to avoid the original's _wait_for_data calling
// Future.result() on a cancelled dependency and raising CancelledError
// synchronously inside the scheduler's single submit goroutine (which would
// wedge every other scheduled closure behind it):
//
//   - A cancelled dependency short-circuits the whole call to an
//     already-cancelled WorkHandle, propagating cancellation downstream
//     instead of unpacking at all (this is what makes cancelling a middle
//     node of a dependency chain cancel everything after it).
//   - The first dependency exception, if no dependency is cancelled, becomes
//     an already-failed WorkHandle rather than an in-goroutine panic.
func (fr *futureRunner) unpackAndSubmit(c *metafunc.Closure) (*future.Handle, error) {
	for _, d := range c.Dependencies() {
		if d.Cancelled() {
			cancelled := future.New()
			cancelled.Cancel()
			return cancelled, nil
		}
	}

	pos, kwargs, err := resolveArgs(c.Args.Pos, c.Args.Kwargs)
	if err != nil {
		// In eager mode a dependency can still be pending when Call is
		// invoked and only get cancelled while resolveArgs blocks on it; the
		// upfront Cancelled() checks above cannot catch that race, so it is
		// handled here too, keeping the outcome a Cancel rather than an
		// exception either way.
		if errors.Is(err, future.ErrCancelled) {
			cancelled := future.New()
			cancelled.Cancel()
			return cancelled, nil
		}
		failed := future.New()
		_ = failed.SetException(err)
		return failed, nil
	}

	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.submit(c.WithArgs(metafunc.Args{Pos: pos, Kwargs: kwargs}))
}

// resolveArgs replaces every *future.Handle leaf with its resolved value,
// blocking on each (they are either already terminal, in scheduled mode, or
// genuinely awaited here, in eager mode).
func resolveArgs(pos []any, kwargs map[string]any) ([]any, map[string]any, error) {
	var firstErr error
	resolveLeaf := func(_ []any, leaves []any) any {
		h, ok := leaves[0].(*future.Handle)
		if !ok {
			return leaves[0]
		}
		v, err := h.Result(nil)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}

	var outPos []any
	if pos != nil {
		outPos = tree.Transform(resolveLeaf, any(pos)).([]any)
	}
	var outKwargs map[string]any
	if kwargs != nil {
		outKwargs = tree.Transform(resolveLeaf, any(kwargs)).(map[string]any)
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}
	return outPos, outKwargs, nil
}

// call runs c through either the scheduler (deferred) or unpackAndSubmit
// (immediate), records the resulting WorkHandle for Shutdown to drain, and
// returns a promise tree built from the closure's result API.
func (fr *futureRunner) call(c *metafunc.Closure) (any, error) {
	var work *future.Handle
	if fr.schedule {
		scheduled, err := fr.scheduler.Submit(c, c.Dependencies())
		if err != nil {
			return nil, err
		}
		work = scheduled
	} else {
		w, err := fr.unpackAndSubmit(c)
		if err != nil {
			return nil, err
		}
		work = w
	}

	fr.mu.Lock()
	fr.futures = append(fr.futures, work)
	fr.mu.Unlock()

	resultAPI, err := c.MetaFunc.ResultAPI(c.Args)
	if err != nil {
		return nil, err
	}
	return promiseTree(work, resultAPI), nil
}

// promiseTree rebuilds resultAPI (a tree of *apitype.Spec leaves) as a tree
// of *future.Handle leaves, one per leaf position, each mirroring work's
// eventual outcome projected down to that position. Grounded on the
// original's _promise_data, but built on future.Derive rather than
// waitgraph.WaitGraph: see future.Derive's doc comment for why a 1:1
// projection, not an N:1 aggregation, is what makes cancelling work
// observable on every leaf (and, transitively, on every closure built from
// one of those leaves) instead of degrading to a nil value.
func promiseTree(work *future.Handle, resultAPI any) any {
	return tree.Transform(func(path []any, _ []any) any {
		leafPath := path
		return future.Derive(work, func(value any) any {
			return tree.Get(value, leafPath...)
		})
	}, resultAPI)
}

// shutdown drains the scheduler (if any) and then waits for every recorded
// WorkHandle/ScheduledHandle to terminate, joining every error encountered
// (cancellation is not treated as an error here: a deliberately cancelled
// node shutting down cleanly is not a shutdown failure).
func (fr *futureRunner) shutdown() error {
	if fr.schedule {
		fr.scheduler.Shutdown()
	}

	fr.mu.Lock()
	futures := fr.futures
	fr.mu.Unlock()

	var errs []error
	for _, h := range futures {
		if _, err := h.Result(nil); err != nil && !errors.Is(err, future.ErrCancelled) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
