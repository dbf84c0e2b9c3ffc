// Package runner provides the backends that actually invoke a
// metafunc.Closure: Serial (synchronous, no futures), Dry (validates and
// mocks, never executes), and WorkerPool (backed by pkg/executor/workerpool,
// in either eager or scheduled mode). Ported from the original project's
// runners/base.py, runners/serial.py, runners/dry.py, runners/future.py,
// runners/concurrent.py.
package runner

import "github.com/reproducible-reporting/parman/pkg/metafunc"

// Runner is the RunnerBase analogue: validate parameters, invoke the
// function (somewhere), validate the result. Call may return either the
// actual result tree (Serial, Dry) or a tree of *future.Handle leaves
// congruent to the closure's result API (WorkerPool) — callers that build
// further closures from the return value only care that metafunc.Closure's
// Dependencies() walk finds whichever handles are present; a tree with none
// is simply a closure with no unresolved dependencies.
type Runner interface {
	Call(c *metafunc.Closure) (any, error)
	// Shutdown waits until all work submitted through Call has completed,
	// surfacing every error encountered (if any), joined into one.
	Shutdown() error
}
