// Package waitgraph aggregates N handles into one "all done" handle,
// optionally digesting their results, and propagates exceptions, exactly as
// described for the WaitGraph component: two maps (before/after) under a
// single lock, settled outside the lock once a dependency count reaches
// zero. Grounded on the original project's WaitGraph/WaitFuture pair.
package waitgraph

import (
	"sync"

	"github.com/reproducible-reporting/parman/pkg/future"
)

// Digest combines the terminal values of a WaitHandle's dependencies, in
// submission order, into the WaitHandle's own value. A cancelled dependency
// contributes nil. A nil Digest means the WaitHandle resolves to nil.
type Digest func(values []any) any

// WaitGraph tracks outstanding WaitHandle -> dependency edges.
type WaitGraph struct {
	mu     sync.Mutex
	before map[*future.Handle]map[*future.Handle]struct{} // waitHandle -> remaining deps
	after  map[*future.Handle]map[*future.Handle]struct{} // dep -> waiting waitHandles
	order  map[*future.Handle][]*future.Handle            // waitHandle -> deps in submission order
	digest map[*future.Handle]Digest
}

// New returns an empty WaitGraph.
func New() *WaitGraph {
	return &WaitGraph{
		before: make(map[*future.Handle]map[*future.Handle]struct{}),
		after:  make(map[*future.Handle]map[*future.Handle]struct{}),
		order:  make(map[*future.Handle][]*future.Handle),
		digest: make(map[*future.Handle]Digest),
	}
}

// Submit creates a new WaitHandle derived from deps. If deps is empty the
// WaitHandle is born terminal, resolved to digest(nil) (or nil with no
// digest). Otherwise it settles once every handle in deps has terminated.
func (g *WaitGraph) Submit(deps []*future.Handle, digest Digest) *future.Handle {
	w := future.New()

	if len(deps) == 0 {
		resolve(w, nil, digest)
		return w
	}

	unique := make(map[*future.Handle]struct{}, len(deps))
	for _, d := range deps {
		unique[d] = struct{}{}
	}

	g.mu.Lock()
	g.before[w] = unique
	g.order[w] = append([]*future.Handle(nil), deps...)
	g.digest[w] = digest
	for d := range unique {
		if g.after[d] == nil {
			g.after[d] = make(map[*future.Handle]struct{})
		}
		g.after[d][w] = struct{}{}
	}
	g.mu.Unlock()

	for d := range unique {
		d := d
		d.AddDoneCallback(func(*future.Handle) { g.onDepDone(d) })
	}

	return w
}

func (g *WaitGraph) onDepDone(d *future.Handle) {
	g.mu.Lock()
	waiting := g.after[d]
	delete(g.after, d)

	var ready []*future.Handle
	for w := range waiting {
		remaining, ok := g.before[w]
		if !ok {
			continue // already settled by a concurrent callback
		}
		delete(remaining, d)
		if len(remaining) == 0 {
			delete(g.before, w)
			ready = append(ready, w)
		}
	}

	type pending struct {
		deps   []*future.Handle
		digest Digest
	}
	settle := make(map[*future.Handle]pending, len(ready))
	for _, w := range ready {
		settle[w] = pending{deps: g.order[w], digest: g.digest[w]}
		delete(g.order, w)
		delete(g.digest, w)
	}
	g.mu.Unlock()

	for w, p := range settle {
		resolve(w, p.deps, p.digest)
	}
}

// resolve scans deps in submission order: the first exception found wins,
// propagated as-is; otherwise cancelled deps contribute nil and the
// collected values are passed to digest (or the WaitHandle resolves to nil
// with no digest).
func resolve(w *future.Handle, deps []*future.Handle, digest Digest) {
	values := make([]any, len(deps))
	for i, d := range deps {
		state, value, exc := d.Snapshot()
		switch state {
		case future.FinishedException:
			_ = w.SetException(exc)
			return
		case future.Cancelled:
			values[i] = nil
		default:
			values[i] = value
		}
	}

	var result any
	if digest != nil {
		result = digest(values)
	}
	_ = w.SetResult(result)
}
