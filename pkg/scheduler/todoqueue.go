package scheduler

import (
	"sync"

	"github.com/reproducible-reporting/parman/pkg/future"
)

// todoItem is one ScheduledHandle whose dependencies have resolved and which
// is ready to be handed to UserSubmit. A nil *todoItem pushed onto the queue
// is the shutdown sentinel.
type todoItem struct {
	scheduled *future.Handle
	payload   any
}

// todoQueue is an unbounded FIFO, the Go analogue of Python's SimpleQueue:
// push never blocks, pop blocks until an item is available.
type todoQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []*todoItem
}

func newTodoQueue() *todoQueue {
	q := &todoQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *todoQueue) push(item *todoItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until an item is pushed, then returns it. A nil item (the
// shutdown sentinel) is reported as ok=false; the caller's loop exits.
func (q *todoQueue) pop() (*todoItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	item := q.items[0]
	q.items = q.items[1:]
	if item == nil {
		return nil, false
	}
	return item, true
}
