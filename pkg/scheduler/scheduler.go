// Package scheduler delays submission of work until its dependency handles
// complete, and propagates cancellation/exceptions along those edges. It
// never executes user code itself; it only decides *when* to hand a payload
// to a user-supplied submit callback (in parman's usage, the Runner's
// executor-submission closure).
//
// Ported closely from the original project's Scheduler/ScheduledFuture pair:
// one dedicated submit-worker goroutine drains a FIFO queue and calls
// UserSubmit outside any lock, guaranteeing the callback sees a stable,
// single-threaded stream of submissions.
package scheduler

import (
	"errors"
	"sync"

	"github.com/reproducible-reporting/parman/pkg/future"
	"github.com/reproducible-reporting/parman/pkg/waitgraph"
)

// ErrShutdown is returned by Submit once the scheduler has begun shutting
// down.
var ErrShutdown = errors.New("scheduler: submit called after shutdown")

// UserSubmit hands a payload to the backend (typically: unwrap dependency
// results into a Closure and submit it to an executor) and returns the
// resulting WorkHandle. The scheduler always calls UserSubmit from the same
// goroutine (the submit worker); it must not block on anything other than
// the submission itself.
type UserSubmit func(payload any) (*future.Handle, error)

type waitEntry struct {
	scheduled *future.Handle
	payload   any
}

// Scheduler implements the ScheduledHandle state machine described in
// spec §4.4.
type Scheduler struct {
	userSubmit UserSubmit
	waitGraph  *waitgraph.WaitGraph

	mu        sync.Mutex
	shutdown  bool
	waitMap   map[*future.Handle]waitEntry    // WaitHandle -> pending submission
	workMap   map[*future.Handle]*future.Handle // WorkHandle -> ScheduledHandle
	backMap   map[*future.Handle]*future.Handle // ScheduledHandle -> current backer

	todo *todoQueue
	wg   sync.WaitGroup
}

// New starts a scheduler backed by userSubmit, using wg as its WaitGraph (a
// fresh one is created if wg is nil), and spawns its submit worker.
func New(userSubmit UserSubmit, wg *waitgraph.WaitGraph) *Scheduler {
	if wg == nil {
		wg = waitgraph.New()
	}
	s := &Scheduler{
		userSubmit: userSubmit,
		waitGraph:  wg,
		waitMap:    make(map[*future.Handle]waitEntry),
		workMap:    make(map[*future.Handle]*future.Handle),
		backMap:    make(map[*future.Handle]*future.Handle),
		todo:       newTodoQueue(),
	}
	s.wg.Add(1)
	go s.submitLoop()
	return s
}

// Submit schedules payload for submission once every handle in deps has
// terminated. The returned ScheduledHandle mirrors the eventual WorkHandle's
// outcome, or an exception/cancellation propagated from a dependency.
func (s *Scheduler) Submit(payload any, deps []*future.Handle) (*future.Handle, error) {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil, ErrShutdown
	}
	s.mu.Unlock()

	waitHandle := s.waitGraph.Submit(deps, nil)
	scheduled := future.New()

	s.mu.Lock()
	s.waitMap[waitHandle] = waitEntry{scheduled: scheduled, payload: payload}
	s.backMap[scheduled] = waitHandle
	s.mu.Unlock()

	scheduled.AddDoneCallback(s.handleScheduledDone)
	waitHandle.AddDoneCallback(s.handleWaitDone)

	return scheduled, nil
}

// Shutdown waits for already-scheduled work to finish submitting and stops
// the submit worker. After Shutdown returns, Submit always fails.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.checkStopSubmitLoop()
	s.wg.Wait()
}

func (s *Scheduler) checkStopSubmitLoop() {
	s.mu.Lock()
	stop := s.shutdown && len(s.waitMap) == 0
	s.mu.Unlock()
	if stop {
		s.todo.push(nil)
	}
}

func (s *Scheduler) handleWaitDone(w *future.Handle) {
	s.mu.Lock()
	entry, ok := s.waitMap[w]
	if ok {
		delete(s.waitMap, w)
		delete(s.backMap, entry.scheduled)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	if w.Cancelled() {
		entry.scheduled.Cancel()
	} else if !entry.scheduled.Cancelled() {
		state, _, exc := w.Snapshot()
		if state == future.FinishedException {
			_ = entry.scheduled.SetException(exc)
		} else {
			s.todo.push(&todoItem{scheduled: entry.scheduled, payload: entry.payload})
		}
	}
	s.checkStopSubmitLoop()
}

func (s *Scheduler) handleWorkDone(work *future.Handle) {
	s.mu.Lock()
	scheduled, ok := s.workMap[work]
	if ok {
		delete(s.workMap, work)
		delete(s.backMap, scheduled)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	if work.Cancelled() {
		scheduled.Cancel()
		return
	}
	if scheduled.Cancelled() {
		return
	}
	state, value, exc := work.Snapshot()
	if state == future.FinishedException {
		_ = scheduled.SetException(exc)
	} else {
		_ = scheduled.SetResult(value)
	}
}

func (s *Scheduler) handleScheduledDone(scheduled *future.Handle) {
	if scheduled.Cancelled() {
		s.mu.Lock()
		backer, ok := s.backMap[scheduled]
		if ok {
			delete(s.backMap, scheduled)
			delete(s.workMap, backer)
		}
		s.mu.Unlock()
		if ok {
			backer.Cancel()
		}
	}
	s.checkStopSubmitLoop()
}

func (s *Scheduler) submitLoop() {
	defer s.wg.Done()
	for {
		item, ok := s.todo.pop()
		if !ok {
			return
		}
		work, err := s.userSubmit(item.payload)
		if err != nil {
			work = future.New()
			_ = work.SetException(err)
		}
		s.mu.Lock()
		s.workMap[work] = item.scheduled
		s.backMap[item.scheduled] = work
		s.mu.Unlock()
		work.AddDoneCallback(s.handleWorkDone)
	}
}
