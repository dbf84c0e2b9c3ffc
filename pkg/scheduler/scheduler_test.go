package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reproducible-reporting/parman/pkg/future"
	"github.com/reproducible-reporting/parman/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runSync submits payload to a handle-backed "executor" immediately,
// returning a WorkHandle that a goroutine resolves with the payload run
// through fn.
func runSync(fn func(any) (any, error)) scheduler.UserSubmit {
	return func(payload any) (*future.Handle, error) {
		h := future.New()
		go func() {
			v, err := fn(payload)
			if err != nil {
				_ = h.SetException(err)
			} else {
				_ = h.SetResult(v)
			}
		}()
		return h, nil
	}
}

func TestLinearChainScheduledMode(t *testing.T) {
	f := future.New()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = f.SetResult(2)
	}()

	s := scheduler.New(runSync(func(payload any) (any, error) {
		return payload.(int) * 2, nil
	}), nil)
	defer s.Shutdown()

	g, err := s.Submit(21, []*future.Handle{f})
	require.NoError(t, err)

	assert.False(t, g.Done())
	v, err := f.Result(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	gv, err := g.Result(nil)
	require.NoError(t, err)
	assert.Equal(t, 42, gv)
}

func TestDependencyExceptionPropagates(t *testing.T) {
	f := future.New()
	boom := errors.New("dependency failed")

	s := scheduler.New(runSync(func(payload any) (any, error) {
		t.Fatal("userSubmit must not be called when a dependency fails")
		return nil, nil
	}), nil)
	defer s.Shutdown()

	g, err := s.Submit("payload", []*future.Handle{f})
	require.NoError(t, err)

	require.NoError(t, f.SetException(boom))
	_, resultErr := g.Result(nil)
	assert.Same(t, boom, resultErr)
}

// depPayload is what pkg/runner actually hands the scheduler: the upstream
// dependency handles plus a value to act on once they are all safely done.
type depPayload struct {
	deps  []*future.Handle
	value any
}

// cancelAwareSubmit is the shape of submission pkg/runner builds on top of
// the scheduler: by the time UserSubmit runs every dependency is done (the
// scheduler guarantees this), but a cancelled one must short-circuit to a
// cancelled WorkHandle rather than be fed to the underlying computation —
// this is how cancellation of a middle node reaches a downstream
// ScheduledHandle, since a bare WaitHandle digest only ever contributes nil
// for a cancelled dependency (see TestCancelledDependencyContributesNil in
// pkg/waitgraph) and never cancels itself.
func cancelAwareSubmit() scheduler.UserSubmit {
	return func(payload any) (*future.Handle, error) {
		p := payload.(depPayload)
		for _, d := range p.deps {
			if d.Cancelled() {
				h := future.New()
				h.Cancel()
				return h, nil
			}
		}
		h := future.New()
		_ = h.SetResult(p.value)
		return h, nil
	}
}

func TestCancelMiddleNodePropagatesDownstream(t *testing.T) {
	f1 := future.New()

	s := scheduler.New(cancelAwareSubmit(), nil)
	defer s.Shutdown()

	f2, err := s.Submit(depPayload{deps: []*future.Handle{f1}, value: "f2"}, []*future.Handle{f1})
	require.NoError(t, err)
	f3, err := s.Submit(depPayload{deps: []*future.Handle{f2}, value: "f3"}, []*future.Handle{f2})
	require.NoError(t, err)

	assert.True(t, f2.Cancel())
	require.NoError(t, f1.SetResult("f1-value"))

	assert.True(t, f2.Cancelled())
	v, err := f1.Result(nil)
	require.NoError(t, err)
	assert.Equal(t, "f1-value", v)

	_, err = f3.Result(context.Background())
	assert.ErrorIs(t, err, future.ErrCancelled)
	assert.True(t, f3.Cancelled())
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	s := scheduler.New(runSync(func(payload any) (any, error) { return payload, nil }), nil)
	s.Shutdown()
	_, err := s.Submit("x", nil)
	assert.ErrorIs(t, err, scheduler.ErrShutdown)
}
