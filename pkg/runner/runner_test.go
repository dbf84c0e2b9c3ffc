package runner_test

import (
	"testing"
	"time"

	"github.com/reproducible-reporting/parman/pkg/future"
	"github.com/reproducible-reporting/parman/pkg/metafunc"
	"github.com/reproducible-reporting/parman/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addParams struct {
	A float64 `parman:"a"`
	B float64 `parman:"b"`
}

func addFn() *metafunc.Minimal {
	return &metafunc.Minimal{
		ParamsSample: addParams{},
		Fn: func(args metafunc.Args) (any, error) {
			return args.Kwargs["a"].(float64) + args.Kwargs["b"].(float64), nil
		},
		Mock: func(metafunc.Args) (any, error) { return 0.0, nil },
	}
}

func awaitHandle(t *testing.T, h *future.Handle) (any, error) {
	t.Helper()
	return h.Result(nil)
}

func TestSerialRunnerReturnsActualValue(t *testing.T) {
	r := runner.NewSerial()
	c := metafunc.New(addFn(), metafunc.Args{Kwargs: map[string]any{"a": 1.0, "b": 2.0}})
	result, err := r.Call(c)
	require.NoError(t, err)
	assert.Equal(t, 3.0, result)
	require.NoError(t, r.Shutdown())
}

func TestDryRunnerReturnsMockWithoutExecuting(t *testing.T) {
	called := false
	mf := &metafunc.Minimal{
		ParamsSample: addParams{},
		Fn: func(metafunc.Args) (any, error) {
			called = true
			return 99.0, nil
		},
		Mock: func(metafunc.Args) (any, error) { return 0.0, nil },
	}
	r := runner.NewDry()
	c := metafunc.New(mf, metafunc.Args{Kwargs: map[string]any{"a": 1.0, "b": 2.0}})
	result, err := r.Call(c)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result)
	assert.False(t, called, "dry runner must never invoke the underlying function")
}

func TestDryRunnerStillValidatesParameters(t *testing.T) {
	r := runner.NewDry()
	c := metafunc.New(addFn(), metafunc.Args{Kwargs: map[string]any{"a": 1.0}})
	_, err := r.Call(c)
	require.Error(t, err)
	var missing *metafunc.ParamMissingError
	assert.ErrorAs(t, err, &missing)
}

func TestWorkerPoolEagerCallReturnsPromiseHandle(t *testing.T) {
	r := runner.NewWorkerPool(runner.WorkerPoolOptions{Workers: 2})
	c := metafunc.New(addFn(), metafunc.Args{Kwargs: map[string]any{"a": 1.0, "b": 2.0}})
	promise, err := r.Call(c)
	require.NoError(t, err)
	h, ok := promise.(*future.Handle)
	require.True(t, ok, "a scalar result API promises to a single handle")
	v, err := awaitHandle(t, h)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
	require.NoError(t, r.Shutdown())
}

func TestWorkerPoolEagerChainsOnDependencyHandle(t *testing.T) {
	r := runner.NewWorkerPool(runner.WorkerPoolOptions{Workers: 2})
	first := metafunc.New(addFn(), metafunc.Args{Kwargs: map[string]any{"a": 1.0, "b": 2.0}})
	firstPromise, err := r.Call(first)
	require.NoError(t, err)
	firstHandle := firstPromise.(*future.Handle)

	second := metafunc.New(addFn(), metafunc.Args{Kwargs: map[string]any{"a": firstHandle, "b": 10.0}})
	secondPromise, err := r.Call(second)
	require.NoError(t, err)
	v, err := awaitHandle(t, secondPromise.(*future.Handle))
	require.NoError(t, err)
	assert.Equal(t, 13.0, v)
	require.NoError(t, r.Shutdown())
}

func TestWorkerPoolScheduledModeWaitsForDependency(t *testing.T) {
	r := runner.NewWorkerPool(runner.WorkerPoolOptions{Workers: 2, Schedule: true})
	first := metafunc.New(addFn(), metafunc.Args{Kwargs: map[string]any{"a": 1.0, "b": 2.0}})
	firstPromise, err := r.Call(first)
	require.NoError(t, err)
	firstHandle := firstPromise.(*future.Handle)

	second := metafunc.New(addFn(), metafunc.Args{Kwargs: map[string]any{"a": firstHandle, "b": 10.0}})
	secondPromise, err := r.Call(second)
	require.NoError(t, err)
	v, err := awaitHandle(t, secondPromise.(*future.Handle))
	require.NoError(t, err)
	assert.Equal(t, 13.0, v)
	require.NoError(t, r.Shutdown())
}

func TestWorkerPoolScheduledCancelMiddleNodePropagatesDownstream(t *testing.T) {
	r := runner.NewWorkerPool(runner.WorkerPoolOptions{Workers: 2, Schedule: true})

	blocker := future.New()
	first := metafunc.New(addFn(), metafunc.Args{Kwargs: map[string]any{"a": blocker, "b": 1.0}})
	firstPromise, err := r.Call(first)
	require.NoError(t, err)
	firstHandle := firstPromise.(*future.Handle)

	second := metafunc.New(addFn(), metafunc.Args{Kwargs: map[string]any{"a": firstHandle, "b": 1.0}})
	secondPromise, err := r.Call(second)
	require.NoError(t, err)
	secondHandle := secondPromise.(*future.Handle)

	blocker.Cancel()

	select {
	case <-secondHandle.DoneCh():
	case <-time.After(2 * time.Second):
		t.Fatal("downstream handle never settled after upstream dependency was cancelled")
	}
	assert.True(t, secondHandle.Cancelled())
	assert.True(t, firstHandle.Cancelled())
}
