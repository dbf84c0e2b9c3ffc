package workerpool_test

import (
	"errors"
	"testing"

	"github.com/reproducible-reporting/parman/pkg/executor/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsTaskAndReturnsValue(t *testing.T) {
	p := workerpool.New(2)
	defer p.Shutdown()

	h, err := p.Submit(func() (any, error) { return 42, nil })
	require.NoError(t, err)
	v, err := h.Result(nil)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmitPropagatesError(t *testing.T) {
	p := workerpool.New(1)
	defer p.Shutdown()

	boom := errors.New("boom")
	h, err := p.Submit(func() (any, error) { return nil, boom })
	require.NoError(t, err)
	_, err = h.Result(nil)
	assert.ErrorIs(t, err, boom)
}

func TestSubmitRecoversPanic(t *testing.T) {
	p := workerpool.New(1)
	defer p.Shutdown()

	h, err := p.Submit(func() (any, error) { panic("kaboom") })
	require.NoError(t, err)
	_, err = h.Result(nil)
	require.Error(t, err)
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	p := workerpool.New(1)
	p.Shutdown()

	_, err := p.Submit(func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, workerpool.ErrClosed)
}

func TestShutdownIsIdempotent(t *testing.T) {
	p := workerpool.New(1)
	p.Shutdown()
	p.Shutdown()
}
