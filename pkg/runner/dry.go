package runner

import "github.com/reproducible-reporting/parman/pkg/metafunc"

// Dry validates a closure's parameters and returns the metafunc's result
// mock without ever calling the underlying function, which checks a
// workflow's wiring before spending compute on it. The parman CLI does not
// construct a Dry runner. Ported from DryRunner.
type Dry struct{}

// NewDry returns a Dry runner.
func NewDry() *Dry { return &Dry{} }

func (d *Dry) Call(c *metafunc.Closure) (any, error) {
	if err := metafunc.ValidateParameters(c.MetaFunc, c.Args); err != nil {
		return nil, err
	}
	return c.MetaFunc.ResultMock(c.Args)
}

func (d *Dry) Shutdown() error { return nil }
