package runner

import "github.com/reproducible-reporting/parman/pkg/metafunc"

// Serial executes every closure immediately, on the calling goroutine, with
// no Handle involved at all — mainly useful for debugging. Ported from
// SerialRunner.
type Serial struct{}

// NewSerial returns a Serial runner.
func NewSerial() *Serial { return &Serial{} }

func (s *Serial) Call(c *metafunc.Closure) (any, error) {
	return c.ValidatedCall()
}

func (s *Serial) Shutdown() error { return nil }
