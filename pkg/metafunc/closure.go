package metafunc

import (
	"github.com/reproducible-reporting/parman/pkg/future"
	"github.com/reproducible-reporting/parman/pkg/tree"
)

// Closure is an immutable (metafunc, args) pair. At construction every
// []any and map[string]any container in Pos/Kwargs is copied, so a caller
// who mutates one of those after submission does not affect the closure.
// Leaves are not copied: *future.Handle leaves are kept by reference, and so
// are all other leaf values, including typed slices and maps such as
// []float64 or []apitype.FilePath.
type Closure struct {
	MetaFunc MetaFunc
	Args     Args
}

// New snapshots args and returns a Closure bound to mf.
func New(mf MetaFunc, args Args) *Closure {
	return &Closure{
		MetaFunc: mf,
		Args: Args{
			Pos:    snapshotSlice(args.Pos),
			Kwargs: snapshotMap(args.Kwargs),
		},
	}
}

func snapshotLeaf(path []any, leaves []any) any {
	return leaves[0]
}

func snapshotSlice(s []any) []any {
	if s == nil {
		return nil
	}
	return tree.Transform(snapshotLeaf, any(s)).([]any)
}

func snapshotMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return tree.Transform(snapshotLeaf, any(m)).(map[string]any)
}

// Describe returns mf's human-readable description of this call.
func (c *Closure) Describe() string {
	return c.MetaFunc.Describe(c.Args)
}

// Dependencies collects every *future.Handle leaf reachable in c's
// arguments, in encounter order — what a scheduled Runner passes to
// Scheduler.Submit as the dependency set.
func (c *Closure) Dependencies() []*future.Handle {
	var deps []*future.Handle
	collect := func(v any) {
		_ = tree.Walk(func(_ []any, leaves []any) error {
			if h, ok := leaves[0].(*future.Handle); ok {
				deps = append(deps, h)
			}
			return nil
		}, v)
	}
	if c.Args.Pos != nil {
		collect(any(c.Args.Pos))
	}
	if c.Args.Kwargs != nil {
		collect(any(c.Args.Kwargs))
	}
	return deps
}

// ValidatedCall derives the parameter shape from c.MetaFunc, type-checks
// c.Args against it, invokes the metafunc, type-checks the result against
// its mock-derived API, and returns it.
func (c *Closure) ValidatedCall() (any, error) {
	if err := ValidateParameters(c.MetaFunc, c.Args); err != nil {
		return nil, err
	}
	result, err := c.MetaFunc.Call(c.Args)
	if err != nil {
		return nil, err
	}
	resultAPI, err := c.MetaFunc.ResultAPI(c.Args)
	if err != nil {
		return nil, err
	}
	if err := ValidateResult(result, resultAPI); err != nil {
		return nil, err
	}
	return result, nil
}

// WithArgs returns a new Closure bound to the same metafunc with replacement
// arguments (already resolved — no snapshotting, no Handle leaves expected),
// used by Runner to substitute resolved dependency values before submission.
func (c *Closure) WithArgs(args Args) *Closure {
	return &Closure{MetaFunc: c.MetaFunc, Args: args}
}
