// Package metafunc is the typed-callable abstraction parman schedules work
// through: a MetaFunc exposes its parameter shape, a mock of its result
// (from which the result's type tree is derived), and its resource
// requirements, without being called. A Closure freezes a MetaFunc together
// with actual arguments; ValidatedCall type-checks both ends of the call.
//
// Ported from the original project's metafunc.py/closure.py: the signature
// introspection cattrs/inspect perform there is replaced here with Go
// reflection over a parameters struct (pkg/apitype.FromStruct) and explicit
// leaf-by-leaf walks over pkg/tree.
package metafunc

import (
	"fmt"

	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/tree"
)

// Args bundles the positional and keyword arguments passed to a MetaFunc —
// Go's nearest equivalent to Python's (*args, **kwargs). Job takes its
// clerk, locator and run settings in Pos and the template parameters in
// Kwargs; Minimal passes both through to its functions.
type Args struct {
	Pos    []any
	Kwargs map[string]any
}

// MetaFunc is the typed description of something callable.
type MetaFunc interface {
	Describe(args Args) string
	Call(args Args) (any, error)
	ParamsAPI() map[string]*apitype.Spec
	ResultMock(args Args) (any, error)
	ResultAPI(args Args) (any, error)
	Resources(args Args) map[string]any
}

// TypeMismatchError names the offending parameter or result path.
type TypeMismatchError struct {
	Where string // "parameter" or "result"
	Name  string
	Err   error
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Where, e.Name, e.Err)
}

func (e *TypeMismatchError) Unwrap() error { return e.Err }

// ParamMissingError is raised when a declared parameter has no corresponding
// entry in the call's kwargs.
type ParamMissingError struct {
	Name string
}

func (e *ParamMissingError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Name)
}

// ValidateParameters type-checks args.Kwargs against mf's declared parameter
// API, without calling mf.
func ValidateParameters(mf MetaFunc, args Args) error {
	for name, spec := range mf.ParamsAPI() {
		v, present := args.Kwargs[name]
		if !present {
			return &ParamMissingError{Name: name}
		}
		if err := apitype.Validate([]any{name}, v, spec); err != nil {
			return &TypeMismatchError{Where: "parameter", Name: name, Err: err}
		}
	}
	return nil
}

// ValidateResult type-checks result against the type tree produced by
// walking resultAPI (itself derived from mf's mock) in lock-step.
func ValidateResult(result, resultAPI any) error {
	return tree.Walk(func(path []any, leaves []any) error {
		spec, ok := leaves[1].(*apitype.Spec)
		if !ok {
			return fmt.Errorf("result API at %v is not a leaf type spec", path)
		}
		if err := apitype.Validate(path, leaves[0], spec); err != nil {
			return &TypeMismatchError{Where: "result", Name: fmt.Sprintf("%v", path), Err: err}
		}
		return nil
	}, result, resultAPI)
}

// DeriveResultAPI builds a result type tree structurally congruent to mock,
// replacing every leaf value with its Spec (spec §4.6: "derived from the
// mock by replacing each leaf value with its type").
func DeriveResultAPI(mock any) (any, error) {
	var derivationErr error
	out := tree.Transform(func(path []any, leaves []any) any {
		spec, err := apitype.Of(leaves[0])
		if err != nil && derivationErr == nil {
			derivationErr = fmt.Errorf("result mock at %v: %w", path, err)
		}
		return spec
	}, mock)
	if derivationErr != nil {
		return nil, derivationErr
	}
	return out, nil
}
