package metafunc

import (
	"fmt"

	"github.com/reproducible-reporting/parman/pkg/apitype"
)

// Minimal is a bare MetaFunc adapter around an ordinary function plus a
// mock, the Go analogue of the original's MinimalMetaFunc: useful directly
// in tests and demos, and the shape every other MetaFunc (notably Job)
// ultimately exposes.
type Minimal struct {
	Name func(Args) string
	Fn   func(Args) (any, error)
	Mock func(Args) (any, error)
	// ParamsSample is a struct value whose exported fields (via the
	// `parman` or `json` tag) describe the declared kwargs shape — the
	// systems-language stand-in for inspecting a Python function's
	// annotated signature.
	ParamsSample any
	Res          map[string]any
}

func (m *Minimal) Describe(args Args) string {
	if m.Name != nil {
		return m.Name(args)
	}
	return fmt.Sprintf("minimal(%v)", args.Kwargs)
}

func (m *Minimal) Call(args Args) (any, error) {
	return m.Fn(args)
}

func (m *Minimal) ParamsAPI() map[string]*apitype.Spec {
	if m.ParamsSample == nil {
		return nil
	}
	return apitype.FromStruct(m.ParamsSample)
}

func (m *Minimal) ResultMock(args Args) (any, error) {
	return m.Mock(args)
}

func (m *Minimal) ResultAPI(args Args) (any, error) {
	mock, err := m.Mock(args)
	if err != nil {
		return nil, err
	}
	return DeriveResultAPI(mock)
}

func (m *Minimal) Resources(args Args) map[string]any {
	return m.Res
}
