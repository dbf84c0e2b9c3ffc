// Package compute registers the "compute" job template: produces reference
// data for one configuration, the Go analogue of
// demos/jobdemo/templates/compute/jobinfo.py. The original's demo omits a
// script.py for this template (its jobdemo.py only ever dry-runs or mocks
// this stage); this port ships a real "run" script so the pipeline can
// actually execute end to end.
package compute

import (
	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/template"
)

// Params is the compute template's declared kwargs shape.
type Params struct {
	Pause  float64          `parman:"pause"`
	Config apitype.FilePath `parman:"config"`
}

func init() {
	template.Register("templates/compute", template.Info{
		Params: apitype.FromStruct(Params{}),
		Mock: func(map[string]any) (any, error) {
			return apitype.FilePath("__computed__"), nil
		},
		Resources: map[string]any{"executors": "all"},
	})
}
