// Package boot registers the "boot" job template: generates an initial
// batch of configuration files from scratch, the Go analogue of
// demos/jobdemo/templates/boot/{jobinfo.py,script.py} — the first stage of
// the active-learning-style pipeline wired together in cmd/parman.
package boot

import (
	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/template"
)

// Params is the boot template's declared kwargs shape.
type Params struct {
	Pause    float64 `parman:"pause"`
	BootSize int     `parman:"boot_size"`
}

func init() {
	template.Register("templates/boot", template.Info{
		Params: apitype.FromStruct(Params{}),
		Mock: func(kwargs map[string]any) (any, error) {
			n := template.IntOf(kwargs["boot_size"])
			mock := make([]apitype.FilePath, n)
			for i := range mock {
				mock[i] = apitype.FilePath("__boot_config__")
			}
			return mock, nil
		},
		Resources: map[string]any{"executors": "all"},
	})
}
