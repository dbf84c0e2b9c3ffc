// Package sample registers the "sample" job template: draws new
// configurations from a trained model at a given temperature, the Go
// analogue of demos/jobdemo/templates/sample/{jobinfo.py,script.py}.
package sample

import (
	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/template"
)

// Params is the sample template's declared kwargs shape.
type Params struct {
	Pause       float64            `parman:"pause"`
	Models      []apitype.FilePath `parman:"models"`
	Temperature int                `parman:"temperature"`
	SampleSize  int                `parman:"sample_size"`
}

func init() {
	template.Register("templates/sample", template.Info{
		Params: apitype.FromStruct(Params{}),
		Mock: func(kwargs map[string]any) (any, error) {
			n := template.IntOf(kwargs["sample_size"])
			mock := make([]apitype.FilePath, n)
			for i := range mock {
				mock[i] = apitype.FilePath("__sample_config__")
			}
			return mock, nil
		},
		Resources: map[string]any{"executors": "all"},
	})
}
