// Package train registers the "train" job template: trains a model from
// accumulated examples, the Go analogue of
// demos/jobdemo/templates/train/{jobinfo.py,helper.py}.
package train

import (
	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/template"
)

// Params is the train template's declared kwargs shape.
type Params struct {
	Pause    float64            `parman:"pause"`
	Examples []apitype.FilePath `parman:"examples"`
	Seed     int                `parman:"seed"`
}

func init() {
	template.Register("templates/train", template.Info{
		Params: apitype.FromStruct(Params{}),
		Mock: func(map[string]any) (any, error) {
			return apitype.FilePath("__model__"), nil
		},
		Resources: map[string]any{"executors": "all"},
	})
}
