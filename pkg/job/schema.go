package job

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileParamsSchema renders params as a JSON Schema document
// (apitype.ParamsJSONSchema) and compiles it, the same two-step the
// retrieval pack's vsavkov-kilroy tool registry uses to turn a tool's
// parameter map into a *jsonschema.Schema: marshal to bytes, register as an
// in-memory resource, compile.
func compileParamsSchema(params map[string]*apitype.Spec) (*jsonschema.Schema, error) {
	doc := apitype.ParamsJSONSchema(params)
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("kwargs.json", strings.NewReader(string(b))); err != nil {
		return nil, err
	}
	return c.Compile("kwargs.json")
}

// validateSchema runs kwargs through a compiled JSON Schema derived from the
// template's declared Params (spec §4.6: "a second, industry-standard
// validation layer" alongside metafunc.ValidateParameters' leaf-by-leaf
// apitype walk). The schema is compiled once per Job and cached.
func (j *Job) validateSchema(kwargs map[string]any) error {
	j.schemaOnce.Do(func() {
		j.schema, j.schemaErr = compileParamsSchema(j.info.Params)
	})
	if j.schemaErr != nil {
		return fmt.Errorf("job: compile kwargs schema for %s: %w", j.Template, j.schemaErr)
	}
	doc := normalizeJSON(unstructure(kwargs))
	if err := j.schema.Validate(doc); err != nil {
		return fmt.Errorf("job: kwargs failed schema validation for %s: %w", j.Template, err)
	}
	return nil
}
