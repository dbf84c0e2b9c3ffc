package apitype

// JSONSchema renders spec as a JSON Schema document (draft 2020-12 subset),
// consumable by github.com/santhosh-tekuri/jsonschema/v5. This gives pkg/job
// a second, industry-standard structural validation pass over a template's
// kwargs inside Job.Call — supplementing, not replacing, the leaf-by-leaf
// Validate walk, which Closure.ValidatedCall runs before Call.
func (s *Spec) JSONSchema() map[string]any {
	switch s.Kind {
	case KindBool:
		return map[string]any{"type": "boolean"}
	case KindInt:
		return map[string]any{"type": "integer"}
	case KindFloat:
		return map[string]any{"type": "number"}
	case KindString:
		return map[string]any{"type": "string"}
	case KindPath:
		return map[string]any{"type": "string"}
	case KindBytes:
		return map[string]any{"type": "string", "contentEncoding": "base64"}
	case KindSequence:
		return map[string]any{"type": "array", "items": s.Elem.JSONSchema()}
	case KindMapping:
		return map[string]any{"type": "object", "additionalProperties": s.Elem.JSONSchema()}
	default:
		return map[string]any{}
	}
}

// ParamsJSONSchema renders a parameter-name -> Spec map (as returned by
// FromStruct) as a whole-object JSON Schema.
func ParamsJSONSchema(params map[string]*Spec) map[string]any {
	props := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for name, spec := range params {
		props[name] = spec.JSONSchema()
		required = append(required, name)
	}
	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
