package job

import (
	"encoding/base64"
	"fmt"

	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/tree"
)

// unstructure rewrites a tree's apitype.FilePath leaves to plain strings so
// it can be handed to encoding/json (which already base64-encodes []byte on
// its own). The analogue of job.py's unstructure/cattrs.unstructure, but
// since this port's only "structured" leaf type needing special treatment
// is FilePath, there is no separate hook registry to maintain.
func unstructure(data any) any {
	return tree.Transform(func(_ []any, leaves []any) any {
		if fp, ok := leaves[0].(apitype.FilePath); ok {
			return string(fp)
		}
		return leaves[0]
	}, data)
}

// structure rewrites jsonData's leaves into their declared types per
// resultAPI (a tree of *apitype.Spec leaves congruent to jsonData, produced
// by metafunc.DeriveResultAPI from a job's mock). The analogue of job.py's
// structure/cattrs.structure: jsonData comes straight out of
// encoding/json.Unmarshal into `any` (so numbers are float64, nested
// containers are []any/map[string]any), and resultAPI says what each leaf
// is supposed to become.
func structure(label string, jsonData, resultAPI any) (any, error) {
	var firstErr error
	out := tree.Transform(func(path []any, leaves []any) any {
		spec, ok := leaves[1].(*apitype.Spec)
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s at %v: result API leaf is not a type spec", label, path)
			}
			return nil
		}
		v, err := structureLeaf(leaves[0], spec)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s at %v: %w", label, path, err)
		}
		return v
	}, jsonData, resultAPI)
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func structureLeaf(v any, spec *apitype.Spec) (any, error) {
	switch spec.Kind {
	case apitype.KindAny:
		return v, nil
	case apitype.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil
	case apitype.KindInt:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected int, got %T", v)
		}
		return int64(f), nil
	case apitype.KindFloat:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected float, got %T", v)
		}
		return f, nil
	case apitype.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case apitype.KindBytes:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected base64 string, got %T", v)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 bytes: %w", err)
		}
		return b, nil
	case apitype.KindPath:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected path string, got %T", v)
		}
		return apitype.FilePath(s), nil
	case apitype.KindSequence:
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", v)
		}
		out := make([]any, len(arr))
		for i, elem := range arr {
			sv, err := structureLeaf(elem, spec.Elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = sv
		}
		return out, nil
	case apitype.KindMapping:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", v)
		}
		out := make(map[string]any, len(m))
		for k, elem := range m {
			sv, err := structureLeaf(elem, spec.Elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = sv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported result leaf kind %s", spec.Kind)
	}
}
