// Package apitype is the small type vocabulary metafunc/closure use to
// describe parameter and result types: the Go analogue of the original
// project's reliance on Python type annotations and cattrs-driven structural
// validation of types.GenericAlias containers.
//
// A Spec either names a scalar leaf kind (bool/int/float/string/bytes/path),
// or wraps an element Spec for a homogeneous sequence or string-keyed
// mapping — declared container types get recursively validated against their
// native Go slice/map element, not against parman's tree congruence (tree
// congruence is reserved for shapes with structurally significant children,
// e.g. a Job's several named kwargs; a `[]float64` parameter value is one
// leaf as far as pkg/tree is concerned).
package apitype

import (
	"fmt"
	"reflect"
)

// Kind identifies which scalar or container shape a Spec describes.
type Kind int

const (
	KindAny Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindPath
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindPath:
		return "path"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "any"
	}
}

// Spec describes the declared type of one leaf position in a parameter or
// result tree.
type Spec struct {
	Kind Kind
	Elem *Spec // set when Kind is KindSequence or KindMapping
}

// FilePath is the one leaf type Clerk/Job treat specially: a path relative
// to a job's working directory (pull) or the workflow-global namespace
// (push), the Go analogue of Python's pathlib.Path used as a tree leaf.
type FilePath string

func Sequence(elem *Spec) *Spec { return &Spec{Kind: KindSequence, Elem: elem} }
func Mapping(elem *Spec) *Spec  { return &Spec{Kind: KindMapping, Elem: elem} }

var (
	Bool   = &Spec{Kind: KindBool}
	Int    = &Spec{Kind: KindInt}
	Float  = &Spec{Kind: KindFloat}
	String = &Spec{Kind: KindString}
	Bytes  = &Spec{Kind: KindBytes}
	Path   = &Spec{Kind: KindPath}
	Any    = &Spec{Kind: KindAny}
)

// Of derives the Spec for a concrete leaf value, the Go analogue of
// type_api_from_mock's typeof(leaf). A mock value may not itself be a type
// or a *Spec — that would indicate the mock was not a mock.
func Of(v any) (*Spec, error) {
	switch x := v.(type) {
	case nil:
		return Any, nil
	case bool:
		return Bool, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Int, nil
	case float32, float64:
		return Float, nil
	case string:
		return String, nil
	case []byte:
		return Bytes, nil
	case FilePath:
		return Path, nil
	case *Spec:
		return nil, fmt.Errorf("apitype: mock leaf is itself a *Spec at value %v, not a mock", x)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return Sequence(Any), nil
		}
		elem, err := Of(rv.Index(0).Interface())
		if err != nil {
			return nil, err
		}
		return Sequence(elem), nil
	case reflect.Map:
		if rv.Len() == 0 {
			return Mapping(Any), nil
		}
		iter := rv.MapRange()
		iter.Next()
		elem, err := Of(iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		return Mapping(elem), nil
	}
	return nil, fmt.Errorf("apitype: mock leaf of unsupported type %T", v)
}

// TypeMismatchError names the offending path when a value fails to conform
// to its declared Spec.
type TypeMismatchError struct {
	Path []any
	Want Kind
	Got  any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch at %v: expected %s, got %T (%v)", e.Path, e.Want, e.Got, e.Got)
}

// Validate checks v against spec, recursing into sequences/mappings by their
// native Go element type.
func Validate(path []any, v any, spec *Spec) error {
	switch spec.Kind {
	case KindAny:
		return nil
	case KindSequence:
		rv := reflect.ValueOf(v)
		if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return &TypeMismatchError{Path: path, Want: spec.Kind, Got: v}
		}
		for i := 0; i < rv.Len(); i++ {
			if err := Validate(append(append([]any{}, path...), i), rv.Index(i).Interface(), spec.Elem); err != nil {
				return err
			}
		}
		return nil
	case KindMapping:
		rv := reflect.ValueOf(v)
		if v == nil || rv.Kind() != reflect.Map {
			return &TypeMismatchError{Path: path, Want: spec.Kind, Got: v}
		}
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			if err := Validate(append(append([]any{}, path...), key), iter.Value().Interface(), spec.Elem); err != nil {
				return err
			}
		}
		return nil
	default:
		return validateScalar(path, v, spec)
	}
}

func validateScalar(path []any, v any, spec *Spec) error {
	ok := false
	switch spec.Kind {
	case KindBool:
		_, ok = v.(bool)
	case KindInt:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			ok = true
		}
	case KindFloat:
		switch v.(type) {
		case float32, float64:
			ok = true
		case int, int64:
			ok = true // JSON numbers decode to float64; an integral value is a valid float
		}
	case KindString:
		_, ok = v.(string)
	case KindBytes:
		_, ok = v.([]byte)
	case KindPath:
		_, ok = v.(FilePath)
	}
	if !ok {
		return &TypeMismatchError{Path: path, Want: spec.Kind, Got: v}
	}
	return nil
}
