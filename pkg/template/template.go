// Package template is the in-process registry that replaces the original
// project's exec()'d jobinfo.py: since Go cannot evaluate a template
// directory's metadata at runtime the way Python execs a module, every
// template directory's typed metadata (parameters, mock, resources,
// resumability) is registered ahead of time, in an init() alongside the
// template's script, and looked up by path when a Job is materialized from
// that template (pkg/job.FromTemplate).
package template

import (
	"fmt"
	"sync"

	"github.com/reproducible-reporting/parman/pkg/apitype"
)

// Info is the Go analogue of what the original's jobinfo.py module-level
// exec() produced: resources/can_resume/parameters/mock.
type Info struct {
	// Params declares the kwargs shape, normally built with apitype.FromStruct
	// on the template's parameter struct.
	Params map[string]*apitype.Spec
	// Mock mimics the script's result given kwargs, the source DeriveResultAPI
	// derives the result's type tree from (spec §4.6/4.8).
	Mock func(kwargs map[string]any) (any, error)
	// Resources is opaque, executor-specific scheduling metadata (e.g.
	// executor tags, requested cores). pkg/job only returns it from
	// Job.Resources and records it in the workdir's jobinfo file.
	Resources map[string]any
	// Resumable marks a template whose script is safe to re-invoke against a
	// workdir that already has kwargs.json but no result.json. pkg/job reruns
	// such a job whether or not Resumable is set; the flag only changes the
	// start log line and is recorded in the jobinfo file.
	Resumable bool
}

var (
	mu       sync.RWMutex
	registry = map[string]Info{}
)

// Register records template metadata under path, the Go stand-in for
// `jobinfo.py`'s module body executing at import time. Calling Register
// twice for the same path is a programming error (template registration
// happens once, in an init()).
func Register(path string, info Info) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[path]; exists {
		panic(fmt.Sprintf("template: %q already registered", path))
	}
	registry[path] = info
}

// Lookup returns the Info registered under path, the analogue of
// JobFactory._cache combined with Job.from_template: an unregistered
// template path is a construction-time error (the original's equivalent
// failure is a missing jobinfo.py file).
func Lookup(path string) (Info, bool) {
	mu.RLock()
	defer mu.RUnlock()
	info, ok := registry[path]
	return info, ok
}

// IntOf coerces a kwargs value that may arrive as a Go int (a direct,
// in-process call) or a float64 (decoded from JSON, e.g. when the value
// came from an earlier job's structured result) into an int. Mock
// functions that only need a count (to size a mocked result slice) use
// this instead of a type assertion that would panic on the JSON-decoded
// shape.
func IntOf(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	}
	return 0
}
