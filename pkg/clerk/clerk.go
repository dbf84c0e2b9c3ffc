// Package clerk maps between a job's local working directory and the
// global, workflow-wide namespace of file paths. Ported from the original
// project's clerks/base.py, clerks/local.py, clerks/localtemp.py.
//
// A Clerk acquires a work directory for a locator, and translates
// apitype.FilePath leaves between the two namespaces in both directions:
// Localize (global -> local, before running a job) and Globalize (local ->
// global, after running a job). Pull/Push are the single-file primitives
// Localize/Globalize are built from.
package clerk

import (
	"fmt"

	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/tree"
)

// Clerk is implemented by Local and ScratchCopy.
type Clerk interface {
	// Workdir acquires the work directory for locator and returns it along
	// with a release function that must be called when the job is done
	// with it (the Go stand-in for the original's @contextmanager). release
	// takes whether the job completed without error: Local ignores it,
	// ScratchCopy only removes the temporary tree on success, leaving it in
	// place for inspection after a failure, exactly as the original's
	// context manager only runs shutil.rmtree after the yield returns
	// normally.
	Workdir(locator string) (workdir string, release func(success bool) error, err error)

	// Pull makes sure globalPath is reachable from workdir and returns the
	// path to it relative to workdir.
	Pull(globalPath, locator, workdir string) (string, error)

	// Push makes sure localPath (relative to workdir) is reachable from
	// the global namespace and returns its global path.
	Push(localPath, locator, workdir string) (string, error)
}

// Localize rewrites every apitype.FilePath leaf in data, assumed to be a
// global path, into a path relative to workdir, pulling the file there if
// the clerk requires it.
func Localize(c Clerk, data any, locator, workdir string) (any, error) {
	var firstErr error
	out := tree.Transform(func(path []any, leaves []any) any {
		fp, ok := leaves[0].(apitype.FilePath)
		if !ok {
			return leaves[0]
		}
		local, err := c.Pull(string(fp), locator, workdir)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("clerk: localize %v: %w", path, err)
		}
		return apitype.FilePath(local)
	}, data)
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Globalize rewrites every apitype.FilePath leaf in data, assumed to be a
// path relative to workdir, into a path in the global namespace, pushing
// the file there if the clerk requires it.
func Globalize(c Clerk, data any, locator, workdir string) (any, error) {
	var firstErr error
	out := tree.Transform(func(path []any, leaves []any) any {
		fp, ok := leaves[0].(apitype.FilePath)
		if !ok {
			return leaves[0]
		}
		global, err := c.Push(string(fp), locator, workdir)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("clerk: globalize %v: %w", path, err)
		}
		return apitype.FilePath(global)
	}, data)
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
