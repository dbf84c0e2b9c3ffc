package clerk

import (
	"fmt"
	"os"
	"path/filepath"
)

// Local is a clerk for jobs that run in place, inside the directory tree
// where the workflow's data already lives: pull/push never copy anything,
// they only translate between root-relative and workdir-relative paths.
// Ported from the original's LocalClerk.
type Local struct {
	// Root is the directory that root-relative paths (locators and global
	// paths) are resolved against. Defaults to "results" if empty.
	Root string
}

// NewLocal returns a Local clerk rooted at root ("results" if root is empty).
func NewLocal(root string) *Local {
	if root == "" {
		root = "results"
	}
	return &Local{Root: root}
}

func (l *Local) root() string {
	if l.Root == "" {
		return "results"
	}
	return l.Root
}

// Workdir creates (if needed) and returns Root/locator. Release is a no-op:
// nothing is torn down when an in-place job finishes.
func (l *Local) Workdir(locator string) (string, func(success bool) error, error) {
	workdir := filepath.Join(l.root(), filepath.FromSlash(locator))
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return "", nil, fmt.Errorf("clerk: mkdir workdir %q: %w", workdir, err)
	}
	return workdir, func(bool) error { return nil }, nil
}

func (l *Local) checkWorkdir(locator, workdir string) error {
	expected := filepath.Join(l.root(), filepath.FromSlash(locator))
	if filepath.Clean(workdir) != filepath.Clean(expected) {
		return fmt.Errorf("clerk: internal inconsistency: workdir=%q, expected=%q", workdir, expected)
	}
	return nil
}

// Pull returns globalPath expressed relative to workdir. globalPath and
// locator are both root-relative paths, so Root cancels out of the
// relative offset: the original computes this as
// os.path.relpath(global_path, locator) for exactly that reason.
func (l *Local) Pull(globalPath, locator, workdir string) (string, error) {
	if err := l.checkWorkdir(locator, workdir); err != nil {
		return "", err
	}
	rel, err := filepath.Rel(filepath.FromSlash(locator), filepath.FromSlash(globalPath))
	if err != nil {
		return "", fmt.Errorf("clerk: pull %q relative to %q: %w", globalPath, locator, err)
	}
	return rel, nil
}

// Push returns localPath (relative to workdir) expressed as a root-relative
// global path: locator/localPath.
func (l *Local) Push(localPath, locator, workdir string) (string, error) {
	if err := l.checkWorkdir(locator, workdir); err != nil {
		return "", err
	}
	return filepath.Join(filepath.FromSlash(locator), filepath.FromSlash(localPath)), nil
}
