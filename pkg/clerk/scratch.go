package clerk

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ScratchCopy is a clerk for jobs that run in a private temporary
// directory: pull copies global files in before execution, push copies
// local results out after. Ported from the original's LocalTempClerk.
type ScratchCopy struct {
	// Root is the global namespace root files are pulled from / pushed to.
	// Defaults to "results" if empty.
	Root string
	// Tmp is the staging directory new scratch directories are created
	// under. Defaults to "tmp" if empty.
	Tmp string
	// Suffix/Prefix decorate the generated scratch directory name, exactly
	// as os.MkdirTemp's pattern argument does.
	Suffix, Prefix string
}

func (s *ScratchCopy) root() string {
	if s.Root == "" {
		return "results"
	}
	return s.Root
}

func (s *ScratchCopy) tmp() string {
	if s.Tmp == "" {
		return "tmp"
	}
	return s.Tmp
}

// Workdir creates a fresh scratch directory under Tmp and returns
// <scratch>/<locator>. Unlike Local, release removes the whole scratch
// tree, but only when success is true: the original deliberately skips
// the cleanup when an exception propagates out of the work, so a failed
// job's intermediate files remain on disk for inspection.
func (s *ScratchCopy) Workdir(locator string) (string, func(success bool) error, error) {
	if err := os.MkdirAll(s.tmp(), 0o755); err != nil {
		return "", nil, fmt.Errorf("clerk: mkdir tmp root %q: %w", s.tmp(), err)
	}
	scratch, err := os.MkdirTemp(s.tmp(), s.Prefix+"*"+s.Suffix)
	if err != nil {
		return "", nil, fmt.Errorf("clerk: create scratch dir: %w", err)
	}
	workdir := filepath.Join(scratch, filepath.FromSlash(locator))
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return "", nil, fmt.Errorf("clerk: mkdir workdir %q: %w", workdir, err)
	}
	release := func(success bool) error {
		if !success {
			return nil
		}
		return os.RemoveAll(scratch)
	}
	return workdir, release, nil
}

// Pull copies globalPath (relative to Root) into workdir and returns its
// path relative to workdir.
func (s *ScratchCopy) Pull(globalPath, locator, workdir string) (string, error) {
	src := filepath.Join(s.root(), filepath.FromSlash(globalPath))
	local, err := filepath.Rel(filepath.FromSlash(locator), filepath.FromSlash(globalPath))
	if err != nil {
		return "", fmt.Errorf("clerk: pull %q relative to %q: %w", globalPath, locator, err)
	}
	dst := filepath.Join(workdir, local)
	tryCopy(src, dst)
	return local, nil
}

// Push copies localPath (relative to workdir) to Root/locator/localPath and
// returns that global path.
func (s *ScratchCopy) Push(localPath, locator, workdir string) (string, error) {
	src := filepath.Join(workdir, filepath.FromSlash(localPath))
	global := filepath.Join(filepath.FromSlash(locator), filepath.FromSlash(localPath))
	dst := filepath.Join(s.root(), global)
	tryCopy(src, dst)
	return global, nil
}

// tryCopy mirrors the original's try_copy: best-effort, silent on failure.
// A missing source is tolerated because not every declared path is
// guaranteed to exist for every job (e.g. optional outputs); a job whose
// mandatory files fail to materialize is caught downstream by the job
// layer's fingerprint/result checks, not here.
func tryCopy(src, dst string) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return
	}
	info, err := os.Stat(src)
	if err != nil {
		return
	}
	if info.IsDir() {
		_ = copyTree(src, dst)
		return
	}
	_ = copyFile(src, dst, info.Mode())
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
