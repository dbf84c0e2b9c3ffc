package clerk

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandExtra resolves a result.extra pattern against workdir into a list of
// workdir-relative paths. A pattern containing no glob metacharacters
// resolves to itself unchanged (even if the file does not exist yet, so a
// single missing optional output does not abort the whole job); anything
// else is expanded with doublestar, which additionally supports "**" for
// recursive matches that the stdlib's path/filepath.Glob cannot express.
//
// This is an (expansion): the original flattens result.extra to one literal
// path per line.
func ExpandExtra(workdir, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("clerk: invalid extra pattern %q", pattern)
	}
	if !hasMeta(pattern) {
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(filepath.Join(workdir, pattern))
	if err != nil {
		return nil, fmt.Errorf("clerk: expand extra pattern %q: %w", pattern, err)
	}
	rel := make([]string, 0, len(matches))
	for _, m := range matches {
		r, err := filepath.Rel(workdir, m)
		if err != nil {
			return nil, fmt.Errorf("clerk: relativize match %q: %w", m, err)
		}
		rel = append(rel, r)
	}
	return rel, nil
}

func hasMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
