package job

import (
	"encoding/json"
	"fmt"
	"os"
)

// atomicWriteFile writes data to path via a temp-file-then-os.Rename
// sequence, adapted from the teacher's snapshot.Manager.Write: a mid-write
// crash leaves either the untouched original or nothing at path, never a
// truncated file. The original Python implementation writes kwargs.json
// etc. with a plain open(...).write because CPython's GIL plus
// one-job-per-process discipline made torn writes a non-issue there; this
// port runs many jobs concurrently across goroutines sharing a clerk root,
// so atomic replacement is load-bearing here in a way it wasn't upstream.
func atomicWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("job: write temp file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("job: rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

// atomicWriteJSON marshals v as indented JSON and writes it atomically.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("job: marshal %s: %w", path, err)
	}
	return atomicWriteFile(path, data)
}
