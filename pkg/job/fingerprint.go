package job

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/tree"
)

// fingerprintBlockSize matches the original's 1_048_576-byte streaming read.
const fingerprintBlockSize = 1 << 20

// computeHashes walks data for apitype.FilePath leaves and returns the
// SHA-256 hex digest of each referenced file, streamed in 1 MiB blocks,
// keyed by the leaf's (workdir-relative) path string. Ported from job.py's
// compute_hashes.
//
// crypto/sha256 is used directly rather than a third-party checksum
// library: the wire format (a sha256sum-compatible "<hex>  <path>\n" line
// per entry, see dumpHashes/loadHashes) is an external constraint dictated
// by spec.md §4.8, not a gap any hashing library fills better than the
// standard library's own SHA-256 implementation.
func computeHashes(data any, workdir string) (map[string]string, error) {
	result := make(map[string]string)
	var walkErr error
	_ = tree.Walk(func(_ []any, leaves []any) error {
		fp, ok := leaves[0].(apitype.FilePath)
		if !ok {
			return nil
		}
		digest, err := hashFile(filepath.Join(workdir, string(fp)))
		if err != nil {
			if walkErr == nil {
				walkErr = err
			}
			return nil
		}
		result[string(fp)] = digest
		return nil
	}, data)
	if walkErr != nil {
		return nil, walkErr
	}
	return result, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, fingerprintBlockSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// dumpHashes writes hashes to path in sha256sum-compatible format, sorted
// by path for a stable diff. Ported from job.py's dump_hashes.
func dumpHashes(path string, hashes map[string]string) error {
	paths := make([]string, 0, len(hashes))
	for p := range hashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "%s  %s\n", hashes[p], p)
	}
	return atomicWriteFile(path, []byte(b.String()))
}

// loadHashes parses a sha256sum-compatible file. Ported from job.py's
// load_hashes, including its strict per-line validation.
func loadHashes(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	result := make(map[string]string)
	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" {
			continue
		}
		if len(line) < 66 {
			return nil, fmt.Errorf("job: incorrectly formatted checksum line: %q", line)
		}
		sha := strings.ToLower(line[:64])
		p := strings.TrimSpace(line[66:])
		if p == "" || len(sha) != 64 || !isHex(sha) {
			return nil, fmt.Errorf("job: incorrectly formatted checksum line: %q", line)
		}
		result[p] = sha
	}
	return result, nil
}

func isHex(s string) bool {
	for _, c := range s {
		if _, err := strconv.ParseUint(string(c), 16, 8); err != nil {
			return false
		}
	}
	return true
}

func hashesEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
