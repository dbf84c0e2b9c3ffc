package job

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var shVarName = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// writeShEnv writes a sourceable shell snippet exporting env, sorted by key
// for a stable diff. Ported from job.py's write_sh_env.
func writeShEnv(path string, env map[string]string) error {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if !shVarName.MatchString(k) {
			return fmt.Errorf("job: invalid shell variable name: %s", k)
		}
		fmt.Fprintf(&b, "export %s=%q\n", k, env[k])
	}
	return atomicWriteFile(path, []byte(b.String()))
}
