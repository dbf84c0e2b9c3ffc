package job_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/clerk"
	"github.com/reproducible-reporting/parman/pkg/job"
	"github.com/reproducible-reporting/parman/pkg/metafunc"
	"github.com/reproducible-reporting/parman/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doubleParams struct {
	N int `parman:"n"`
}

const doubleScript = `#!/bin/sh
set -e
n=$(grep -oE '"n": *-?[0-9]+' kwargs.json | grep -oE -- '-?[0-9]+$')
count=0
if [ -f runs.count ]; then
  count=$(cat runs.count)
fi
count=$((count + 1))
echo "$count" > runs.count
echo "{\"doubled\": $((n * 2))}" > result.json
`

// setupTemplate writes a template directory containing an executable
// "run" script and registers it under its own absolute path, returning
// that path.
func setupTemplate(t *testing.T, dir string) string {
	t.Helper()
	templateDir := filepath.Join(dir, "template")
	require.NoError(t, os.MkdirAll(templateDir, 0o755))
	scriptPath := filepath.Join(templateDir, "run")
	require.NoError(t, os.WriteFile(scriptPath, []byte(doubleScript), 0o755))

	template.Register(templateDir, template.Info{
		Params: apitype.FromStruct(doubleParams{}),
		Mock: func(kwargs map[string]any) (any, error) {
			return map[string]any{"doubled": 0}, nil
		},
		Resumable: false,
	})
	return templateDir
}

func TestJobFirstRunExecutesScriptAndWritesResult(t *testing.T) {
	dir := t.TempDir()
	templateDir := setupTemplate(t, dir)
	j, err := job.FromTemplate(templateDir)
	require.NoError(t, err)

	c := clerk.NewLocal(filepath.Join(dir, "results"))
	args := job.NewArgs(c, "case1", "run", map[string]any{"n": 3}, nil)

	result, err := j.Call(args)
	require.NoError(t, err)
	assert.Equal(t, int64(6), result.(map[string]any)["doubled"])

	workdir := filepath.Join(dir, "results", "case1")
	for _, name := range []string{"kwargs.json", "kwargs.sha256", "run", "run.out", "run.err", "jobinfo", "runs.count"} {
		_, statErr := os.Stat(filepath.Join(workdir, name))
		assert.NoError(t, statErr, "expected %s to exist", name)
	}
}

func TestJobRerunWithSameKwargsSkipsScript(t *testing.T) {
	dir := t.TempDir()
	templateDir := setupTemplate(t, dir)
	j, err := job.FromTemplate(templateDir)
	require.NoError(t, err)

	c := clerk.NewLocal(filepath.Join(dir, "results"))
	args := job.NewArgs(c, "case2", "run", map[string]any{"n": 5}, nil)

	_, err = j.Call(args)
	require.NoError(t, err)

	countPath := filepath.Join(dir, "results", "case2", "runs.count")
	before, err := os.ReadFile(countPath)
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(string(before)))

	result, err := j.Call(args)
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.(map[string]any)["doubled"])

	after, err := os.ReadFile(countPath)
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(string(after)), "script must not rerun for unchanged kwargs")
}

func TestJobChangedKwargsFailsWithCompanionFile(t *testing.T) {
	dir := t.TempDir()
	templateDir := setupTemplate(t, dir)
	j, err := job.FromTemplate(templateDir)
	require.NoError(t, err)

	c := clerk.NewLocal(filepath.Join(dir, "results"))
	first := job.NewArgs(c, "case3", "run", map[string]any{"n": 1}, nil)
	_, err = j.Call(first)
	require.NoError(t, err)

	second := job.NewArgs(c, "case3", "run", map[string]any{"n": 2}, nil)
	_, err = j.Call(second)
	require.Error(t, err)
	var changed *job.InputsChangedError
	require.ErrorAs(t, err, &changed)

	_, statErr := os.Stat(filepath.Join(dir, "results", "case3", "kwargs-new.json"))
	assert.NoError(t, statErr)
}

func TestJobBrokenStateWhenResultWithoutKwargs(t *testing.T) {
	dir := t.TempDir()
	templateDir := setupTemplate(t, dir)
	j, err := job.FromTemplate(templateDir)
	require.NoError(t, err)

	workdir := filepath.Join(dir, "results", "case4")
	require.NoError(t, os.MkdirAll(workdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "result.json"), []byte(`{"doubled": 0}`), 0o644))

	c := clerk.NewLocal(filepath.Join(dir, "results"))
	args := job.NewArgs(c, "case4", "run", map[string]any{"n": 1}, nil)

	_, err = j.Call(args)
	require.Error(t, err)
	var broken *job.BrokenStateError
	require.ErrorAs(t, err, &broken)
}

func TestJobThroughClosureValidatesParamsAndResult(t *testing.T) {
	dir := t.TempDir()
	templateDir := setupTemplate(t, dir)
	j, err := job.FromTemplate(templateDir)
	require.NoError(t, err)

	c := clerk.NewLocal(filepath.Join(dir, "results"))
	args := job.NewArgs(c, "case5", "run", map[string]any{"n": 4}, nil)
	closure := metafunc.New(j, args)

	result, err := closure.ValidatedCall()
	require.NoError(t, err)
	assert.Equal(t, int64(8), result.(map[string]any)["doubled"])
}
