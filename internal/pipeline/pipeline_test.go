package pipeline_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/reproducible-reporting/parman/internal/pipeline"
	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/clerk"
	"github.com/reproducible-reporting/parman/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// moduleRoot locates the repository root relative to this test file, since
// every template is registered under a path ("templates/boot", ...) that
// job.execute resolves relative to the process's working directory, the
// same way a "templates/boot" job locator in a job("templates/boot", ...)
// call resolves relative to wherever the pipeline binary runs from.
func moduleRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..")
}

// chdir switches the process into dir for the duration of the test,
// restoring the original working directory on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func smallConfig() pipeline.Config {
	return pipeline.Config{
		BootSize:      2,
		SampleSize:    2,
		CommitteeSize: 2,
		Temperatures:  []int{300},
		Generations:   2,
		Pause:         0,
	}
}

func TestRunWithSerialRunnerProducesFinalCommittee(t *testing.T) {
	chdir(t, moduleRoot(t))

	dir := t.TempDir()
	c := clerk.NewLocal(filepath.Join(dir, "results"))
	r := runner.NewSerial()

	models, err := pipeline.Run(r, c, smallConfig())
	require.NoError(t, err)
	assert.Len(t, models, smallConfig().CommitteeSize)
	require.NoError(t, r.Shutdown())
}

func TestRunWithWorkerPoolRunnerProducesFinalCommittee(t *testing.T) {
	chdir(t, moduleRoot(t))

	dir := t.TempDir()
	c := clerk.NewLocal(filepath.Join(dir, "results"))
	r := runner.NewWorkerPool(runner.WorkerPoolOptions{Workers: 4})

	models, err := pipeline.Run(r, c, smallConfig())
	require.NoError(t, err)
	assert.Len(t, models, smallConfig().CommitteeSize)
	require.NoError(t, r.Shutdown())
}

func TestRunProducesRetrievableModelFiles(t *testing.T) {
	chdir(t, moduleRoot(t))

	dir := t.TempDir()
	root := filepath.Join(dir, "results")
	c := clerk.NewLocal(root)
	r := runner.NewSerial()

	models, err := pipeline.Run(r, c, smallConfig())
	require.NoError(t, err)
	require.NoError(t, r.Shutdown())

	for _, m := range models {
		fp, ok := m.(apitype.FilePath)
		require.True(t, ok, "model entry should be a FilePath, got %T", m)
		_, statErr := os.Stat(filepath.Join(root, string(fp)))
		assert.NoError(t, statErr)
	}
}
