package clerk_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reproducible-reporting/parman/pkg/apitype"
	"github.com/reproducible-reporting/parman/pkg/clerk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWorkdirCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	c := clerk.NewLocal(root)
	workdir, release, err := c.Workdir("stageA/job1")
	require.NoError(t, err)
	assert.DirExists(t, workdir)
	assert.NoError(t, release(true))
}

func TestLocalPullReturnsRelativeOffset(t *testing.T) {
	root := t.TempDir()
	c := clerk.NewLocal(root)
	workdir, _, err := c.Workdir("stageA/job1")
	require.NoError(t, err)

	local, err := c.Pull("stageA/job0/input.txt", "stageA/job1", workdir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("..", "job0", "input.txt"), local)
}

func TestLocalPushJoinsLocator(t *testing.T) {
	root := t.TempDir()
	c := clerk.NewLocal(root)
	workdir, _, err := c.Workdir("stageA/job1")
	require.NoError(t, err)

	global, err := c.Push("output.txt", "stageA/job1", workdir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("stageA", "job1", "output.txt"), global)
}

func TestLocalPullRejectsInconsistentWorkdir(t *testing.T) {
	root := t.TempDir()
	c := clerk.NewLocal(root)
	_, err := c.Pull("x", "stageA/job1", "/somewhere/else")
	assert.Error(t, err)
}

func TestLocalizeGlobalizeRoundTrip(t *testing.T) {
	root := t.TempDir()
	c := clerk.NewLocal(root)
	workdir, _, err := c.Workdir("stageA/job1")
	require.NoError(t, err)

	data := map[string]any{
		"input": apitype.FilePath("stageA/job0/input.txt"),
		"count": 3.0,
	}
	localized, err := clerk.Localize(c, data, "stageA/job1", workdir)
	require.NoError(t, err)
	m := localized.(map[string]any)
	assert.Equal(t, apitype.FilePath(filepath.Join("..", "job0", "input.txt")), m["input"])
	assert.Equal(t, 3.0, m["count"])

	globalized, err := clerk.Globalize(c, localized, "stageA/job1", workdir)
	require.NoError(t, err)
	g := globalized.(map[string]any)
	assert.Equal(t, apitype.FilePath(filepath.Join("stageA", "job1", "..", "job0", "input.txt")), g["input"])
}

func TestScratchCopyPullCopiesFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "stageA", "job0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stageA", "job0", "input.txt"), []byte("hi"), 0o644))

	c := &clerk.ScratchCopy{Root: root, Tmp: t.TempDir()}
	workdir, release, err := c.Workdir("stageA/job1")
	require.NoError(t, err)
	defer release(true)

	local, err := c.Pull("stageA/job0/input.txt", "stageA/job1", workdir)
	require.NoError(t, err)
	contents, err := os.ReadFile(filepath.Join(workdir, local))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(contents))
}

func TestScratchCopyPushCopiesFileToRoot(t *testing.T) {
	root := t.TempDir()
	c := &clerk.ScratchCopy{Root: root, Tmp: t.TempDir()}
	workdir, release, err := c.Workdir("stageA/job1")
	require.NoError(t, err)
	defer release(true)

	require.NoError(t, os.WriteFile(filepath.Join(workdir, "out.txt"), []byte("bye"), 0o644))
	global, err := c.Push("out.txt", "stageA/job1", workdir)
	require.NoError(t, err)
	contents, err := os.ReadFile(filepath.Join(root, global))
	require.NoError(t, err)
	assert.Equal(t, "bye", string(contents))
}

func TestScratchCopyReleaseKeepsTreeOnFailure(t *testing.T) {
	c := &clerk.ScratchCopy{Root: t.TempDir(), Tmp: t.TempDir()}
	workdir, release, err := c.Workdir("job1")
	require.NoError(t, err)
	require.NoError(t, release(false))
	assert.DirExists(t, workdir)
}

func TestExpandExtraLiteralPathPassesThrough(t *testing.T) {
	paths, err := clerk.ExpandExtra(t.TempDir(), "out/result.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"out/result.txt"}, paths)
}

func TestExpandExtraGlobMatchesFiles(t *testing.T) {
	workdir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workdir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "logs", "a.log"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "logs", "b.log"), nil, 0o644))

	paths, err := clerk.ExpandExtra(workdir, "logs/*.log")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join("logs", "a.log"),
		filepath.Join("logs", "b.log"),
	}, paths)
}
