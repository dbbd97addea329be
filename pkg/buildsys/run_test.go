package buildsys

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScript(t *testing.T, dir, content string) TaskList {
	t.Helper()

	script := writeScript(t, dir, content)
	tasks, _, err := LoadScript(testCtx(), script, dir, nil, true)
	require.NoError(t, err)
	return tasks
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestRunTaskExecutesCommands(t *testing.T) {
	dir := t.TempDir()
	tasks := loadTestScript(t, dir, `
def configure():
    task("hello", cmds=["echo hi > greeting.txt"])
`)

	err := RunTask(testCtx(), dir, "hello", tasks, false, false)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", readTestFile(t, filepath.Join(dir, "greeting.txt")))
}

func TestRunTaskRunsDependenciesFirst(t *testing.T) {
	dir := t.TempDir()
	tasks := loadTestScript(t, dir, `
def configure():
    task("prepare", cmds=["echo one >> order.txt"])
    task("build", deps=["prepare"], cmds=["echo two >> order.txt"])
`)

	err := RunTask(testCtx(), dir, "build", tasks, false, false)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", readTestFile(t, filepath.Join(dir, "order.txt")))
}

func TestRunTaskRunsReferencedTasksInPlace(t *testing.T) {
	dir := t.TempDir()
	tasks := loadTestScript(t, dir, `
def configure():
    helper = task(name="helper", hidden=True, cmds=["echo one >> order.txt"])
    task("main", cmds=[helper, "echo two >> order.txt"])
`)

	require.NotContains(t, tasks, "helper")

	err := RunTask(testCtx(), dir, "main", tasks, false, false)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", readTestFile(t, filepath.Join(dir, "order.txt")))
}

func TestRunTaskDetectsDependencyCycles(t *testing.T) {
	dir := t.TempDir()
	tasks := loadTestScript(t, dir, `
def configure():
    task("a", deps=["b"], cmds=["echo a"])
    task("b", deps=["a"], cmds=["echo b"])
`)

	err := RunTask(testCtx(), dir, "a", tasks, false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recursively")
}

func TestRunTaskFailsOnUnknownTask(t *testing.T) {
	dir := t.TempDir()
	tasks := loadTestScript(t, dir, `
def configure():
    task("known", cmds=[])
`)

	err := RunTask(testCtx(), dir, "unknown", tasks, false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunTaskDryRunSkipsExecution(t *testing.T) {
	dir := t.TempDir()
	tasks := loadTestScript(t, dir, `
def configure():
    task("hello", cmds=["echo hi > greeting.txt"])
`)

	err := RunTask(testCtx(), dir, "hello", tasks, true, false)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "greeting.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunTaskSkipIfExists(t *testing.T) {
	dir := t.TempDir()
	tasks := loadTestScript(t, dir, `
def configure():
    task("gen", skip_if_exists=["marker.txt"], cmds=["echo ran >> log.txt"])
`)

	err := RunTask(testCtx(), dir, "gen", tasks, false, false)
	require.NoError(t, err)
	assert.Equal(t, "ran\n", readTestFile(t, filepath.Join(dir, "log.txt")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o600))

	err = RunTask(testCtx(), dir, "gen", tasks, false, false)
	require.NoError(t, err)
	assert.Equal(t, "ran\n", readTestFile(t, filepath.Join(dir, "log.txt")))
}

func TestRunTaskSkipsFreshOutputs(t *testing.T) {
	dir := t.TempDir()

	input := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(input, []byte("data"), 0o600))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(input, past, past))

	tasks := loadTestScript(t, dir, `
def configure():
    task("copy", inputs=["in.txt"], outputs=["out.txt"], cmds=["echo ran >> out.txt"])
`)

	err := RunTask(testCtx(), dir, "copy", tasks, false, false)
	require.NoError(t, err)
	assert.Equal(t, "ran\n", readTestFile(t, filepath.Join(dir, "out.txt")))

	// output is now newer than the input, nothing to do
	err = RunTask(testCtx(), dir, "copy", tasks, false, false)
	require.NoError(t, err)
	assert.Equal(t, "ran\n", readTestFile(t, filepath.Join(dir, "out.txt")))

	// force overrides the freshness check
	err = RunTask(testCtx(), dir, "copy", tasks, false, true)
	require.NoError(t, err)
	assert.Equal(t, "ran\nran\n", readTestFile(t, filepath.Join(dir, "out.txt")))
}

func TestRunTaskRunsEachTaskOnce(t *testing.T) {
	dir := t.TempDir()
	tasks := loadTestScript(t, dir, `
def configure():
    task("base", cmds=["echo base >> log.txt"])
    task("left", deps=["base"], cmds=["echo left >> log.txt"])
    task("right", deps=["base"], cmds=["echo right >> log.txt"])
    task("all", deps=["left", "right"], cmds=["echo all >> log.txt"])
`)

	err := RunTask(testCtx(), dir, "all", tasks, false, false)
	require.NoError(t, err)
	assert.Equal(t, "base\nleft\nright\nall\n", readTestFile(t, filepath.Join(dir, "log.txt")))
}
