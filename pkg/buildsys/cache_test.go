package buildsys

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, ".tasks.star.cache")

	hidden := &Task{
		Name:   "auto#1",
		Hidden: true,
		Steps:  []Step{ShellStep{Label: "auto#1:0", Script: "echo hidden"}},
	}
	tasks := TaskList{
		"build": {
			Name: "build",
			Desc: "Builds everything",
			Base: dir,
			Deps: []string{"prepare"},
			Env:  map[string]string{"CGO_ENABLED": "0"},
			Steps: []Step{
				ShellStep{Label: "build:0", Script: "echo one"},
				RefStep{Task: hidden},
			},
		},
	}
	options := map[string]string{"go": "go1.21"}

	require.NoError(t, WriteCache(cachePath, options, tasks))

	gotOptions, gotTasks, err := ReadCache(cachePath)
	require.NoError(t, err)
	assert.Equal(t, options, gotOptions)

	require.Contains(t, gotTasks, "build")
	task := gotTasks["build"]
	assert.Equal(t, "Builds everything", task.Desc)
	assert.Equal(t, []string{"prepare"}, task.Deps)
	assert.Equal(t, "0", task.Env["CGO_ENABLED"])

	require.Len(t, task.Steps, 2)
	assert.Equal(t, "echo one", task.Steps[0].(ShellStep).Script)
	ref := task.Steps[1].(RefStep)
	require.NotNil(t, ref.Task)
	assert.Equal(t, "auto#1", ref.Task.Name)
}

func TestReadCacheMissingFile(t *testing.T) {
	_, _, err := ReadCache(filepath.Join(t.TempDir(), "missing.cache"))
	assert.Error(t, err)
}
