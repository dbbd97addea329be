// Package cmd provides the task CLI on top of the buildsys package.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/and3rson/yagni/pkg/buildsys"
)

// RootCmd parses the first tasks.star file it finds (starting at the working
// directory, walking up) and executes the given tasks. Arguments of the form
// key=value override script options, "task configure" records them for later
// runs.
var RootCmd = &cobra.Command{
	Use:   "task [tasks and key=value options...]",
	Short: "Runs tasks declared in tasks.star",
	Long: `This command parses the first tasks.star file it finds and executes the given tasks.
Run it without arguments to list the available tasks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		overrides := make(map[string]string)
		names := make([]string, 0)
		for _, arg := range args {
			if pos := strings.Index(arg, "="); pos > -1 {
				overrides[arg[:pos]] = arg[pos+1:]
			} else {
				names = append(names, arg)
			}
		}

		logger := zerolog.New(NewConsoleWriter())
		ctx := buildsys.WithLogger(context.Background(), &logger)

		taskPath, err := findTaskScript()
		if err != nil {
			logger.Fatal().Err(err).Msg("Could not find the task script")
		}

		root := filepath.Dir(taskPath)
		cachePath := filepath.Join(root, ".tasks.star.cache")

		if len(names) == 1 && names[0] == "configure" {
			err = configure(ctx, taskPath, cachePath, overrides, &logger)
			if err != nil {
				logger.Fatal().Err(err).Msg("Failed to configure")
			}
			return nil
		}

		tasks, err := loadTasks(ctx, taskPath, cachePath, overrides)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to parse tasks")
		}

		if len(names) == 0 {
			listTasks(tasks)
			return nil
		}

		for _, name := range names {
			err = buildsys.RunTask(ctx, root, name, tasks, dryRun, force)
			if err != nil {
				logger.Fatal().Err(err).Msgf("Failed task %s", name)
			}
		}

		return nil
	},
}

func init() {
	RootCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	RootCmd.Flags().BoolP("force", "f", false, "force run; always execute the passed tasks even if they don't have to run")
}

// findTaskScript walks up from the working directory until it finds a
// tasks.star file and returns its path relative to the working directory.
func findTaskScript() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "failed to retrieve the current working directory")
	}

	dir := wd
	for {
		taskPath := filepath.Join(dir, "tasks.star")
		_, err := os.Stat(taskPath)
		if err == nil {
			relPath, err := filepath.Rel(wd, taskPath)
			if err != nil {
				return taskPath, nil
			}
			return relPath, nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", taskPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", eris.New("no tasks.star file found")
		}
		dir = parent
	}
}

// configure evaluates the script and records the effective value of every
// declared option so later runs can reuse them.
func configure(ctx context.Context, taskPath, cachePath string, overrides map[string]string, logger *zerolog.Logger) error {
	tasks, declared, err := buildsys.LoadScript(ctx, taskPath, filepath.Dir(taskPath), overrides, true)
	if err != nil {
		return err
	}

	for name := range overrides {
		if _, ok := declared[name]; !ok {
			logger.Warn().Msgf("Option %s is not declared in %s", name, taskPath)
		}
	}

	effective := make(map[string]string, len(declared))
	for name, option := range declared {
		if value, ok := overrides[name]; ok {
			effective[name] = value
		} else {
			effective[name] = option.Default
		}
	}

	err = buildsys.WriteCache(cachePath, effective, tasks)
	if err != nil {
		return err
	}

	fmt.Println("Configured options:")
	names := make([]string, 0, len(effective))
	for name := range effective {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf(" * %s = %s\n", name, effective[name])
	}

	return nil
}

// loadTasks returns the cached task list when it's still fresh and no new
// overrides were given; otherwise it re-evaluates the script with the
// overrides applied on top of the recorded options.
func loadTasks(ctx context.Context, taskPath, cachePath string, overrides map[string]string) (buildsys.TaskList, error) {
	cachedOptions, cachedTasks, err := buildsys.ReadCache(cachePath)
	if err == nil && len(overrides) == 0 && cacheFresh(cachePath, taskPath) {
		return cachedTasks, nil
	}

	merged := make(map[string]string, len(cachedOptions)+len(overrides))
	for name, value := range cachedOptions {
		merged[name] = value
	}
	for name, value := range overrides {
		merged[name] = value
	}

	tasks, _, err := buildsys.LoadScript(ctx, taskPath, filepath.Dir(taskPath), merged, true)
	return tasks, err
}

func cacheFresh(cachePath, taskPath string) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}

	scriptInfo, err := os.Stat(taskPath)
	if err != nil {
		return false
	}

	return !cacheInfo.ModTime().Before(scriptInfo.ModTime())
}

func listTasks(tasks buildsys.TaskList) {
	fmt.Println("Available tasks:")

	maxNameLen := 0
	names := make([]string, 0, len(tasks))
	for _, task := range tasks {
		if len(task.Name) > maxNameLen {
			maxNameLen = len(task.Name)
		}

		names = append(names, task.Name)
	}
	sort.Strings(names)

	lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
	for _, name := range names {
		fmt.Printf(lineFmt, name+":", tasks[name].Desc)
	}
}
