package buildsys

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type taskState int

const (
	taskRunning taskState = iota + 1
	taskDone
)

type (
	runKey struct{}
	runCtx struct {
		states map[string]taskState
		root   string
	}
)

func getRunCtx(ctx context.Context) *runCtx {
	return ctx.Value(runKey{}).(*runCtx)
}

func taskEnviron(task *Task) expand.Environ {
	envVars := os.Environ()
	for name, value := range task.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, value))
	}

	return expand.ListEnviron(envVars...)
}

// RunTask executes the named task after running its dependencies. Each task
// runs at most once per call; force only applies to the named task itself.
func RunTask(ctx context.Context, projectRoot, name string, tasks TaskList, dryRun, force bool) error {
	rctx := runCtx{
		root:   projectRoot,
		states: map[string]taskState{},
	}
	ctx = context.WithValue(ctx, runKey{}, &rctx)

	task, found := tasks[name]
	if !found {
		return eris.Errorf("Task %s not found", name)
	}

	return runTask(ctx, task, tasks, dryRun, force)
}

func runTask(ctx context.Context, task *Task, tasks TaskList, dryRun, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rctx := getRunCtx(ctx)
	switch rctx.states[task.Name] {
	case taskDone:
		log(ctx).Debug().Msgf("Task %s already run", task.Name)
		return nil
	case taskRunning:
		return eris.Errorf("Task %s was called recursively", task.Name)
	}
	rctx.states[task.Name] = taskRunning

	for _, dep := range task.Deps {
		if rctx.states[dep] == taskDone {
			continue
		}

		depTask, ok := tasks[dep]
		if !ok {
			return eris.Errorf("Task %s not found", dep)
		}

		err := runTask(ctx, depTask, tasks, dryRun, false)
		if err != nil {
			return eris.Wrapf(err, "Task %s failed due to its dependency %s", task.Name, dep)
		}
	}

	if !force {
		skip, err := shouldSkip(ctx, task)
		if err != nil {
			return err
		}

		if skip {
			rctx.states[task.Name] = taskDone
			return nil
		}
	}

	runner, err := interp.New(
		interp.Dir(task.Base),
		interp.Env(taskEnviron(task)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, os.Stdout, os.Stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "Failed to initialize runner")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(syntax.Minify(true))
	buf := strings.Builder{}

	for _, step := range task.Steps {
		stmts, err := step.ShellStmts(parser)
		if err != nil {
			return eris.Wrap(err, "failed to parse shell script")
		}

		if stmts == nil {
			sub := step.TaskRef()
			if sub == nil {
				return eris.Errorf("unexpected task step %+v", step)
			}

			err = runTask(ctx, sub, tasks, dryRun, force)
			if err != nil {
				return err
			}
		} else {
			for _, stmt := range stmts {
				buf.Reset()
				if err := printer.Print(&buf, stmt); err == nil {
					log(ctx).Info().
						Str("task", task.Name).
						Bool("command", true).
						Msg(buf.String())
				}

				if dryRun {
					continue
				}

				err = runner.Run(ctx, stmt)
				if err != nil {
					return err
				}

				if runner.Exited() {
					return nil
				}
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	rctx.states[task.Name] = taskDone
	return nil
}

// shouldSkip implements the two freshness checks: skip-if-exists and the
// input/output mtime comparison.
func shouldSkip(ctx context.Context, task *Task) (bool, error) {
	if len(task.SkipIfExists) > 0 {
		skipList, err := resolvePatterns(ctx, task.Base, task.SkipIfExists)
		if err != nil {
			return false, eris.Wrap(err, "failed to resolve skip_if_exists list")
		}

		found := 0
		for _, item := range skipList {
			_, err := os.Stat(item)
			if err == nil {
				found++
			} else if !eris.Is(err, os.ErrNotExist) {
				return false, eris.Wrapf(err, "Failed to check %s", item)
			}
		}

		if found > 0 && found == len(skipList) {
			log(ctx).Info().
				Str("task", task.Name).
				Msg("skipped because all skip files exist")
			return true, nil
		}
	}

	inputs, err := resolvePatterns(ctx, task.Base, task.Inputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve inputs")
	}

	outputs, err := resolvePatterns(ctx, task.Base, task.Outputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve outputs")
	}

	var newestInput time.Time
	for _, item := range inputs {
		info, err := os.Stat(item)
		if err != nil {
			return false, eris.Wrapf(err, "Failed to check input %s", item)
		}

		if info.ModTime().After(newestInput) {
			newestInput = info.ModTime()
		}
	}

	if newestInput.IsZero() {
		return false, nil
	}

	var newestOutput time.Time
	oldestOutput := time.Now()
	for _, item := range outputs {
		info, err := os.Stat(item)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				continue
			}
			return false, eris.Wrapf(err, "Failed to check output %s", item)
		}

		mt := info.ModTime()
		if mt.After(newestOutput) {
			newestOutput = mt
		}
		if mt.Before(oldestOutput) {
			oldestOutput = mt
		}
	}

	if newestOutput.Sub(oldestOutput) > 10*time.Minute {
		log(ctx).Warn().
			Str("task", task.Name).
			Msgf("oldest output is %f minutes older than the newest output", newestOutput.Sub(oldestOutput).Minutes())
	}

	if newestOutput.After(newestInput) {
		log(ctx).Info().
			Str("task", task.Name).
			Msgf("nothing to do (output is %f seconds newer)", newestOutput.Sub(newestInput).Seconds())
		return true, nil
	}

	return false, nil
}
