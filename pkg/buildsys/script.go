package buildsys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"mvdan.cc/sh/v3/syntax"
)

// scriptCtx carries the state of a single script evaluation. It's stored as a
// thread-local so the builtins can reach it.
type scriptCtx struct {
	ctx       context.Context
	file      string
	root      string
	options   map[string]Option
	overrides map[string]string
	env       map[string]string
	yamlDocs  map[string]interface{}
	tasks     []*Task
	initPhase bool
}

func getCtx(thread *starlark.Thread) *scriptCtx {
	return thread.Local("scriptCtx").(*scriptCtx)
}

func stringSlice(input *starlark.List, field string) ([]string, error) {
	if input == nil {
		return []string{}, nil
	}

	result := make([]string, 0, input.Len())
	iter := input.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		str, ok := item.(starlark.String)
		if !ok {
			return nil, eris.Errorf("expected all items in %s to be strings but found %s", field, item.Type())
		}

		result = append(result, str.GoString())
	}

	return result, nil
}

func envMap(env *starlark.Dict) (map[string]string, error) {
	result := map[string]string{}
	if env == nil {
		return result, nil
	}

	for _, rawKey := range env.Keys() {
		key, ok := rawKey.(starlark.String)
		if !ok {
			return nil, eris.Errorf("found key of type %s in env map but only strings are supported", rawKey.Type())
		}

		rawValue, _, err := env.Get(rawKey)
		if err != nil {
			return nil, err
		}

		value, ok := rawValue.(starlark.String)
		if !ok {
			return nil, eris.Errorf("found value of type %s for key %s but only strings are supported", rawValue.Type(), key.GoString())
		}

		result[key.GoString()] = value.GoString()
	}

	return result, nil
}

func listToTuple(list *starlark.List) starlark.Tuple {
	parts := make(starlark.Tuple, 0, list.Len())
	iter := list.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		parts = append(parts, item)
	}

	return parts
}

// argvCall converts an argv tuple from a task declaration into a shell call.
// Leading "VAR=value" strings become assignments, path arguments are rebased
// on the task's working directory.
func argvCall(parts starlark.Tuple, parser *syntax.Parser, base string) (*syntax.CallExpr, error) {
	envVars := make([]string, 0, len(parts))
	for _, part := range parts {
		str, ok := part.(starlark.String)
		if !ok || !strings.Contains(str.GoString(), "=") {
			break
		}

		envVars = append(envVars, str.GoString())
	}

	var call *syntax.CallExpr
	if len(envVars) > 0 {
		joined := strings.Join(envVars, " ")
		result, err := parser.Parse(strings.NewReader(joined), "env vars")
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse command vars %s", joined)
		}

		if len(result.Stmts) != 1 || result.Stmts[0].Cmd == nil {
			return nil, eris.Errorf("malformed env vars %s", joined)
		}

		var ok bool
		call, ok = result.Stmts[0].Cmd.(*syntax.CallExpr)
		if !ok || call.Assigns == nil {
			return nil, eris.Errorf("malformed env vars %s", joined)
		}
	} else {
		call = new(syntax.CallExpr)
	}

	call.Args = make([]*syntax.Word, len(parts)-len(envVars))
	for idx, arg := range parts[len(envVars):] {
		var value string

		switch arg := arg.(type) {
		case starlark.String:
			value = arg.GoString()
		case Path:
			value = string(arg)

			if filepath.IsAbs(value) {
				// absolute paths cause issues on Windows
				relValue, err := filepath.Rel(base, value)
				if err == nil {
					value = relValue
				}
			}

			value = filepath.ToSlash(value)
		default:
			return nil, eris.Errorf("found argument of type %s but only strings and paths are supported: %s", arg.Type(), arg.String())
		}

		var part syntax.WordPart
		if strings.ContainsAny(value, " $'") {
			part = &syntax.SglQuoted{Value: value}
		} else {
			part = &syntax.Lit{Value: value}
		}

		call.Args[idx] = &syntax.Word{Parts: []syntax.WordPart{part}}
	}

	return call, nil
}

func argvToScript(parts starlark.Tuple, parser *syntax.Parser, printer *syntax.Printer, base string) (string, error) {
	call, err := argvCall(parts, parser, base)
	if err != nil {
		return "", err
	}

	buf := strings.Builder{}
	err = printer.Print(&buf, call)
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

func info(thread *starlark.Thread, msg string, args ...interface{}) {
	sc := getCtx(thread)
	pos := thread.CallFrame(1).Pos
	file := prettyPath(sc, sc.file)

	log(sc.ctx).Info().
		Msgf("%s:%d:%d: %s", file, pos.Line, pos.Col, fmt.Sprintf(msg, args...))
}

func warn(thread *starlark.Thread, msg string, args ...interface{}) {
	sc := getCtx(thread)
	pos := thread.CallFrame(1).Pos
	file := prettyPath(sc, sc.file)

	log(sc.ctx).Warn().
		Msgf("%s:%d:%d: %s", file, pos.Line, pos.Col, fmt.Sprintf(msg, args...))
}

func starOption(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultValue starlark.String
	var help string

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &defaultValue, "help?", &help)
	if err != nil {
		return nil, err
	}

	sc := getCtx(thread)
	if !sc.initPhase {
		return nil, eris.New("can only be called during the init phase (in the global scope)")
	}

	sc.options[name] = Option{
		Default: defaultValue.GoString(),
		Help:    help,
	}

	if value, ok := sc.overrides[name]; ok {
		return starlark.String(value), nil
	}

	return defaultValue, nil
}

func starTask(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var deps *starlark.List
	var inputs *starlark.List
	var outputs *starlark.List
	var skipIfExists *starlark.List
	var env *starlark.Dict
	var cmds *starlark.List

	task := new(Task)

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name?", &task.Name, "hidden?", &task.Hidden,
		"desc?", &task.Desc, "deps?", &deps, "base?", &task.Base, "skip_if_exists?", &skipIfExists,
		"inputs?", &inputs, "outputs?", &outputs, "env?", &env, "cmds?", &cmds)
	if err != nil {
		return nil, err
	}

	if task.Name == "" {
		task.Hidden = true
		task.Name = "auto#" + nanoid.New()
	}

	if task.Name == "configure" {
		return nil, eris.New(`the task name "configure" is reserved, please use a different name`)
	}

	sc := getCtx(thread)

	if task.Base == "" {
		task.Base = "."
	}
	task.Base = normalizePath(sc, task.Base)

	task.Deps, err = stringSlice(deps, "deps")
	if err != nil {
		return nil, err
	}

	task.Inputs, err = stringSlice(inputs, "inputs")
	if err != nil {
		return nil, err
	}

	task.Outputs, err = stringSlice(outputs, "outputs")
	if err != nil {
		return nil, err
	}

	task.SkipIfExists, err = stringSlice(skipIfExists, "skip_if_exists")
	if err != nil {
		return nil, err
	}

	task.Env, err = envMap(env)
	if err != nil {
		return nil, err
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(syntax.Minify(true))
	task.Steps = make([]Step, 0)

	if cmds != nil {
		iter := cmds.Iterate()
		defer iter.Done()

		var item starlark.Value
		idx := 0
		for iter.Next(&item) {
			label := fmt.Sprintf("%s:%d", task.Name, idx)

			switch value := item.(type) {
			case starlark.String:
				task.Steps = append(task.Steps, ShellStep{Label: label, Script: value.GoString()})
			case starlark.Tuple:
				script, err := argvToScript(value, parser, printer, task.Base)
				if err != nil {
					return nil, eris.Wrapf(err, "failed to process command #%d", idx)
				}

				task.Steps = append(task.Steps, ShellStep{Label: label, Script: script})
			case *starlark.List:
				script, err := argvToScript(listToTuple(value), parser, printer, task.Base)
				if err != nil {
					return nil, eris.Wrapf(err, "failed to process command #%d", idx)
				}

				task.Steps = append(task.Steps, ShellStep{Label: label, Script: script})
			case *Task:
				task.Steps = append(task.Steps, RefStep{Task: value})
			default:
				return nil, eris.Errorf("%s: unexpected type %s. Only strings, tuples, lists and tasks are valid", fn.Name(), item.Type())
			}

			idx++
		}
	}

	if len(task.Inputs) > 0 && len(task.Outputs) == 0 {
		warn(thread, "%s: found inputs but no outputs", fn.Name())
	}

	if !task.Hidden {
		sc.tasks = append(sc.tasks, task)
	}
	return task, nil
}

// LoadScript evaluates the given task script and returns the declared
// options. If configure is true the script's configure() function is called
// as well and the collected tasks are returned.
func LoadScript(ctx context.Context, filename, projectRoot string, overrides map[string]string, configure bool) (TaskList, map[string]Option, error) {
	projectRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, nil, err
	}

	filename, err = filepath.Abs(filename)
	if err != nil {
		return nil, nil, err
	}

	builtins := starlark.StringDict{
		"OS":           starlark.String(runtime.GOOS),
		"ARCH":         starlark.String(runtime.GOARCH),
		"info":         starlark.NewBuiltin("info", starInfo),
		"warn":         starlark.NewBuiltin("warn", starWarn),
		"error":        starlark.NewBuiltin("error", starError),
		"resolve_path": starlark.NewBuiltin("resolve_path", starResolvePath),
		"option":       starlark.NewBuiltin("option", starOption),
		"getenv":       starlark.NewBuiltin("getenv", starGetenv),
		"setenv":       starlark.NewBuiltin("setenv", starSetenv),
		"prepend_path": starlark.NewBuiltin("prepend_path", starPrependPath),
		"read_yaml":    starlark.NewBuiltin("read_yaml", starReadYaml),
		"isdir":        starlark.NewBuiltin("isdir", starIsDir),
		"isfile":       starlark.NewBuiltin("isfile", starIsFile),
		"execute":      starlark.NewBuiltin("execute", starExecute),
		"task":         starlark.NewBuiltin("task", starTask),
	}

	thread := &starlark.Thread{
		Name: "main",
		Print: func(thread *starlark.Thread, msg string) {
			log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	sc := scriptCtx{
		ctx:       ctx,
		file:      filename,
		root:      projectRoot,
		options:   make(map[string]Option),
		overrides: overrides,
		env:       map[string]string{},
		yamlDocs:  make(map[string]interface{}),
		tasks:     make([]*Task, 0),
		initPhase: true,
	}
	thread.SetLocal("scriptCtx", &sc)

	script, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to read file")
	}

	globals, err := starlark.ExecFile(thread, prettyPath(&sc, filename), script, builtins)
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, nil, eris.Errorf("failed to execute %s:\n%s", prettyPath(&sc, filename), evalError.Backtrace())
		}
		return nil, nil, eris.Wrap(err, "failed to execute")
	}

	tasks := TaskList{}
	if configure {
		configureValue, ok := globals["configure"]
		if !ok {
			return nil, nil, eris.Errorf("%s did not declare a configure function", prettyPath(&sc, filename))
		}

		configureFunc, ok := configureValue.(starlark.Callable)
		if !ok {
			return nil, nil, eris.Errorf("%s did declare a configure value but it's not a function", prettyPath(&sc, filename))
		}

		sc.initPhase = false
		_, err = starlark.Call(thread, configureFunc, make(starlark.Tuple, 0), make([]starlark.Tuple, 0))
		if err != nil {
			if evalError, ok := err.(*starlark.EvalError); ok {
				return nil, nil, eris.New(evalError.Backtrace())
			}
			return nil, nil, eris.Wrapf(err, "failed configure call in %s", prettyPath(&sc, filename))
		}

		for _, task := range sc.tasks {
			tasks[task.Name] = task

			// setenv() calls apply to every task that doesn't override the
			// variable itself
			for name, value := range sc.env {
				if _, present := task.Env[name]; !present {
					task.Env[name] = value
				}
			}
		}
	}

	return tasks, sc.options, nil
}
