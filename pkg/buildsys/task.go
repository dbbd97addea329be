package buildsys

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	starsyntax "go.starlark.net/syntax"
	"mvdan.cc/sh/v3/syntax"
)

// Step is a single entry in a task's cmds list. Shell snippets yield their
// parsed statements, task references yield the referenced task.
type Step interface {
	ShellStmts(parser *syntax.Parser) ([]*syntax.Stmt, error)
	TaskRef() *Task
}

// ShellStep is a shell snippet from a task declaration. Label is used as the
// filename in parse errors.
type ShellStep struct {
	Label  string
	Script string
}

func (s ShellStep) ShellStmts(parser *syntax.Parser) ([]*syntax.Stmt, error) {
	result, err := parser.Parse(strings.NewReader(s.Script), s.Label)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse command %s", s.Script)
	}

	return result.Stmts, nil
}

func (s ShellStep) TaskRef() *Task { return nil }

// RefStep runs another task in place.
type RefStep struct {
	Task *Task
}

func (r RefStep) ShellStmts(*syntax.Parser) ([]*syntax.Stmt, error) { return nil, nil }

func (r RefStep) TaskRef() *Task { return r.Task }

// Task is the processed form of a task() declaration.
type Task struct {
	Name         string
	Desc         string
	Base         string
	Deps         []string
	Inputs       []string
	Outputs      []string
	SkipIfExists []string
	Env          map[string]string
	Steps        []Step
	Hidden       bool
}

// TaskList maps task names to their declarations. Hidden tasks are not listed
// here; they can only be run through a direct reference.
type TaskList map[string]*Task

// Option describes an option() declaration.
type Option struct {
	Default string
	Help    string
}

// starlark.Value implementation for *Task; tasks are passed back into the
// script so they can be referenced in other tasks' cmds lists.

func (t *Task) String() string {
	return fmt.Sprintf("<Task %s: %s>", t.Name, t.Desc)
}

func (t *Task) Type() string { return "task" }

// Freeze is a no-op, tasks are never modified after their declaration.
func (t *Task) Freeze() {}

func (t *Task) Truth() starlark.Bool { return starlark.True }

func (t *Task) Hash() (uint32, error) {
	return 0, eris.New("task is not a hashable type")
}

// Path is a filesystem path produced by resolve_path(). It behaves like a
// string inside the script but keeps its path nature so arguments can be
// rebased on the task's working directory.
type Path string

func (p Path) String() string {
	return starlark.String(p).String()
}

func (p Path) Type() string { return "path" }

func (p Path) Freeze() {}

func (p Path) Truth() starlark.Bool { return p != "" }

func (p Path) Hash() (uint32, error) {
	return starlark.String(p).Hash()
}

func (p Path) CompareSameType(op starsyntax.Token, other starlark.Value, depth int) (bool, error) {
	q := other.(Path)

	switch op {
	case starsyntax.EQL:
		return p == q, nil
	case starsyntax.NEQ:
		return p != q, nil
	case starsyntax.LT:
		return p < q, nil
	case starsyntax.LE:
		return p <= q, nil
	case starsyntax.GT:
		return p > q, nil
	case starsyntax.GE:
		return p >= q, nil
	}

	return false, eris.Errorf("unknown operator %v", op)
}

func (p Path) Index(i int) starlark.Value { return starlark.String(p[i]) }

func (p Path) Len() int { return len(p) }

func (p Path) Slice(start, end, step int) starlark.Value {
	return starlark.String(p).Slice(start, end, step)
}
