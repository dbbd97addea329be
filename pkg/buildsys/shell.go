package buildsys

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

var defaultExecHandler = interp.DefaultExecHandler(2)

// selfExe is resolved once so recipes can call back into this binary without
// requiring it on PATH.
var selfExe = func() string {
	exe, err := os.Executable()
	if err != nil {
		return "tool"
	}
	return exe
}()

// execHandler reroutes mv/rm/mkdir (and explicit tool calls) to this binary's
// own implementations so recipes behave the same on Windows.
func execHandler(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "mv", "rm", "mkdir":
			args = append([]string{selfExe}, args...)
		case "tool":
			args = append([]string{selfExe}, args[1:]...)
		}
	}

	return defaultExecHandler(ctx, args)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

// openHandler maps /dev/null to the platform's null device.
func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

func shellReadDir(path string) ([]os.FileInfo, error) {
	if path == "" {
		path = "."
	}

	return ioutil.ReadDir(path)
}

// resolvePatterns expands the given glob patterns (relative to base) through
// the shell's expansion rules with globstar enabled. Patterns that don't
// match anything are dropped.
func resolvePatterns(ctx context.Context, base string, patterns []string) ([]string, error) {
	result := []string{}
	cfg := expand.Config{
		ReadDir:  shellReadDir,
		GlobStar: true,
	}

	parser := syntax.NewParser()
	sc := &scriptCtx{
		file: "invalid",
		root: getRunCtx(ctx).root,
	}

	for _, item := range patterns {
		item = filepath.ToSlash(normalizePath(sc, base, item))

		words := make([]*syntax.Word, 0)
		err := parser.Words(strings.NewReader(item), func(w *syntax.Word) bool {
			words = append(words, w)
			return true
		})
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse pattern %s", item)
		}

		matches, err := expand.Fields(&cfg, words...)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to resolve pattern %s", item)
		}

		for _, match := range matches {
			// unmatched patterns are passed through verbatim, skip those
			if !strings.Contains(match, "*") {
				result = append(result, match)
			}
		}
	}

	return result, nil
}
