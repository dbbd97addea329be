package dist

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

func readDir(path string) ([]os.FileInfo, error) {
	if path == "" {
		path = "."
	}

	return ioutil.ReadDir(path)
}

// expandPatterns resolves glob patterns (relative to root) through the
// shell's expansion rules with globstar enabled. Patterns that don't match
// anything are dropped.
func expandPatterns(root string, patterns []string) ([]string, error) {
	cfg := expand.Config{
		ReadDir:  readDir,
		GlobStar: true,
	}
	parser := syntax.NewParser()

	result := []string{}
	for _, pattern := range patterns {
		joined := pattern
		if !filepath.IsAbs(joined) {
			joined = filepath.Join(root, joined)
		}
		joined = filepath.ToSlash(joined)

		words := make([]*syntax.Word, 0)
		err := parser.Words(strings.NewReader(joined), func(w *syntax.Word) bool {
			words = append(words, w)
			return true
		})
		if err != nil {
			return nil, eris.Wrapf(err, "Failed to parse pattern %s", pattern)
		}

		matches, err := expand.Fields(&cfg, words...)
		if err != nil {
			return nil, eris.Wrapf(err, "Failed to resolve pattern %s", pattern)
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

// CollectFiles resolves the include patterns minus the excluded ones into a
// sorted, deduplicated list of root-relative slash-separated file paths.
// Directories are skipped; patterns have to name the files themselves.
func CollectFiles(root string, include, exclude []string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	included, err := expandPatterns(root, include)
	if err != nil {
		return nil, err
	}

	excluded, err := expandPatterns(root, exclude)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(excluded))
	for _, item := range excluded {
		skip[item] = struct{}{}
	}

	seen := map[string]struct{}{}
	result := []string{}
	for _, item := range included {
		if _, ok := skip[item]; ok {
			continue
		}

		info, err := os.Stat(item)
		if err != nil {
			return nil, eris.Wrapf(err, "Failed to check %s", item)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		rel, err := filepath.Rel(root, item)
		if err != nil {
			return nil, eris.Wrapf(err, "Failed to relativize %s", item)
		}

		rel = filepath.ToSlash(rel)
		if _, ok := seen[rel]; ok {
			continue
		}
		seen[rel] = struct{}{}
		result = append(result, rel)
	}

	sort.Strings(result)
	return result, nil
}
