package buildsys

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

// normalizePath joins the given path segments on top of the script's
// directory. Segments starting with "//" restart from the project root,
// segments starting with "/" restart from the current volume (relevant on
// Windows) and absolute segments replace everything before them.
func normalizePath(sc *scriptCtx, pathList ...string) string {
	result := filepath.Dir(sc.file)

	for _, path := range pathList {
		switch {
		case strings.HasPrefix(path, "//"):
			result = filepath.Join(sc.root, path[2:])
		case strings.HasPrefix(path, "/"):
			result = filepath.Join(filepath.VolumeName(result), path)
		case !filepath.IsAbs(path):
			result = filepath.Join(result, path)
		default:
			result = path
		}
	}

	return filepath.Clean(result)
}

// prettyPath renders paths inside the project as "//relative/path" to keep
// log messages short.
func prettyPath(sc *scriptCtx, path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	if strings.HasPrefix(absPath, sc.root) {
		return "//" + absPath[len(sc.root)+1:]
	}
	return path
}

// mergedEnv combines the process environment with the script's setenv()
// overrides. Overridden variables are dropped from the inherited set to avoid
// duplicate entries.
func mergedEnv(sc *scriptCtx) []string {
	osEnv := os.Environ()
	shellEnv := make([]string, 0, len(osEnv)+len(sc.env))
	for _, item := range osEnv {
		name := strings.SplitN(item, "=", 2)[0]
		if runtime.GOOS == "windows" {
			// environment variables are case-insensitive on Windows
			name = strings.ToUpper(name)
		}

		if _, present := sc.env[name]; !present {
			shellEnv = append(shellEnv, item)
		}
	}

	for name, value := range sc.env {
		shellEnv = append(shellEnv, fmt.Sprintf("%s=%s", name, value))
	}

	return shellEnv
}

// toStarlark converts decoded YAML / JSON values to their Starlark
// counterparts. Sequences become tuples since the scripts never modify them.
func toStarlark(value interface{}) (starlark.Value, error) {
	switch value := value.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(value), nil
	case string:
		return starlark.String(value), nil
	case int:
		return starlark.MakeInt(value), nil
	case int64:
		return starlark.MakeInt64(value), nil
	case uint64:
		return starlark.MakeUint64(value), nil
	case float32:
		return starlark.Float(value), nil
	case float64:
		return starlark.Float(value), nil
	case []string:
		items := make(starlark.Tuple, len(value))
		for idx, item := range value {
			items[idx] = starlark.String(item)
		}
		return items, nil
	case []interface{}:
		items := make(starlark.Tuple, len(value))
		for idx, item := range value {
			converted, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			items[idx] = converted
		}
		return items, nil
	case map[string]string:
		dict := starlark.NewDict(len(value))
		for key, item := range value {
			err := dict.SetKey(starlark.String(key), starlark.String(item))
			if err != nil {
				return nil, err
			}
		}
		return dict, nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(value))
		for key, item := range value {
			converted, err := toStarlark(item)
			if err != nil {
				return nil, err
			}

			err = dict.SetKey(starlark.String(key), converted)
			if err != nil {
				return nil, err
			}
		}
		return dict, nil
	case map[interface{}]interface{}:
		dict := starlark.NewDict(len(value))
		for key, item := range value {
			convertedKey, err := toStarlark(key)
			if err != nil {
				return nil, err
			}

			convertedItem, err := toStarlark(item)
			if err != nil {
				return nil, err
			}

			err = dict.SetKey(convertedKey, convertedItem)
			if err != nil {
				return nil, err
			}
		}
		return dict, nil
	}

	return nil, eris.Errorf("encountered unsupported type %T", value)
}
