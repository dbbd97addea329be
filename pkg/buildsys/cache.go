package buildsys

import (
	"encoding/gob"
	"os"

	"github.com/rotisserie/eris"
)

func init() {
	gob.Register(TaskList{})
	gob.Register(Task{})
	gob.Register(ShellStep{})
	gob.Register(RefStep{})
}

// WriteCache stores the configured option values and the task list so later
// runs can skip the script evaluation.
func WriteCache(file string, options map[string]string, tasks TaskList) error {
	handle, err := os.Create(file)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", file)
	}
	defer handle.Close()

	encoder := gob.NewEncoder(handle)
	err = encoder.Encode(options)
	if err != nil {
		return eris.Wrap(err, "failed to encode options")
	}

	return encoder.Encode(tasks)
}

// ReadCache loads a cache written by WriteCache.
func ReadCache(file string) (map[string]string, TaskList, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "failed to open %s", file)
	}
	defer handle.Close()

	decoder := gob.NewDecoder(handle)

	var options map[string]string
	err = decoder.Decode(&options)
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to decode options")
	}

	var tasks TaskList
	err = decoder.Decode(&tasks)
	if err != nil {
		return options, nil, eris.Wrap(err, "failed to decode tasks")
	}

	return options, tasks, nil
}
