package pkg

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
)

// GetProjectRoot walks up from the working directory until it finds the
// project manifest (or a .git directory as a fallback).
func GetProjectRoot() (string, error) {
	current, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "Failed to determine working directory")
	}

	for {
		for _, marker := range []string{"project.yml", ".git"} {
			_, err := os.Stat(filepath.Join(current, marker))
			if err == nil {
				return current, nil
			}

			if !eris.Is(err, os.ErrNotExist) {
				return "", eris.Wrap(err, "Error occurred while searching for project root")
			}
		}

		nextPath := filepath.Dir(current)
		if current == nextPath {
			break
		}
		current = nextPath
	}

	return "", eris.New("Project root not found")
}

// GetProgressBar returns a byte progress bar that stays invisible on CI
// where the escape codes would only clutter the logs.
func GetProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

func PrintTask(msg string) {
	colorstring.Printf("[blue][bold]==>[default] %s\n", msg)
}

func PrintSubtask(msg string) {
	colorstring.Printf("[green][bold]  ->[reset] %s\n", msg)
}

func PrintError(msg string) {
	colorstring.Printf("[red][bold]  ->[reset] %s\n", msg)
}
