package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	err := os.WriteFile(path, []byte(`
name: " yagni "
version: 0.0.3
description: Exactly what you need, nothing more
include:
  - "yagni/**/*.py"
  - setup.py
compression: [GZip, ZIP]
`), 0o600)
	require.NoError(t, err)

	manifest, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yagni", manifest.Name)
	assert.Equal(t, "0.0.3", manifest.Version)
	assert.Equal(t, []string{"gzip", "zip"}, manifest.Compression)
	assert.Equal(t, "yagni-0.0.3", manifest.ArtifactBase())
}

func TestValidateDefaultsToGzip(t *testing.T) {
	manifest := Manifest{
		Name:    "demo",
		Version: "1.2.3",
		Include: []string{"**/*.go"},
	}

	require.NoError(t, manifest.Validate())
	assert.Equal(t, []string{"gzip"}, manifest.Compression)
}

func TestValidateRejectsBadManifests(t *testing.T) {
	cases := map[string]Manifest{
		"empty name":      {Name: "  ", Version: "1.0.0", Include: []string{"*"}},
		"partial version": {Name: "demo", Version: "1.0", Include: []string{"*"}},
		"v prefix":        {Name: "demo", Version: "v1.0.0", Include: []string{"*"}},
		"no includes":     {Name: "demo", Version: "1.0.0"},
		"unknown format":  {Name: "demo", Version: "1.0.0", Include: []string{"*"}, Compression: []string{"rar"}},
	}

	for name, manifest := range cases {
		manifest := manifest
		t.Run(name, func(t *testing.T) {
			assert.Error(t, manifest.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	assert.Error(t, err)
}
