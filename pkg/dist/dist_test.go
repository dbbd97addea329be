package dist

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/and3rson/yagni/pkg/project"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func tarEntries(t *testing.T, r io.Reader) map[string]string {
	t.Helper()

	entries := map[string]string{}
	archive := tar.NewReader(r)
	for {
		header, err := archive.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		content, err := io.ReadAll(archive)
		require.NoError(t, err)
		entries[header.Name] = string(content)
	}

	return entries
}

func TestCollectFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"setup.py":          "setup",
		"src/app/main.py":   "main",
		"src/app/util.py":   "util",
		"src/app/notes.txt": "notes",
		"README.md":         "readme",
	})

	files, err := CollectFiles(root,
		[]string{"setup.py", "setup.py", "src/**/*.py"},
		[]string{"src/**/util.py"})
	require.NoError(t, err)

	assert.Equal(t, []string{"setup.py", "src/app/main.py"}, files)
}

func TestCollectFilesSkipsUnmatchedPatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.go": "package main"})

	files, err := CollectFiles(root, []string{"*.go", "*.lisp"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, files)
}

func TestPackWritesAllArtifacts(t *testing.T) {
	root := t.TempDir()
	content := map[string]string{
		"setup.py":        "setup code",
		"src/app/main.py": strings.Repeat("main code\n", 100),
	}
	writeTree(t, root, content)

	manifest := &project.Manifest{
		Name:        "demo",
		Version:     "1.2.3",
		Description: "A demo project",
		Include:     []string{"setup.py", "src/**/*.py"},
		Compression: []string{"gzip", "xz", "brotli", "zip"},
	}
	require.NoError(t, manifest.Validate())

	outDir := filepath.Join(root, "dist")
	info, err := Pack(root, manifest, outDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"setup.py", "src/app/main.py"}, info.Files)
	require.Len(t, info.Artifacts, 4)
	assert.False(t, info.BuiltAt.IsZero())

	// tar.gz
	handle, err := os.Open(filepath.Join(outDir, "demo-1.2.3.tar.gz"))
	require.NoError(t, err)
	defer handle.Close()
	gzReader, err := gzip.NewReader(handle)
	require.NoError(t, err)
	assert.Equal(t, content, tarEntries(t, gzReader))

	// tar.xz
	xzHandle, err := os.Open(filepath.Join(outDir, "demo-1.2.3.tar.xz"))
	require.NoError(t, err)
	defer xzHandle.Close()
	xzReader, err := xz.NewReader(xzHandle)
	require.NoError(t, err)
	assert.Equal(t, content, tarEntries(t, xzReader))

	// tar.br
	brHandle, err := os.Open(filepath.Join(outDir, "demo-1.2.3.tar.br"))
	require.NoError(t, err)
	defer brHandle.Close()
	assert.Equal(t, content, tarEntries(t, brotli.NewReader(brHandle)))

	// zip
	zipReader, err := zip.OpenReader(filepath.Join(outDir, "demo-1.2.3.zip"))
	require.NoError(t, err)
	defer zipReader.Close()
	names := make([]string, 0, len(zipReader.File))
	for _, item := range zipReader.File {
		names = append(names, item.Name)
	}
	assert.ElementsMatch(t, []string{"setup.py", "src/app/main.py"}, names)
}

func TestPackWritesManifestAndChecksums(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"setup.py": "setup"})

	manifest := &project.Manifest{
		Name:        "demo",
		Version:     "0.1.0",
		Include:     []string{"setup.py"},
		Compression: []string{"gzip"},
	}
	require.NoError(t, manifest.Validate())

	outDir := filepath.Join(root, "dist")
	info, err := Pack(root, manifest, outDir)
	require.NoError(t, err)

	// the build manifest can be read back
	encoded, err := os.ReadFile(filepath.Join(outDir, "demo-0.1.0.json"))
	require.NoError(t, err)
	var decoded BuildInfo
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, "demo", decoded.Name)
	assert.Equal(t, "0.1.0", decoded.Version)
	assert.True(t, decoded.BuiltAt.Equal(info.BuiltAt.Time))
	require.Len(t, decoded.Artifacts, 1)

	// the recorded digest matches the artifact on disk
	artifact := decoded.Artifacts[0]
	assert.Equal(t, "demo-0.1.0.tar.gz", artifact.File)
	digest, size, err := FileDigest(filepath.Join(outDir, artifact.File))
	require.NoError(t, err)
	assert.Equal(t, digest, artifact.Digest)
	assert.Equal(t, size, artifact.Size)

	// CHECKSUMS.sha256 uses the sha256sum format
	checksums, err := os.ReadFile(filepath.Join(outDir, ChecksumsFile))
	require.NoError(t, err)
	assert.Equal(t, digest+"  demo-0.1.0.tar.gz\n", string(checksums))
}

func TestPackFailsWithoutFiles(t *testing.T) {
	root := t.TempDir()

	manifest := &project.Manifest{
		Name:        "demo",
		Version:     "0.1.0",
		Include:     []string{"*.py"},
		Compression: []string{"gzip"},
	}
	require.NoError(t, manifest.Validate())

	_, err := Pack(root, manifest, filepath.Join(root, "dist"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files matched")
}
