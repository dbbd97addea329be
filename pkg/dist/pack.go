// Package dist builds release artifacts: it collects the project's file set,
// writes one archive per configured compression format and records their
// checksums in a build manifest.
package dist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/and3rson/yagni/pkg/clock"
	"github.com/and3rson/yagni/pkg/project"
	"github.com/and3rson/yagni/pkg/types"
)

// ChecksumsFile is written next to the artifacts in sha256sum format.
const ChecksumsFile = "CHECKSUMS.sha256"

// Artifact describes one generated archive.
type Artifact struct {
	File   string `json:"file"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

// BuildInfo is the release manifest written next to the artifacts.
type BuildInfo struct {
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	Description string        `json:"description,omitempty"`
	BuiltAt     types.UTCTime `json:"builtAt"`
	Files       []string      `json:"files"`
	Artifacts   []Artifact    `json:"artifacts"`
}

// Pack collects the manifest's file set and writes one archive per
// configured compression format into outDir, together with the JSON build
// manifest ("<name>-<version>.json") and a CHECKSUMS.sha256 file. outDir is
// created if necessary; cleaning up a previous build is the caller's job.
func Pack(root string, manifest *project.Manifest, outDir string) (*BuildInfo, error) {
	files, err := CollectFiles(root, manifest.Include, manifest.Exclude)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, eris.New("no files matched the include patterns")
	}

	err = os.MkdirAll(outDir, os.FileMode(0770))
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to create %s", outDir)
	}

	builtAt, err := types.NewUTCTime(clock.NowUTC())
	if err != nil {
		return nil, err
	}

	info := &BuildInfo{
		Name:        manifest.Name,
		Version:     manifest.Version,
		Description: manifest.Description,
		BuiltAt:     builtAt,
		Files:       files,
		Artifacts:   make([]Artifact, 0, len(manifest.Compression)),
	}

	for _, format := range manifest.Compression {
		name := manifest.ArtifactBase() + Extensions[format]
		path := filepath.Join(outDir, name)

		err = writeArtifact(path, format, root, files)
		if err != nil {
			return nil, eris.Wrapf(err, "Failed to write %s", name)
		}

		digest, size, err := FileDigest(path)
		if err != nil {
			return nil, err
		}

		info.Artifacts = append(info.Artifacts, Artifact{
			File:   name,
			Format: format,
			Size:   size,
			Digest: digest,
		})
	}

	err = writeBuildInfo(info, filepath.Join(outDir, manifest.ArtifactBase()+".json"))
	if err != nil {
		return nil, err
	}

	err = writeChecksums(info.Artifacts, filepath.Join(outDir, ChecksumsFile))
	if err != nil {
		return nil, err
	}

	return info, nil
}

func writeBuildInfo(info *BuildInfo, path string) error {
	encoded, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return eris.Wrap(err, "Failed to encode the build manifest")
	}

	err = os.WriteFile(path, append(encoded, '\n'), os.FileMode(0660))
	if err != nil {
		return eris.Wrapf(err, "Failed to write %s", path)
	}

	return nil
}

func writeChecksums(artifacts []Artifact, path string) error {
	builder := strings.Builder{}
	for _, artifact := range artifacts {
		fmt.Fprintf(&builder, "%s  %s\n", artifact.Digest, artifact.File)
	}

	err := os.WriteFile(path, []byte(builder.String()), os.FileMode(0660))
	if err != nil {
		return eris.Wrapf(err, "Failed to write %s", path)
	}

	return nil
}
