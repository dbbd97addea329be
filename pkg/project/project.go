// Package project loads and validates the project manifest (project.yml).
package project

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/and3rson/yagni/pkg/types"
)

// DefaultFile is the manifest filename expected at the project root.
const DefaultFile = "project.yml"

// Compressions lists the artifact formats pack knows how to write. The
// manifest accepts them case-insensitively.
var Compressions = types.NewEnumSet("compression", "gzip", "xz", "brotli", "zip")

// Manifest is the parsed project.yml.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description,omitempty"`
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude,omitempty"`
	Compression []string `yaml:"compression,omitempty"`
}

// Load reads and validates the manifest at the given path.
func Load(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to read %s", path)
	}

	var manifest Manifest
	err = yaml.Unmarshal(content, &manifest)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to parse %s", path)
	}

	err = manifest.Validate()
	if err != nil {
		return nil, eris.Wrapf(err, "Invalid manifest %s", path)
	}

	return &manifest, nil
}

// Validate checks the manifest and normalizes it in place: the name is
// trimmed, the version canonicalized and compression formats lowercased.
func (m *Manifest) Validate() error {
	name, err := types.ParseNonEmptyString(m.Name)
	if err != nil {
		return eris.Wrap(err, "name")
	}
	m.Name = name.String()

	version, err := semver.StrictNewVersion(m.Version)
	if err != nil {
		return eris.Wrapf(err, "version %q", m.Version)
	}
	m.Version = version.String()

	if len(m.Include) == 0 {
		return eris.New("include must list at least one pattern")
	}

	if len(m.Compression) == 0 {
		m.Compression = []string{"gzip"}
	}

	for idx, format := range m.Compression {
		canonical, err := Compressions.ParseFold(format)
		if err != nil {
			return err
		}
		m.Compression[idx] = canonical
	}

	return nil
}

// ArtifactBase returns the "<name>-<version>" prefix shared by all artifact
// files of this release.
func (m *Manifest) ArtifactBase() string {
	return fmt.Sprintf("%s-%s", m.Name, m.Version)
}
