package manifest

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// UnitManifest describes one extension or add-on.
type UnitManifest struct {
	Name        string                 `yaml:"name" json:"name"`
	Type        string                 `yaml:"type" json:"type"`
	Version     string                 `yaml:"version" json:"version"`
	Description string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Entry       string                 `yaml:"entry,omitempty" json:"entry,omitempty"`
	Tags        []string               `yaml:"tags,omitempty" json:"tags,omitempty"`
	Author      string                 `yaml:"author,omitempty" json:"author,omitempty"`
	Config      map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`
}

// Manifest type discriminators.
const (
	TypeExtension = "extension"
	TypeAddOn     = "addon"
)

// ValidTypes contains all valid manifest type values.
var ValidTypes = []string{TypeExtension, TypeAddOn}

// FileNames is the lookup order for a unit's manifest file.
var FileNames = []string{"unit.yaml", "unit.yml", "manifest.yaml"}

// EntryName returns the factory name the unit is built with. It falls back to
// the given key when the manifest does not name one.
func (m *UnitManifest) EntryName(key string) string {
	if m == nil || strings.TrimSpace(m.Entry) == "" {
		return key
	}
	return strings.TrimSpace(m.Entry)
}

// SemVer parses the manifest version. A leading "v" is tolerated.
func (m *UnitManifest) SemVer() (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(m.Version, "v"))
}
