package registry

import "github.com/agentx-labs/unithost/internal/manifest"

// Source is a directory that holds unit directories for one category.
type Source struct {
	Name     string // e.g., "user", "system"
	BasePath string // absolute path to the source root
}

// Discovered describes a unit directory found in a source.
type Discovered struct {
	Key          string // canonical key, from the directory name
	Dir          string // absolute path to the unit directory
	ManifestPath string // absolute path to the manifest file
	SourceName   string // name of the source it was found in
	Entry        string // factory name
	Version      string
	Description  string
	Tags         []string
	Manifest     *manifest.UnitManifest
}
