package userdata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentx-labs/unithost/internal/branding"
	"github.com/agentx-labs/unithost/internal/unit"
)

// Directory and file names inside the home directory.
const (
	ExtensionsDir = "extensions"
	AddOnsDir     = "addons"
	StateDir      = "state"
	ConfigFile    = "config.yaml"
)

// Permission constants.
const (
	DirPermNormal  os.FileMode = 0755
	FilePermNormal os.FileMode = 0644
	DirPermSecure  os.FileMode = 0700
)

// Layout is the resolved set of paths a host works with.
type Layout struct {
	Root       string
	Extensions string
	AddOns     string
	State      string
	Config     string
}

// UnitsDir returns the source directory for category.
func (l Layout) UnitsDir(c unit.Category) string {
	if c == unit.AddOn {
		return l.AddOns
	}
	return l.Extensions
}

// GetRoot returns the home directory. It checks UNITHOST_HOME first, then
// falls back to ~/.unithost.
func GetRoot() (string, error) {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, branding.HomeDir()), nil
}

// DefaultLayout resolves every path. UNITHOST_EXTENSIONS_DIR,
// UNITHOST_ADDONS_DIR and UNITHOST_STATE_DIR override the corresponding
// directory.
func DefaultLayout() (Layout, error) {
	root, err := GetRoot()
	if err != nil {
		return Layout{}, err
	}
	return Layout{
		Root:       root,
		Extensions: envOr("EXTENSIONS_DIR", filepath.Join(root, ExtensionsDir)),
		AddOns:     envOr("ADDONS_DIR", filepath.Join(root, AddOnsDir)),
		State:      envOr("STATE_DIR", filepath.Join(root, StateDir)),
		Config:     filepath.Join(root, ConfigFile),
	}, nil
}

func envOr(suffix, fallback string) string {
	if v := os.Getenv(branding.EnvVar(suffix)); v != "" {
		return v
	}
	return fallback
}
