package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/unithost/internal/branding"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/agentx-labs/unithost/internal/unitkey"
	"github.com/spf13/viper"
)

const fileType = "yaml"

// Config keys.
const (
	KeyDisable         = "disable"
	KeyDiscoveryIgnore = "discovery.ignore"
	KeyPathState       = "paths.state"
	KeySources         = "sources"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
)

// Provider is a configuration source backed by its own viper instance.
type Provider struct {
	v    *viper.Viper
	path string
}

// New returns a provider for the config file at path. Nothing is read until
// Load is called.
func New(path string) *Provider {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	return &Provider{v: v, path: path}
}

// Load reads the config file. A missing file is not an error.
func (p *Provider) Load() error {
	if err := p.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", p.path, err)
	}
	return nil
}

// Path returns the config file path.
func (p *Provider) Path() string { return p.path }

// Viper exposes the underlying instance, e.g. for flag binding.
func (p *Provider) Viper() *viper.Viper { return p.v }

// AllowList returns the category's allow-list as written, in config order.
func (p *Provider) AllowList(c unit.Category) []string {
	return p.v.GetStringSlice(c.Plural())
}

// NormalizedAllowList returns the allow-list in canonical form. Entries that
// do not normalize are logged and dropped; duplicates keep their first
// position.
func (p *Provider) NormalizedAllowList(c unit.Category, logger *slog.Logger) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range p.AllowList(c) {
		key, ok := unitkey.Normalize(raw)
		if !ok {
			if logger != nil {
				logger.Warn("ignoring invalid allow-list entry", "category", c.String(), "entry", raw)
			}
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// DisableValue returns the raw "disable persisted reconciliation" value for
// category, or nil when unset. The flag lives under the disable map with a
// dotted name ("database.extensions"), so both the literal key and the
// nested form are accepted.
func (p *Provider) DisableValue(c unit.Category) any {
	key := c.DisableKey()
	if v := p.v.Get(KeyDisable + "." + key); v != nil {
		return v
	}
	m := p.v.GetStringMap(KeyDisable)
	if v, ok := m[key]; ok {
		return v
	}
	return nil
}

// ReconcileDisabled reports whether persisted reconciliation is turned off
// for category. Each category has its own flag.
func (p *Provider) ReconcileDisabled(c unit.Category) bool {
	return IsAffirmative(p.DisableValue(c))
}

// IgnorePatterns returns the discovery ignore globs.
func (p *Provider) IgnorePatterns() []string {
	return p.v.GetStringSlice(KeyDiscoveryIgnore)
}

// UnitsDir returns the paths.<plural> override, or fallback when unset.
func (p *Provider) UnitsDir(c unit.Category, fallback string) string {
	return p.pathOr("paths."+c.Plural(), fallback)
}

// StateDir returns the paths.state override, or fallback when unset.
func (p *Provider) StateDir(fallback string) string {
	return p.pathOr(KeyPathState, fallback)
}

func (p *Provider) pathOr(key, fallback string) string {
	v := strings.TrimSpace(p.v.GetString(key))
	if v == "" {
		return fallback
	}
	return expandHome(v)
}

func expandHome(v string) string {
	if strings.HasPrefix(v, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			v = filepath.Join(home, v[2:])
		}
	}
	return v
}

// SourceDir is an extra read-only unit directory for one category.
type SourceDir struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// primarySource is the name the registry gives the category's own directory.
const primarySource = "primary"

// Sources returns the sources.<plural> list in priority order. Entries
// without a name are called "source-<n>"; entries without a path are an
// error, as is reusing a name.
func (p *Provider) Sources(c unit.Category) ([]SourceDir, error) {
	key := KeySources + "." + c.Plural()
	var dirs []SourceDir
	if err := p.v.UnmarshalKey(key, &dirs); err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	seen := map[string]bool{primarySource: true}
	for i := range dirs {
		d := &dirs[i]
		d.Path = expandHome(strings.TrimSpace(d.Path))
		if d.Path == "" {
			return nil, fmt.Errorf("%s[%d]: path is required", key, i)
		}
		if d.Name == "" {
			d.Name = fmt.Sprintf("source-%d", i+1)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("%s[%d]: source name %q is already used", key, i, d.Name)
		}
		seen[d.Name] = true
	}
	return dirs, nil
}

// LogLevel returns log.level.
func (p *Provider) LogLevel() string { return p.v.GetString(KeyLogLevel) }

// LogFormat returns log.format.
func (p *Provider) LogFormat() string { return p.v.GetString(KeyLogFormat) }

// Get returns a config value by key. Returns empty string if not set.
func (p *Provider) Get(key string) string {
	return p.v.GetString(key)
}

// Set writes a config key-value pair and saves the config file. Values for
// the allow-list keys are split on commas.
func (p *Provider) Set(key, value string) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", filepath.Dir(p.path), err)
	}

	switch key {
	case unit.Extension.Plural(), unit.AddOn.Plural(), KeyDiscoveryIgnore:
		p.v.Set(key, splitList(value))
	default:
		p.v.Set(key, value)
	}

	// Create the file if it doesn't exist.
	if _, err := os.Stat(p.path); os.IsNotExist(err) {
		f, err := os.Create(p.path)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", p.path, err)
		}
		f.Close()
	}

	if err := p.v.WriteConfigAs(p.path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsAffirmative reports whether v turns a flag on. Only true, the integer 1
// and the exact strings "yes", "true" and "1" count. Everything else, nil
// and floats included, is false.
func IsAffirmative(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch x {
		case "yes", "true", "1":
			return true
		}
		return false
	case int:
		return x == 1
	case int8:
		return x == 1
	case int16:
		return x == 1
	case int32:
		return x == 1
	case int64:
		return x == 1
	case uint:
		return x == 1
	case uint8:
		return x == 1
	case uint16:
		return x == 1
	case uint32:
		return x == 1
	case uint64:
		return x == 1
	default:
		return false
	}
}
