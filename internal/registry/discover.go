package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agentx-labs/unithost/internal/manifest"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/agentx-labs/unithost/internal/unitkey"
)

// discoverer walks sources for one category.
type discoverer struct {
	category unit.Category
	ignore   *ignoreSet
	logger   *slog.Logger
}

// discover walks all sources and returns every usable unit directory.
// Sources are walked in order and directories within a source by name, so the
// result is deterministic. When two directories normalize to the same key the
// first one wins.
func (d *discoverer) discover(sources []Source) ([]Discovered, error) {
	seen := make(map[string]string)
	var result []Discovered

	for _, src := range sources {
		found, err := d.walkSource(src)
		if err != nil {
			return nil, err
		}
		for _, u := range found {
			if prev, ok := seen[u.Key]; ok {
				d.logger.Warn("duplicate unit key, keeping first",
					"key", u.Key, "kept", prev, "skipped", u.Dir)
				continue
			}
			seen[u.Key] = u.Dir
			result = append(result, u)
		}
	}
	return result, nil
}

// walkSource lists the unit directories directly under a source. A missing
// source is empty; any other read error is returned.
func (d *discoverer) walkSource(src Source) ([]Discovered, error) {
	entries, err := os.ReadDir(src.BasePath)
	if errors.Is(err, fs.ErrNotExist) {
		d.logger.Debug("unit source does not exist", "source", src.Name, "path", src.BasePath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading unit source %s: %w", src.BasePath, err)
	}

	var result []Discovered
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(src.BasePath, name)
		log := d.logger.With("dir", dir)

		if pattern, ok := d.ignore.match(name); ok {
			log.Debug("unit directory ignored", "pattern", pattern)
			continue
		}

		key, ok := unitkey.Normalize(name)
		if !ok {
			log.Debug("unit directory name is not a valid key")
			continue
		}

		m, manifestPath, err := manifest.Load(dir)
		if err != nil {
			var invalid *manifest.InvalidError
			switch {
			case errors.Is(err, manifest.ErrNoManifest):
				log.Debug("unit directory has no manifest")
			case errors.As(err, &invalid):
				log.Warn("unit manifest is invalid", "manifest", manifestPath, "issues", len(invalid.Result.Issues))
			default:
				log.Warn("unit manifest could not be loaded", "error", err)
			}
			continue
		}

		if m.Type != manifestType(d.category) {
			log.Warn("unit manifest type does not match category", "type", m.Type)
			continue
		}

		result = append(result, Discovered{
			Key:          key,
			Dir:          dir,
			ManifestPath: manifestPath,
			SourceName:   src.Name,
			Entry:        m.EntryName(key),
			Version:      m.Version,
			Description:  m.Description,
			Tags:         m.Tags,
			Manifest:     m,
		})
	}
	return result, nil
}

func manifestType(c unit.Category) string {
	if c == unit.AddOn {
		return manifest.TypeAddOn
	}
	return manifest.TypeExtension
}
