package registry

import (
	"os"
	"time"
)

// index is the in-memory result of the last discovery together with the
// source modification times it was built from.
type index struct {
	units      []Discovered
	byKey      map[string]int
	sourceMods map[string]int64 // source path -> latest mtime (unix nanos)
	builtAt    time.Time
}

func newIndex(units []Discovered, sources []Source) *index {
	idx := &index{
		units:      units,
		byKey:      make(map[string]int, len(units)),
		sourceMods: make(map[string]int64, len(sources)),
		builtAt:    time.Now(),
	}
	for i, u := range units {
		idx.byKey[u.Key] = i
	}
	for _, src := range sources {
		idx.sourceMods[src.BasePath] = latestMtime(src.BasePath)
	}
	return idx
}

func (idx *index) lookup(key string) (Discovered, bool) {
	i, ok := idx.byKey[key]
	if !ok {
		return Discovered{}, false
	}
	return idx.units[i], true
}

// valid checks whether every source still has the modification time the
// index was built with. A new, removed or renamed unit directory changes the
// source directory's mtime; an edited manifest changes its unit directory's.
func (idx *index) valid(sources []Source) bool {
	if idx == nil || len(idx.sourceMods) != len(sources) {
		return false
	}
	for _, src := range sources {
		cached, ok := idx.sourceMods[src.BasePath]
		if !ok || cached != latestMtime(src.BasePath) {
			return false
		}
	}
	return true
}

// latestMtime returns the latest modification time across a source directory
// and its immediate subdirectories and their files. A missing source is 0.
func latestMtime(basePath string) int64 {
	info, err := os.Stat(basePath)
	if err != nil {
		return 0
	}
	latest := info.ModTime().UnixNano()

	entries, err := os.ReadDir(basePath)
	if err != nil {
		return latest
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := basePath + string(os.PathSeparator) + entry.Name()
		if si, err := os.Stat(sub); err == nil && si.ModTime().UnixNano() > latest {
			latest = si.ModTime().UnixNano()
		}
		files, err := os.ReadDir(sub)
		if err != nil {
			continue
		}
		for _, f := range files {
			if fi, err := f.Info(); err == nil && fi.ModTime().UnixNano() > latest {
				latest = fi.ModTime().UnixNano()
			}
		}
	}
	return latest
}
