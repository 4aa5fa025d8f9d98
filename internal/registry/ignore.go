package registry

import (
	"fmt"

	"github.com/gobwas/glob"
)

// ignoreSet matches unit directory names that discovery must skip.
type ignoreSet struct {
	patterns []string
	globs    []glob.Glob
}

func compileIgnore(patterns []string) (*ignoreSet, error) {
	set := &ignoreSet{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling ignore pattern %q: %w", p, err)
		}
		set.patterns = append(set.patterns, p)
		set.globs = append(set.globs, g)
	}
	return set, nil
}

// match returns the first pattern that matches name.
func (s *ignoreSet) match(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	for i, g := range s.globs {
		if g.Match(name) {
			return s.patterns[i], true
		}
	}
	return "", false
}
