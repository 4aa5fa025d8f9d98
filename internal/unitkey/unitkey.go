package unitkey

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Pattern is the shape every canonical key matches.
const Pattern = `^[a-z_][a-z0-9_]*$`

var canonical = regexp.MustCompile(Pattern)

// Normalize folds raw into its canonical form. It returns ("", false) when
// the result would be empty or would not match Pattern.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	// Compatibility forms (full-width letters, ligatures) fold to ASCII
	// before the case mapping so hand-edited keys still resolve.
	s = norm.NFKC.String(s)
	s = cases.Lower(language.Und).String(s)
	if !canonical.MatchString(s) {
		return "", false
	}
	return s, true
}

// Valid reports whether key is already canonical.
func Valid(key string) bool {
	return canonical.MatchString(key)
}
