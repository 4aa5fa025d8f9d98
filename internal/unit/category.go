package unit

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Category identifies which family a unit belongs to. Each category has its
// own registry, source directory and activation record.
type Category int

const (
	// Extension units are initialized before add-ons in every pass.
	Extension Category = iota
	// AddOn units are initialized after extensions.
	AddOn
)

// Categories returns every category in lifecycle order.
func Categories() []Category {
	return []Category{Extension, AddOn}
}

// String returns the singular name ("extension", "addon").
func (c Category) String() string {
	switch c {
	case Extension:
		return "extension"
	case AddOn:
		return "addon"
	default:
		return "unknown"
	}
}

// Plural returns the plural name. It doubles as the allow-list config key and
// the source directory name.
func (c Category) Plural() string {
	switch c {
	case Extension:
		return "extensions"
	case AddOn:
		return "addons"
	default:
		return "unknown"
	}
}

// StorageKey returns the identifier of the category's activation record,
// e.g. "extensions.active".
func (c Category) StorageKey() string {
	return c.Plural() + ".active"
}

// DisableKey returns the flag name under the "disable" config map that turns
// off persisted reconciliation, e.g. "database.extensions".
func (c Category) DisableKey() string {
	return "database." + c.Plural()
}

// ParseCategory converts a user-supplied name to a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "extension", "extensions", "ext":
		return Extension, nil
	case "addon", "addons", "add-on", "add-ons":
		return AddOn, nil
	default:
		return 0, fmt.Errorf("unknown category %q (want extension or addon)", s)
	}
}

var _ pflag.Value = (*Category)(nil)

// Set implements pflag.Value.
func (c *Category) Set(s string) error {
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Type implements pflag.Value.
func (c *Category) Type() string {
	return "category"
}
