// Package registry discovers the units of one category and owns their
// instances. Units live one per directory under a category's source
// directory; the directory name, normalized, is the unit's canonical key and
// its manifest names the factory that builds it. A Loader enumerates,
// checks and instantiates units by key; it never decides which of them are
// active.
package registry
