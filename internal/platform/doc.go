// Package platform provides the filesystem operations that differ across
// operating systems: permission changes, which are no-ops on Windows, and
// atomic file replacement.
package platform
