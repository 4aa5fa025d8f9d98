// Package config reads host settings from ~/.unithost/config.yaml and
// UNITHOST_* environment variables: the per-category allow-lists, the flags
// that disable persisted reconciliation, discovery ignore patterns, path
// overrides and logging.
package config
