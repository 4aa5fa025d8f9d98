// Package userdata manages the ~/.unithost/ directory: the per-category unit
// source directories, the activation state directory and the config file. It
// resolves paths (with environment overrides), scaffolds the layout and
// checks it for problems.
package userdata
