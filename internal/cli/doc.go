// Package cli implements the unithost command tree.
package cli
