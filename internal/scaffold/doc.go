// Package scaffold generates new unit directories from embedded templates.
package scaffold
