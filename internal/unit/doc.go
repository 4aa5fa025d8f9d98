// Package unit defines the contract every extension and add-on implements,
// the two unit categories, and the environment a factory receives when the
// registry instantiates a unit.
package unit
