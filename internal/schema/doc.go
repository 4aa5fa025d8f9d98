// Package schema compiles embedded JSON Schemas and validates YAML or JSON
// documents against them, flattening the validator's error tree into a list
// of path-addressed issues.
package schema
