// Package manifest handles parsing and validation of unit manifests, the
// unit.yaml file each extension or add-on directory carries. Manifests are
// validated against the embedded JSON Schema in schema/unit.schema.json and
// their version must be a valid semantic version.
package manifest
