// Package unitkey normalizes raw unit identifiers into canonical keys.
// Keys come from directory names, configuration allow-lists and persisted
// activation records, any of which may hold legacy or hand-edited values,
// so Normalize rejects rather than repairs anything that does not fold to
// the canonical pattern.
package unitkey
