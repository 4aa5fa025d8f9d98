// Package activation persists which units are active. Each category owns a
// single record, identified by "<category>.active", mapping canonical unit
// keys to the timestamp at which they were activated.
//
// Records are stored as YAML mappings so they stay hand-editable. Because a
// hand-edited or legacy record may contain anything, reading goes through an
// explicit decode step (Decode) that reports whether the payload has the
// right shape and which individual pairs are unusable, instead of trusting
// the stored value. Writes always replace the whole mapping.
package activation
