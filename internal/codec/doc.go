// Package codec owns the binary message wire format emitted for templated
// plan units.
//
// Ownership boundary:
// - fixed frame header
// - message, group and sequence values bound positionally by the compiler
// - encode (with mandatory-field enforcement) and decode for verification
//
// Wire layout: a 16-byte big-endian header followed by TLV fields. The TLV
// id is the positional slot; group values carry a nested TLV payload and
// sequence values carry a u32 count followed by one TLV group per element.
package codec
