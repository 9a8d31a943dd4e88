// Package plan owns the test-plan data model and its XML reader.
//
// Ownership boundary:
// - value tree (Null, scalars, Group, Sequence)
// - transmission units and the ordered data plan
// - streaming plan parser and literal decoding (hex, binary digits, decimals)
package plan
