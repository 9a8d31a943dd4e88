// Package template owns message template schemas consumed by the plan parser
// and compiler.
//
// Ownership boundary:
// - field kinds and field descriptors
// - template registry (lookup by id and by name)
// - template file loading
//
// A registry is built once before parsing and is read-only afterwards; it is
// passed by reference to every consumer.
package template
