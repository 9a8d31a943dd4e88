// Package compile binds a plan value tree to a message builder.
//
// The walk is positional: the i-th value binds to the i-th field of the
// schema, message units starting at slot 1 (slot 0 is the reserved template
// slot) and nested groups at slot 0. Dispatch follows the field's declared
// kind; a value whose tag does not match is a binding error.
package compile
