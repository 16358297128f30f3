// Package listing renders a program as indented text, one block per script,
// class and method, in the layout used by ABC assemblers.
//
// Branch targets print as L<index> labels, with a +bias or -bias suffix when
// the label points into or past an instruction, so listings stay readable for
// malformed code. Decode errors recorded on a body are printed as
// "; error:" comment lines at the instruction they refer to.
//
// File names come from a Namer, which escapes characters that are illegal on
// common file systems and separates names that differ only in case. Each
// Lister owns its Namer.
package listing
