// Package errors provides structured error types for the bytecode editor.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the table path, the byte offset of table-level decode
// failures, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindMalformedConstant).
//		Path("multinames", "12").
//		At(0x1f4).
//		Detail("unknown multiname kind 0x%02x", kind).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseLoad, path, 10, 5)
//	err := errors.EncodeConstraint(errors.PhaseEncode, path, "u30 overflow")
//
// Instruction-level decode problems are not Go errors: they are recorded on the
// owning method body so malformed code still round-trips.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
