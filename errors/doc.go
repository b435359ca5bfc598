// Package errors provides structured error types for the bindgen module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the interface type name, a type path and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindUnsupported).
//		Path("fetch", "result").
//		Type("stream<u8>").
//		Detail("streams have no canonical lowering").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.StackMismatch(errors.PhaseGenerate, "RecordLower", 1, 0)
//	err := errors.OutOfBounds(errors.PhaseEval, path, 65536, 4)
//
// The generator signals contract violations by panicking with *Error values;
// abi.Translate recovers them into ordinary returned errors.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
