// Package abi translates interface function signatures into streams of
// canonical ABI instructions.
//
// The Generator is a stack machine. For a function, a Direction (the side
// of the component boundary the code runs on) and a Mode (which half of the
// call is generated), it emits primitive Instructions to a Bindgen backend.
// Each instruction pops a fixed number of backend operands and pushes a
// fixed number of results, so a backend never has to track the shape of
// the values it translates:
//
//	sig := abi.Signature(abi.Import, fn)
//	err := abi.Translate[string](printer, abi.Import, abi.LowerArgsLiftResults, fn, abi.Options{})
//
// Flattening follows the canonical ABI: at most MaxFlatParams core values
// are passed as parameters and at most MaxFlatResults are returned; larger
// signatures go through linear memory.
package abi
