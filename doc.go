// Package bindgen is the core of a canonical ABI binding generator for the
// WebAssembly Component Model.
//
// Given an interface function and the side of the component boundary it is
// generated for, the engine emits a stream of primitive instructions that
// move values between a source language and the flat and linear-memory
// representation of the canonical ABI. Language backends consume the
// stream and render code; the engine itself never produces text.
//
// # Architecture Overview
//
//	bindgen/             Root package with the Memory and Allocator interfaces
//	├── types/           Interface type graph and the WIT adapter
//	├── layout/          Sizes, alignments, offsets and discriminant widths
//	├── abi/             Instruction set, signature classifier and generator
//	├── backend/eval/    Interpreter backend that executes instruction streams
//	├── backend/text/    Backend that renders streams as pseudo-assembly
//	├── resource/        Handle table for own and borrow transfer
//	├── errors/          Structured error types
//	└── cmd/abidump/     CLI for inspecting generated streams
//
// # Quick Start
//
// Print the instructions a guest needs to call an imported function:
//
//	fn := &types.Function{
//	    Name:    "greet",
//	    Params:  []types.Param{{Name: "name", Type: types.String{}}},
//	    Results: []types.Param{{Type: types.String{}}},
//	}
//
//	p := text.New()
//	if err := abi.Translate[string](p, abi.Import, abi.LowerArgsLiftResults, fn, abi.Options{}); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(p.String())
//
// # Thread Safety
//
// A Generator and the layout.Calculator it shares with its backend are
// single-goroutine values. Use one per goroutine.
package bindgen
