package abi

import (
	"github.com/wippyai/bindgen/types"
)

// Direction says which side of the component boundary the generated code
// lives on.
type Direction uint8

const (
	// Import: the function is provided by the host and called by the guest.
	Import Direction = iota
	// Export: the function is provided by the guest and called by the host.
	Export
)

func (d Direction) String() string {
	if d == Export {
		return "export"
	}
	return "import"
}

// Mode selects which half of a call is being generated.
type Mode uint8

const (
	// LowerArgsLiftResults is source code calling a core wasm function.
	LowerArgsLiftResults Mode = iota
	// LiftArgsLowerResults is core wasm calling into source code.
	LiftArgsLowerResults
)

func (m Mode) String() string {
	if m == LiftArgsLowerResults {
		return "lift-args-lower-results"
	}
	return "lower-args-lift-results"
}

// WasmSignature is the core wasm signature of a function.
//
// RetPtr holds the flattened result types when they exceed MaxFlatResults
// and are passed through memory instead: imports then take a trailing i32
// parameter and return nothing, exports return a single i32 pointer.
// IndirectParams is set when the flattened parameters exceed MaxFlatParams
// and are replaced by a single i32 pointer.
type WasmSignature struct {
	Params         []WasmType
	Results        []WasmType
	RetPtr         []WasmType
	IndirectParams bool
}

// Signature classifies fn for the given direction.
func Signature(dir Direction, fn *types.Function) *WasmSignature {
	sig := &WasmSignature{}

	sig.Params = FlattenTypes(fn.ParamTypes())
	if len(sig.Params) > MaxFlatParams {
		sig.Params = []WasmType{I32}
		sig.IndirectParams = true
	}

	results := FlattenTypes(fn.ResultTypes())
	if len(results) > MaxFlatResults {
		// Multi-value returns are never used.
		sig.RetPtr = results
		switch dir {
		case Import:
			sig.Params = append(sig.Params, I32)
		case Export:
			sig.Results = []WasmType{I32}
		}
	} else {
		sig.Results = results
	}

	return sig
}

func (s *WasmSignature) String() string {
	return FormatTypes(s.Params) + " -> " + FormatTypes(s.Results)
}
