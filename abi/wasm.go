package abi

import (
	"strings"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/bindgen/errors"
)

// WasmType is a core wasm value type. Only I32, I64, F32 and F64 occur in
// flattened signatures.
type WasmType = api.ValueType

const (
	I32 = api.ValueTypeI32
	I64 = api.ValueTypeI64
	F32 = api.ValueTypeF32
	F64 = api.ValueTypeF64
)

// Canonical ABI flattening limits
const (
	MaxFlatParams  = 16
	MaxFlatResults = 1
)

// Bitcast converts one flat slot between the wasm type a variant case
// produces and the joined type shared by all cases.
type Bitcast uint8

const (
	BitcastNone Bitcast = iota
	I32ToF32
	F32ToI32
	I32ToI64
	I64ToI32
	F32ToI64
	I64ToF32
	F64ToI64
	I64ToF64
)

var bitcastNames = [...]string{
	BitcastNone: "none",
	I32ToF32:    "i32->f32",
	F32ToI32:    "f32->i32",
	I32ToI64:    "i32->i64",
	I64ToI32:    "i64->i32",
	F32ToI64:    "f32->i64",
	I64ToF32:    "i64->f32",
	F64ToI64:    "f64->i64",
	I64ToF64:    "i64->f64",
}

func (b Bitcast) String() string {
	if int(b) < len(bitcastNames) {
		return bitcastNames[b]
	}
	return "unknown"
}

// join unions two core types for variant payloads
func join(a, b WasmType) WasmType {
	if a == b {
		return a
	}
	// 32-bit types can share storage
	if (a == I32 && b == F32) || (a == F32 && b == I32) {
		return I32
	}
	// Different sizes require i64
	return I64
}

// castFor returns the conversion from a value of type from to type to.
// Only pairs produced by join are valid.
func castFor(from, to WasmType) Bitcast {
	switch {
	case from == to:
		return BitcastNone
	case from == I32 && to == I64:
		return I32ToI64
	case from == F32 && to == I32:
		return F32ToI32
	case from == F64 && to == I64:
		return F64ToI64
	case from == I64 && to == I32:
		return I64ToI32
	case from == I32 && to == F32:
		return I32ToF32
	case from == I64 && to == F64:
		return I64ToF64
	case from == F32 && to == I64:
		return F32ToI64
	case from == I64 && to == F32:
		return I64ToF32
	}
	panic(errors.New(errors.PhaseSignature, errors.KindInvalidInput).
		Detail("no bitcast from %s to %s", api.ValueTypeName(from), api.ValueTypeName(to)).
		Build())
}

// casts pairs each element of from with the same position in to.
// It reports whether any cast is not BitcastNone.
func casts(from, to []WasmType) ([]Bitcast, bool) {
	out := make([]Bitcast, len(from))
	needed := false
	for i := range from {
		out[i] = castFor(from[i], to[i])
		if out[i] != BitcastNone {
			needed = true
		}
	}
	return out, needed
}

// FormatTypes renders a wasm type list as "[i32, i64]".
func FormatTypes(ts []WasmType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = api.ValueTypeName(t)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
