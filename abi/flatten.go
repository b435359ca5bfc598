package abi

import (
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/layout"
	"github.com/wippyai/bindgen/types"
)

// Flatten returns the core wasm types t occupies when passed by value.
func Flatten(t types.Type) []WasmType {
	return appendFlat(nil, t)
}

// FlattenTypes flattens each type in order and concatenates the results.
func FlattenTypes(ts []types.Type) []WasmType {
	var out []WasmType
	for _, t := range ts {
		out = appendFlat(out, t)
	}
	return out
}

func appendFlat(dst []WasmType, t types.Type) []WasmType {
	switch typ := t.(type) {
	case types.Bool, types.S8, types.U8, types.S16, types.U16, types.S32, types.U32, types.Char:
		return append(dst, I32)
	case types.S64, types.U64:
		return append(dst, I64)
	case types.F32:
		return append(dst, F32)
	case types.F64:
		return append(dst, F64)
	case types.String:
		return append(dst, I32, I32) // ptr, len
	case *types.TypeDef:
		return appendFlatDef(dst, typ)
	default:
		panic(errors.New(errors.PhaseSignature, errors.KindInvalidInput).
			Detail("cannot flatten %T", t).
			Build())
	}
}

func appendFlatDef(dst []WasmType, td *types.TypeDef) []WasmType {
	switch kind := td.Kind.(type) {
	case *types.Alias:
		return appendFlat(dst, kind.Type)
	case *types.Record:
		for _, f := range kind.Fields {
			dst = appendFlat(dst, f.Type)
		}
		return dst
	case *types.Tuple:
		for _, e := range kind.Types {
			dst = appendFlat(dst, e)
		}
		return dst
	case *types.List:
		return append(dst, I32, I32) // ptr, len
	case *types.Flags:
		for range layout.FlagsReprOf(len(kind.Flags)).Lanes() {
			dst = append(dst, I32)
		}
		return dst
	case *types.Enum:
		return append(dst, I32)
	case *types.Variant:
		return appendFlatVariant(dst, kind.Payloads())
	case *types.Union:
		return appendFlatVariant(dst, kind.Payloads())
	case *types.Option:
		return appendFlatVariant(dst, kind.Payloads())
	case *types.Result:
		return appendFlatVariant(dst, kind.Payloads())
	case *types.Own, *types.Borrow, *types.Future, *types.Stream:
		return append(dst, I32) // handle index
	case *types.Resource:
		panic(errors.Unsupported(errors.PhaseSignature, nil, td.String(), "resources are only passed through handles"))
	default:
		panic(errors.New(errors.PhaseSignature, errors.KindInvalidInput).
			Type(td.String()).
			Detail("unknown definition kind %T", td.Kind).
			Build())
	}
}

// appendFlatVariant appends the discriminant slot followed by the payload
// slots joined position by position across all cases. Discriminants are
// at most u32 and always travel as i32.
func appendFlatVariant(dst []WasmType, payloads []types.Type) []WasmType {
	dst = append(dst, I32)
	start := len(dst)
	var tmp []WasmType
	for _, p := range payloads {
		if p == nil {
			continue
		}
		tmp = appendFlat(tmp[:0], p)
		for i, ft := range tmp {
			if start+i < len(dst) {
				dst[start+i] = join(dst[start+i], ft)
			} else {
				dst = append(dst, ft)
			}
		}
	}
	return dst
}

// VariantCasts returns, for each case, the bitcasts that convert the case's
// own flat payload into the joined payload slots of the variant. Empty cases
// get an empty cast list.
func VariantCasts(payloads []types.Type) [][]Bitcast {
	joined := appendFlatVariant(nil, payloads)[1:]
	out := make([][]Bitcast, len(payloads))
	for i, p := range payloads {
		if p == nil {
			out[i] = []Bitcast{}
			continue
		}
		out[i], _ = casts(Flatten(p), joined)
	}
	return out
}

// AllBitsValid reports whether every bit pattern of t's memory layout is a
// valid value, which lets backends move list<t> as raw bytes.
func AllBitsValid(t types.Type) bool {
	switch typ := t.(type) {
	case types.U8, types.S8, types.U16, types.S16, types.U32, types.S32,
		types.U64, types.S64, types.F32, types.F64:
		return true
	case *types.TypeDef:
		switch kind := typ.Kind.(type) {
		case *types.Alias:
			return AllBitsValid(kind.Type)
		case *types.Record:
			for _, f := range kind.Fields {
				if !AllBitsValid(f.Type) {
					return false
				}
			}
			return true
		case *types.Tuple:
			for _, e := range kind.Types {
				if !AllBitsValid(e) {
					return false
				}
			}
			return true
		}
	}
	return false
}

// NeedsPostReturn reports whether a value of type t owns memory that a
// post-return function must free.
func NeedsPostReturn(t types.Type) bool {
	switch typ := t.(type) {
	case types.String:
		return true
	case *types.TypeDef:
		switch kind := typ.Kind.(type) {
		case *types.Alias:
			return NeedsPostReturn(kind.Type)
		case *types.List:
			return true
		case *types.Record:
			return anyNeedsPostReturn(kind.Types())
		case *types.Tuple:
			return anyNeedsPostReturn(kind.Types)
		case *types.Variant:
			return anyNeedsPostReturn(kind.Payloads())
		case *types.Union:
			return anyNeedsPostReturn(kind.Payloads())
		case *types.Option:
			return NeedsPostReturn(kind.Type)
		case *types.Result:
			return anyNeedsPostReturn(kind.Payloads())
		}
	}
	return false
}

func anyNeedsPostReturn(ts []types.Type) bool {
	for _, t := range ts {
		if t != nil && NeedsPostReturn(t) {
			return true
		}
	}
	return false
}
