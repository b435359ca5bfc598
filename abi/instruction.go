package abi

import (
	"github.com/wippyai/bindgen/layout"
	"github.com/wippyai/bindgen/types"
)

// Opcode identifies a primitive translation step.
type Opcode uint16

const (
	OpInvalid Opcode = iota

	// Arguments and constants
	OpGetArg
	OpI32Const
	OpConstZero
	OpBitcasts

	// Linear memory access. Loads take [addr]; stores take [value, addr].
	OpI32Load
	OpI32Load8U
	OpI32Load8S
	OpI32Load16U
	OpI32Load16S
	OpI64Load
	OpF32Load
	OpF64Load
	OpI32Store
	OpI32Store8
	OpI32Store16
	OpI64Store
	OpF32Store
	OpF64Store

	// Scalar lowering
	OpI32FromBool
	OpI32FromChar
	OpI32FromU8
	OpI32FromS8
	OpI32FromU16
	OpI32FromS16
	OpI32FromU32
	OpI32FromS32
	OpI64FromU64
	OpI64FromS64
	OpF32FromFloat32
	OpF64FromFloat64

	// Scalar lifting
	OpBoolFromI32
	OpCharFromI32
	OpU8FromI32
	OpS8FromI32
	OpU16FromI32
	OpS16FromI32
	OpU32FromI32
	OpS32FromI32
	OpU64FromI64
	OpS64FromI64
	OpFloat32FromF32
	OpFloat64FromF64

	// Handles
	OpI32FromOwnHandle
	OpI32FromBorrowHandle
	OpOwnHandleFromI32
	OpBorrowHandleFromI32

	// Strings and lists
	OpStringLower
	OpStringLift
	OpListCanonLower
	OpListCanonLift
	OpListLower
	OpListLift
	OpIterElem
	OpIterBasePointer

	// Aggregates
	OpRecordLower
	OpRecordLift
	OpTupleLower
	OpTupleLift
	OpFlagsLower
	OpFlagsLift
	OpVariantPayloadName
	OpVariantLower
	OpVariantLift
	OpUnionLower
	OpUnionLift
	OpEnumLower
	OpEnumLift
	OpOptionLower
	OpOptionLift
	OpResultLower
	OpResultLift

	// Calls
	OpCallWasm
	OpCallInterface
	OpReturn

	// Memory management
	OpMalloc
	OpGuestDeallocate
	OpGuestDeallocateString
	OpGuestDeallocateList
	OpGuestDeallocateVariant

	opCount
)

var opcodeNames = [opCount]string{
	OpInvalid:                "invalid",
	OpGetArg:                 "get_arg",
	OpI32Const:               "i32.const",
	OpConstZero:              "const_zero",
	OpBitcasts:               "bitcasts",
	OpI32Load:                "i32.load",
	OpI32Load8U:              "i32.load8_u",
	OpI32Load8S:              "i32.load8_s",
	OpI32Load16U:             "i32.load16_u",
	OpI32Load16S:             "i32.load16_s",
	OpI64Load:                "i64.load",
	OpF32Load:                "f32.load",
	OpF64Load:                "f64.load",
	OpI32Store:               "i32.store",
	OpI32Store8:              "i32.store8",
	OpI32Store16:             "i32.store16",
	OpI64Store:               "i64.store",
	OpF32Store:               "f32.store",
	OpF64Store:               "f64.store",
	OpI32FromBool:            "i32_from_bool",
	OpI32FromChar:            "i32_from_char",
	OpI32FromU8:              "i32_from_u8",
	OpI32FromS8:              "i32_from_s8",
	OpI32FromU16:             "i32_from_u16",
	OpI32FromS16:             "i32_from_s16",
	OpI32FromU32:             "i32_from_u32",
	OpI32FromS32:             "i32_from_s32",
	OpI64FromU64:             "i64_from_u64",
	OpI64FromS64:             "i64_from_s64",
	OpF32FromFloat32:         "f32_from_float32",
	OpF64FromFloat64:         "f64_from_float64",
	OpBoolFromI32:            "bool_from_i32",
	OpCharFromI32:            "char_from_i32",
	OpU8FromI32:              "u8_from_i32",
	OpS8FromI32:              "s8_from_i32",
	OpU16FromI32:             "u16_from_i32",
	OpS16FromI32:             "s16_from_i32",
	OpU32FromI32:             "u32_from_i32",
	OpS32FromI32:             "s32_from_i32",
	OpU64FromI64:             "u64_from_i64",
	OpS64FromI64:             "s64_from_i64",
	OpFloat32FromF32:         "float32_from_f32",
	OpFloat64FromF64:         "float64_from_f64",
	OpI32FromOwnHandle:       "i32_from_own_handle",
	OpI32FromBorrowHandle:    "i32_from_borrow_handle",
	OpOwnHandleFromI32:       "own_handle_from_i32",
	OpBorrowHandleFromI32:    "borrow_handle_from_i32",
	OpStringLower:            "string_lower",
	OpStringLift:             "string_lift",
	OpListCanonLower:         "list_canon_lower",
	OpListCanonLift:          "list_canon_lift",
	OpListLower:              "list_lower",
	OpListLift:               "list_lift",
	OpIterElem:               "iter_elem",
	OpIterBasePointer:        "iter_base_pointer",
	OpRecordLower:            "record_lower",
	OpRecordLift:             "record_lift",
	OpTupleLower:             "tuple_lower",
	OpTupleLift:              "tuple_lift",
	OpFlagsLower:             "flags_lower",
	OpFlagsLift:              "flags_lift",
	OpVariantPayloadName:     "variant_payload_name",
	OpVariantLower:           "variant_lower",
	OpVariantLift:            "variant_lift",
	OpUnionLower:             "union_lower",
	OpUnionLift:              "union_lift",
	OpEnumLower:              "enum_lower",
	OpEnumLift:               "enum_lift",
	OpOptionLower:            "option_lower",
	OpOptionLift:             "option_lift",
	OpResultLower:            "result_lower",
	OpResultLift:             "result_lift",
	OpCallWasm:               "call_wasm",
	OpCallInterface:          "call_interface",
	OpReturn:                 "return",
	OpMalloc:                 "malloc",
	OpGuestDeallocate:        "guest_deallocate",
	OpGuestDeallocateString:  "guest_deallocate_string",
	OpGuestDeallocateList:    "guest_deallocate_list",
	OpGuestDeallocateVariant: "guest_deallocate_variant",
}

func (op Opcode) String() string {
	if op < opCount {
		return opcodeNames[op]
	}
	return "unknown"
}

// IsLoad reports whether op reads linear memory.
func (op Opcode) IsLoad() bool {
	return op >= OpI32Load && op <= OpF64Load
}

// IsStore reports whether op writes linear memory.
func (op Opcode) IsStore() bool {
	return op >= OpI32Store && op <= OpF64Store
}

// Instruction is one step of a translation. Which payload fields are set
// depends on Op:
//
//	GetArg                  Nth
//	I32Const                Val
//	ConstZero               Tys
//	Bitcasts                Casts
//	loads and stores        Offset
//	handles                 Def (the handle type)
//	String/ListLower        Realloc; lists also Elem and Def
//	String/ListLift         Elem and Def for lists
//	IterElem                Elem
//	aggregates              Def; VariantLower and friends also Results
//	CallWasm                Name, Sig
//	CallInterface           Func
//	Return                  Amt
//	Malloc                  Realloc, Size, Align
//	GuestDeallocate         Size, Align
//	GuestDeallocateList     Elem
//	GuestDeallocateVariant  Def
//
// Instructions are passed by pointer for the duration of one Emit call;
// backends that keep them must copy.
type Instruction struct {
	Elem    types.Type
	Def     *types.TypeDef
	Func    *types.Function
	Sig     *WasmSignature
	Name    string
	Realloc string
	Casts   []Bitcast
	Tys     []WasmType
	Results []WasmType
	Nth     int
	Amt     int
	Val     int32
	Offset  uint32
	Size    uint32
	Align   uint32
	Op      Opcode
}

// Arity returns how many operands the instruction consumes and how many
// results it produces.
func (i *Instruction) Arity() (operands, results int) {
	switch i.Op {
	case OpGetArg, OpI32Const, OpVariantPayloadName, OpIterElem, OpIterBasePointer, OpMalloc:
		return 0, 1
	case OpConstZero:
		return 0, len(i.Tys)
	case OpBitcasts:
		return len(i.Casts), len(i.Casts)
	case OpI32Store, OpI32Store8, OpI32Store16, OpI64Store, OpF32Store, OpF64Store:
		return 2, 0
	case OpStringLower, OpListCanonLower, OpListLower:
		return 1, 2
	case OpStringLift, OpListCanonLift, OpListLift:
		return 2, 1
	case OpRecordLower:
		return 1, len(recordKind(i.Def).Fields)
	case OpRecordLift:
		return len(recordKind(i.Def).Fields), 1
	case OpTupleLower:
		return 1, len(tupleKind(i.Def).Types)
	case OpTupleLift:
		return len(tupleKind(i.Def).Types), 1
	case OpFlagsLower:
		return 1, flagsLanes(i.Def)
	case OpFlagsLift:
		return flagsLanes(i.Def), 1
	case OpVariantLower, OpUnionLower, OpOptionLower, OpResultLower:
		return 1, len(i.Results)
	case OpCallWasm:
		return len(i.Sig.Params), len(i.Sig.Results)
	case OpCallInterface:
		return len(i.Func.Params), len(i.Func.Results)
	case OpReturn:
		return i.Amt, 0
	case OpGuestDeallocate, OpGuestDeallocateVariant:
		return 1, 0
	case OpGuestDeallocateString, OpGuestDeallocateList:
		return 2, 0
	default:
		// Loads, scalar conversions, handles, enums and variant lifts.
		return 1, 1
	}
}

// Blocks returns how many finished blocks the instruction consumes. Blocks
// are finished immediately before the instruction that owns them, in case
// order.
func (i *Instruction) Blocks() int {
	switch i.Op {
	case OpListLower, OpListLift, OpGuestDeallocateList:
		return 1
	case OpVariantLower, OpVariantLift, OpUnionLower, OpUnionLift,
		OpGuestDeallocateVariant:
		return caseCount(i.Def)
	case OpOptionLower, OpOptionLift, OpResultLower, OpResultLift:
		return 2
	default:
		return 0
	}
}

func (i *Instruction) String() string {
	return i.Op.String()
}

func recordKind(td *types.TypeDef) *types.Record {
	if r, ok := td.Resolve().(*types.Record); ok {
		return r
	}
	return &types.Record{}
}

func tupleKind(td *types.TypeDef) *types.Tuple {
	if t, ok := td.Resolve().(*types.Tuple); ok {
		return t
	}
	return &types.Tuple{}
}

func flagsLanes(td *types.TypeDef) int {
	if f, ok := td.Resolve().(*types.Flags); ok {
		return layout.FlagsReprOf(len(f.Flags)).Lanes()
	}
	return 0
}

func caseCount(td *types.TypeDef) int {
	switch kind := td.Resolve().(type) {
	case *types.Variant:
		return len(kind.Cases)
	case *types.Union:
		return len(kind.Cases)
	case *types.Enum:
		return len(kind.Cases)
	case *types.Option, *types.Result:
		return 2
	}
	return 0
}
