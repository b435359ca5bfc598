package abi

import (
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/types"
)

// lift pops the flat wasm values of ty and pushes the source value.
func (g *Generator[O]) lift(ty types.Type) {
	switch t := ty.(type) {
	case types.Bool:
		g.emit(&Instruction{Op: OpBoolFromI32})
	case types.S8:
		g.emit(&Instruction{Op: OpS8FromI32})
	case types.U8:
		g.emit(&Instruction{Op: OpU8FromI32})
	case types.S16:
		g.emit(&Instruction{Op: OpS16FromI32})
	case types.U16:
		g.emit(&Instruction{Op: OpU16FromI32})
	case types.S32:
		g.emit(&Instruction{Op: OpS32FromI32})
	case types.U32:
		g.emit(&Instruction{Op: OpU32FromI32})
	case types.S64:
		g.emit(&Instruction{Op: OpS64FromI64})
	case types.U64:
		g.emit(&Instruction{Op: OpU64FromI64})
	case types.F32:
		g.emit(&Instruction{Op: OpFloat32FromF32})
	case types.F64:
		g.emit(&Instruction{Op: OpFloat64FromF64})
	case types.Char:
		g.emit(&Instruction{Op: OpCharFromI32})
	case types.String:
		g.emit(&Instruction{Op: OpStringLift})
	case *types.TypeDef:
		g.liftDef(t)
	default:
		panic(errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Detail("cannot lift %T", ty).
			Build())
	}
}

func (g *Generator[O]) liftDef(td *types.TypeDef) {
	switch kind := td.Kind.(type) {
	case *types.Alias:
		g.lift(kind.Type)
	case *types.Record:
		fields := kind.Types()
		g.liftFlat(fields, g.popN(len(FlattenTypes(fields))))
		g.emit(&Instruction{Op: OpRecordLift, Def: td})
	case *types.Tuple:
		g.liftFlat(kind.Types, g.popN(len(FlattenTypes(kind.Types))))
		g.emit(&Instruction{Op: OpTupleLift, Def: td})
	case *types.Flags:
		g.emit(&Instruction{Op: OpFlagsLift, Def: td})
	case *types.Enum:
		g.emit(&Instruction{Op: OpEnumLift, Def: td})
	case *types.Variant:
		g.liftVariantArms(td, OpVariantLift, kind.Payloads())
	case *types.Union:
		g.liftVariantArms(td, OpUnionLift, kind.Payloads())
	case *types.Option:
		g.liftVariantArms(td, OpOptionLift, kind.Payloads())
	case *types.Result:
		g.liftVariantArms(td, OpResultLift, kind.Payloads())
	case *types.List:
		if g.bindgen.IsListCanonical(kind.Type) {
			g.emit(&Instruction{Op: OpListCanonLift, Def: td, Elem: kind.Type})
			return
		}
		g.pushBlock()
		addr := g.emit(&Instruction{Op: OpIterBasePointer})[0]
		g.pop()
		g.readFromMemory(kind.Type, addr, 0)
		g.finishBlock(1)
		g.emit(&Instruction{Op: OpListLift, Def: td, Elem: kind.Type})
	case *types.Own:
		g.emit(&Instruction{Op: OpOwnHandleFromI32, Def: td})
	case *types.Borrow:
		g.emit(&Instruction{Op: OpBorrowHandleFromI32, Def: td})
	default:
		panic(unsupportedDef(td))
	}
}

// liftVariantArms emits one block per case. A block sees the joined payload
// slots it needs, converted back to the case's own flat types, and yields
// the lifted payload if the case has one. The discriminant is left for the
// lift instruction itself.
func (g *Generator[O]) liftVariantArms(td *types.TypeDef, op Opcode, payloads []types.Type) {
	joined := appendFlatVariant(nil, payloads)
	flat := g.popN(len(joined))

	for _, ty := range payloads {
		g.pushBlock()
		if ty != nil {
			own := Flatten(ty)
			for i := range own {
				g.push(flat[1+i])
			}
			if cs, needed := casts(joined[1:1+len(own)], own); needed {
				g.emit(&Instruction{Op: OpBitcasts, Casts: cs})
			}
			g.lift(ty)
			g.finishBlock(1)
		} else {
			g.finishBlock(0)
		}
	}

	g.push(flat[0])
	g.emit(&Instruction{Op: op, Def: td})
}
