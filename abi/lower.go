package abi

import (
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/types"
)

// lower pops a source value of type ty and pushes its flat wasm values.
func (g *Generator[O]) lower(ty types.Type) {
	switch t := ty.(type) {
	case types.Bool:
		g.emit(&Instruction{Op: OpI32FromBool})
	case types.S8:
		g.emit(&Instruction{Op: OpI32FromS8})
	case types.U8:
		g.emit(&Instruction{Op: OpI32FromU8})
	case types.S16:
		g.emit(&Instruction{Op: OpI32FromS16})
	case types.U16:
		g.emit(&Instruction{Op: OpI32FromU16})
	case types.S32:
		g.emit(&Instruction{Op: OpI32FromS32})
	case types.U32:
		g.emit(&Instruction{Op: OpI32FromU32})
	case types.S64:
		g.emit(&Instruction{Op: OpI64FromS64})
	case types.U64:
		g.emit(&Instruction{Op: OpI64FromU64})
	case types.F32:
		g.emit(&Instruction{Op: OpF32FromFloat32})
	case types.F64:
		g.emit(&Instruction{Op: OpF64FromFloat64})
	case types.Char:
		g.emit(&Instruction{Op: OpI32FromChar})
	case types.String:
		g.emit(&Instruction{Op: OpStringLower, Realloc: g.reallocFor()})
	case *types.TypeDef:
		g.lowerDef(t)
	default:
		panic(errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Detail("cannot lower %T", ty).
			Build())
	}
}

func (g *Generator[O]) lowerDef(td *types.TypeDef) {
	switch kind := td.Kind.(type) {
	case *types.Alias:
		g.lower(kind.Type)
	case *types.Record:
		g.emit(&Instruction{Op: OpRecordLower, Def: td})
		g.lowerSpread(kind.Types())
	case *types.Tuple:
		g.emit(&Instruction{Op: OpTupleLower, Def: td})
		g.lowerSpread(kind.Types)
	case *types.Flags:
		g.emit(&Instruction{Op: OpFlagsLower, Def: td})
	case *types.Enum:
		g.emit(&Instruction{Op: OpEnumLower, Def: td})
	case *types.Variant:
		g.lowerVariantArms(td, OpVariantLower, kind.Payloads())
	case *types.Union:
		g.lowerVariantArms(td, OpUnionLower, kind.Payloads())
	case *types.Option:
		g.lowerVariantArms(td, OpOptionLower, kind.Payloads())
	case *types.Result:
		g.lowerVariantArms(td, OpResultLower, kind.Payloads())
	case *types.List:
		realloc := g.reallocFor()
		if g.bindgen.IsListCanonical(kind.Type) {
			g.emit(&Instruction{Op: OpListCanonLower, Def: td, Elem: kind.Type, Realloc: realloc})
			return
		}
		g.pushBlock()
		g.emit(&Instruction{Op: OpIterElem, Elem: kind.Type})
		addr := g.emit(&Instruction{Op: OpIterBasePointer})[0]
		g.pop()
		g.writeToMemory(kind.Type, addr, 0)
		g.finishBlock(0)
		g.emit(&Instruction{Op: OpListLower, Def: td, Elem: kind.Type, Realloc: realloc})
	case *types.Own:
		g.emit(&Instruction{Op: OpI32FromOwnHandle, Def: td})
	case *types.Borrow:
		g.emit(&Instruction{Op: OpI32FromBorrowHandle, Def: td})
	default:
		panic(unsupportedDef(td))
	}
}

// lowerSpread lowers values already spread on the stack, one per type, so
// that their flat values end up in declaration order.
func (g *Generator[O]) lowerSpread(tys []types.Type) {
	values := g.popN(len(tys))
	for i, ty := range tys {
		g.push(values[i])
		g.lower(ty)
	}
}

// lowerVariantArms emits one block per case. Each block yields the case's
// discriminant followed by its payload bitcast to the joined slot types and
// padded with zeros.
func (g *Generator[O]) lowerVariantArms(td *types.TypeDef, op Opcode, payloads []types.Type) {
	results := appendFlatVariant(nil, payloads)

	for i, ty := range payloads {
		g.pushBlock()
		payload := g.emit(&Instruction{Op: OpVariantPayloadName})[0]
		g.pop()
		g.emit(&Instruction{Op: OpI32Const, Val: int32(i)})
		pushed := 1
		if ty != nil {
			g.push(payload)
			g.lower(ty)
			flat := Flatten(ty)
			pushed += len(flat)
			if cs, needed := casts(flat, results[1:1+len(flat)]); needed {
				g.emit(&Instruction{Op: OpBitcasts, Casts: cs})
			}
		}
		if pushed < len(results) {
			g.emit(&Instruction{Op: OpConstZero, Tys: results[pushed:]})
		}
		g.finishBlock(len(results))
	}

	g.emit(&Instruction{Op: op, Def: td, Results: results})
}

func unsupportedDef(td *types.TypeDef) *errors.Error {
	switch td.Kind.(type) {
	case *types.Future, *types.Stream:
		return errors.Unsupported(errors.PhaseGenerate, nil, td.String(), "async values have no canonical lowering")
	case *types.Resource:
		return errors.Unsupported(errors.PhaseGenerate, nil, td.String(), "resources are only passed through handles")
	}
	return errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
		Type(td.String()).
		Detail("unknown definition kind %T", td.Kind).
		Build()
}
