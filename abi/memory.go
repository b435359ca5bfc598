package abi

import (
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/layout"
	"github.com/wippyai/bindgen/types"
)

// writeToMemory pops a source value of type ty and stores it at
// addr+offset.
func (g *Generator[O]) writeToMemory(ty types.Type, addr O, offset uint32) {
	switch t := ty.(type) {
	case types.Bool, types.U8, types.S8:
		g.lowerAndStore(ty, addr, offset, OpI32Store8)
	case types.U16, types.S16:
		g.lowerAndStore(ty, addr, offset, OpI32Store16)
	case types.U32, types.S32, types.Char:
		g.lowerAndStore(ty, addr, offset, OpI32Store)
	case types.U64, types.S64:
		g.lowerAndStore(ty, addr, offset, OpI64Store)
	case types.F32:
		g.lowerAndStore(ty, addr, offset, OpF32Store)
	case types.F64:
		g.lowerAndStore(ty, addr, offset, OpF64Store)
	case types.String:
		g.writePointerPair(ty, addr, offset)
	case *types.TypeDef:
		g.writeDef(t, addr, offset)
	default:
		panic(errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Detail("cannot store %T", ty).
			Build())
	}
}

func (g *Generator[O]) writeDef(td *types.TypeDef, addr O, offset uint32) {
	switch kind := td.Kind.(type) {
	case *types.Alias:
		g.writeToMemory(kind.Type, addr, offset)
	case *types.Record:
		g.emit(&Instruction{Op: OpRecordLower, Def: td})
		g.writeFields(kind.Types(), addr, offset)
	case *types.Tuple:
		g.emit(&Instruction{Op: OpTupleLower, Def: td})
		g.writeFields(kind.Types, addr, offset)
	case *types.Flags:
		g.lower(td)
		repr := layout.FlagsReprOf(len(kind.Flags))
		if repr.Int != layout.U32 {
			g.push(addr)
			g.storeInt(repr.Int, offset)
			return
		}
		lanes := g.popN(repr.Lanes())
		for i, lane := range lanes {
			g.push(lane)
			g.push(addr)
			g.emit(&Instruction{Op: OpI32Store, Offset: offset + uint32(i)*4})
		}
	case *types.Enum:
		g.lower(td)
		g.push(addr)
		g.storeInt(layout.Discriminant(len(kind.Cases)), offset)
	case *types.Variant:
		g.writeVariantArms(td, OpVariantLower, layout.Discriminant(len(kind.Cases)), kind.Payloads(), addr, offset)
	case *types.Union:
		g.writeVariantArms(td, OpUnionLower, layout.Discriminant(len(kind.Cases)), kind.Payloads(), addr, offset)
	case *types.Option:
		g.writeVariantArms(td, OpOptionLower, layout.U8, kind.Payloads(), addr, offset)
	case *types.Result:
		g.writeVariantArms(td, OpResultLower, layout.U8, kind.Payloads(), addr, offset)
	case *types.List:
		g.writePointerPair(td, addr, offset)
	case *types.Own, *types.Borrow:
		g.lowerAndStore(td, addr, offset, OpI32Store)
	default:
		panic(unsupportedDef(td))
	}
}

func (g *Generator[O]) lowerAndStore(ty types.Type, addr O, offset uint32, store Opcode) {
	g.lower(ty)
	g.push(addr)
	g.emit(&Instruction{Op: store, Offset: offset})
}

// writePointerPair stores the (ptr, len) pair of a lowered string or list.
func (g *Generator[O]) writePointerPair(ty types.Type, addr O, offset uint32) {
	g.lower(ty)
	g.push(addr)
	g.emit(&Instruction{Op: OpI32Store, Offset: offset + 4})
	g.push(addr)
	g.emit(&Instruction{Op: OpI32Store, Offset: offset})
}

func (g *Generator[O]) writeFields(tys []types.Type, addr O, offset uint32) {
	offsets := g.sizes.FieldOffsets(tys)
	values := g.popN(len(tys))
	for i, ty := range tys {
		g.push(values[i])
		g.writeToMemory(ty, addr, offset+offsets[i])
	}
}

func (g *Generator[O]) writeVariantArms(td *types.TypeDef, op Opcode, tag layout.Int, payloads []types.Type, addr O, offset uint32) {
	payloadOffset := offset + g.sizes.PayloadOffset(tag, payloads)

	for i, ty := range payloads {
		g.pushBlock()
		payload := g.emit(&Instruction{Op: OpVariantPayloadName})[0]
		g.pop()
		g.emit(&Instruction{Op: OpI32Const, Val: int32(i)})
		g.push(addr)
		g.storeInt(tag, offset)
		if ty != nil {
			g.push(payload)
			g.writeToMemory(ty, addr, payloadOffset)
		}
		g.finishBlock(0)
	}

	g.emit(&Instruction{Op: op, Def: td})
}

// readFromMemory pushes the source value of type ty stored at addr+offset.
func (g *Generator[O]) readFromMemory(ty types.Type, addr O, offset uint32) {
	switch t := ty.(type) {
	case types.Bool, types.U8:
		g.loadAndLift(ty, addr, offset, OpI32Load8U)
	case types.S8:
		g.loadAndLift(ty, addr, offset, OpI32Load8S)
	case types.U16:
		g.loadAndLift(ty, addr, offset, OpI32Load16U)
	case types.S16:
		g.loadAndLift(ty, addr, offset, OpI32Load16S)
	case types.U32, types.S32, types.Char:
		g.loadAndLift(ty, addr, offset, OpI32Load)
	case types.U64, types.S64:
		g.loadAndLift(ty, addr, offset, OpI64Load)
	case types.F32:
		g.loadAndLift(ty, addr, offset, OpF32Load)
	case types.F64:
		g.loadAndLift(ty, addr, offset, OpF64Load)
	case types.String:
		g.readPointerPair(addr, offset)
		g.lift(ty)
	case *types.TypeDef:
		g.readDef(t, addr, offset)
	default:
		panic(errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Detail("cannot load %T", ty).
			Build())
	}
}

func (g *Generator[O]) readDef(td *types.TypeDef, addr O, offset uint32) {
	switch kind := td.Kind.(type) {
	case *types.Alias:
		g.readFromMemory(kind.Type, addr, offset)
	case *types.Record:
		g.readFields(kind.Types(), addr, offset)
		g.emit(&Instruction{Op: OpRecordLift, Def: td})
	case *types.Tuple:
		g.readFields(kind.Types, addr, offset)
		g.emit(&Instruction{Op: OpTupleLift, Def: td})
	case *types.Flags:
		repr := layout.FlagsReprOf(len(kind.Flags))
		if repr.Int != layout.U32 {
			g.push(addr)
			g.loadInt(repr.Int, offset)
		} else {
			for i := 0; i < repr.Lanes(); i++ {
				g.push(addr)
				g.emit(&Instruction{Op: OpI32Load, Offset: offset + uint32(i)*4})
			}
		}
		g.lift(td)
	case *types.Enum:
		g.push(addr)
		g.loadInt(layout.Discriminant(len(kind.Cases)), offset)
		g.lift(td)
	case *types.Variant:
		g.readVariantArms(td, OpVariantLift, layout.Discriminant(len(kind.Cases)), kind.Payloads(), addr, offset)
	case *types.Union:
		g.readVariantArms(td, OpUnionLift, layout.Discriminant(len(kind.Cases)), kind.Payloads(), addr, offset)
	case *types.Option:
		g.readVariantArms(td, OpOptionLift, layout.U8, kind.Payloads(), addr, offset)
	case *types.Result:
		g.readVariantArms(td, OpResultLift, layout.U8, kind.Payloads(), addr, offset)
	case *types.List:
		g.readPointerPair(addr, offset)
		g.lift(td)
	case *types.Own, *types.Borrow:
		g.loadAndLift(td, addr, offset, OpI32Load)
	default:
		panic(unsupportedDef(td))
	}
}

func (g *Generator[O]) loadAndLift(ty types.Type, addr O, offset uint32, load Opcode) {
	g.push(addr)
	g.emit(&Instruction{Op: load, Offset: offset})
	g.lift(ty)
}

func (g *Generator[O]) readPointerPair(addr O, offset uint32) {
	g.push(addr)
	g.emit(&Instruction{Op: OpI32Load, Offset: offset})
	g.push(addr)
	g.emit(&Instruction{Op: OpI32Load, Offset: offset + 4})
}

func (g *Generator[O]) readFields(tys []types.Type, addr O, offset uint32) {
	offsets := g.sizes.FieldOffsets(tys)
	for i, ty := range tys {
		g.readFromMemory(ty, addr, offset+offsets[i])
	}
}

func (g *Generator[O]) readVariantArms(td *types.TypeDef, op Opcode, tag layout.Int, payloads []types.Type, addr O, offset uint32) {
	payloadOffset := offset + g.sizes.PayloadOffset(tag, payloads)

	g.push(addr)
	g.loadInt(tag, offset)

	for _, ty := range payloads {
		g.pushBlock()
		if ty != nil {
			g.readFromMemory(ty, addr, payloadOffset)
			g.finishBlock(1)
		} else {
			g.finishBlock(0)
		}
	}

	g.emit(&Instruction{Op: op, Def: td})
}

func (g *Generator[O]) loadInt(repr layout.Int, offset uint32) {
	op := OpI32Load
	switch repr {
	case layout.U8:
		op = OpI32Load8U
	case layout.U16:
		op = OpI32Load16U
	}
	g.emit(&Instruction{Op: op, Offset: offset})
}

func (g *Generator[O]) storeInt(repr layout.Int, offset uint32) {
	op := OpI32Store
	switch repr {
	case layout.U8:
		op = OpI32Store8
	case layout.U16:
		op = OpI32Store16
	}
	g.emit(&Instruction{Op: op, Offset: offset})
}
