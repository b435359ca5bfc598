package abi

import (
	"github.com/wippyai/bindgen/layout"
	"github.com/wippyai/bindgen/types"
)

// deallocate frees the memory owned by the value of type ty stored at
// addr+offset. Types that own nothing emit nothing.
func (g *Generator[O]) deallocate(ty types.Type, addr O, offset uint32) {
	switch t := ty.(type) {
	case types.String:
		g.readPointerPair(addr, offset)
		g.emit(&Instruction{Op: OpGuestDeallocateString})
	case *types.TypeDef:
		g.deallocateDef(t, addr, offset)
	}
}

func (g *Generator[O]) deallocateDef(td *types.TypeDef, addr O, offset uint32) {
	switch kind := td.Kind.(type) {
	case *types.Alias:
		g.deallocate(kind.Type, addr, offset)
	case *types.List:
		g.readPointerPair(addr, offset)
		g.pushBlock()
		if NeedsPostReturn(kind.Type) {
			base := g.emit(&Instruction{Op: OpIterBasePointer})[0]
			g.pop()
			g.deallocate(kind.Type, base, 0)
		}
		g.finishBlock(0)
		g.emit(&Instruction{Op: OpGuestDeallocateList, Def: td, Elem: kind.Type})
	case *types.Record:
		g.deallocateFields(kind.Types(), addr, offset)
	case *types.Tuple:
		g.deallocateFields(kind.Types, addr, offset)
	case *types.Variant:
		g.deallocateVariant(td, layout.Discriminant(len(kind.Cases)), kind.Payloads(), addr, offset)
	case *types.Union:
		g.deallocateVariant(td, layout.Discriminant(len(kind.Cases)), kind.Payloads(), addr, offset)
	case *types.Option:
		g.deallocateVariant(td, layout.U8, kind.Payloads(), addr, offset)
	case *types.Result:
		g.deallocateVariant(td, layout.U8, kind.Payloads(), addr, offset)
	}
}

func (g *Generator[O]) deallocateFields(tys []types.Type, addr O, offset uint32) {
	offsets := g.sizes.FieldOffsets(tys)
	for i, ty := range tys {
		if NeedsPostReturn(ty) {
			g.deallocate(ty, addr, offset+offsets[i])
		}
	}
}

func (g *Generator[O]) deallocateVariant(td *types.TypeDef, tag layout.Int, payloads []types.Type, addr O, offset uint32) {
	if !anyNeedsPostReturn(payloads) {
		return
	}
	payloadOffset := offset + g.sizes.PayloadOffset(tag, payloads)

	g.push(addr)
	g.loadInt(tag, offset)
	for _, ty := range payloads {
		g.pushBlock()
		if ty != nil && NeedsPostReturn(ty) {
			g.deallocate(ty, addr, payloadOffset)
		}
		g.finishBlock(0)
	}
	g.emit(&Instruction{Op: OpGuestDeallocateVariant, Def: td})
}
