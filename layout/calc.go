// Package layout computes canonical ABI sizes, alignments and offsets.
package layout

import (
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/types"
)

// Info describes the linear-memory layout of a type.
//
// Offsets holds field offsets for records and tuples. Tag and Payload are
// set for variant-like types (variant, union, option, result, enum).
type Info struct {
	Offsets []uint32
	Size    uint32
	Align   uint32
	Payload uint32
	Tag     Int
}

// Calculator memoizes layouts per *types.TypeDef. It is not safe for
// concurrent use; layouts are immutable once computed.
type Calculator struct {
	cache map[*types.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*types.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t types.Type) Info {
	switch typ := t.(type) {
	case types.U8, types.S8, types.Bool:
		return Info{Size: 1, Align: 1}
	case types.U16, types.S16:
		return Info{Size: 2, Align: 2}
	case types.U32, types.S32, types.F32, types.Char:
		return Info{Size: 4, Align: 4}
	case types.U64, types.S64, types.F64:
		return Info{Size: 8, Align: 8}
	case types.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *types.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		panic(errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			Detail("no layout for %T", t).
			Build())
	}
}

func (c *Calculator) Size(t types.Type) uint32 {
	return c.Calculate(t).Size
}

func (c *Calculator) Align(t types.Type) uint32 {
	return c.Calculate(t).Align
}

func (c *Calculator) calculateTypeDef(t *types.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *types.Record:
		info = c.Record(kind.Types())
	case *types.Tuple:
		info = c.Record(kind.Types)
	case *types.Variant:
		info = c.Variant(Discriminant(len(kind.Cases)), kind.Payloads())
	case *types.Union:
		info = c.Variant(Discriminant(len(kind.Cases)), kind.Payloads())
	case *types.Enum:
		info = c.Variant(Discriminant(len(kind.Cases)), nil)
	case *types.Option:
		info = c.Variant(U8, kind.Payloads())
	case *types.Result:
		info = c.Variant(U8, kind.Payloads())
	case *types.Flags:
		info = FlagsReprOf(len(kind.Flags)).Info()
	case *types.List:
		info = Info{Size: 8, Align: 4}
	case *types.Own, *types.Borrow, *types.Future, *types.Stream:
		info = Info{Size: 4, Align: 4}
	case *types.Alias:
		info = c.Calculate(kind.Type)
	case *types.Resource:
		panic(errors.Unsupported(errors.PhaseLayout, nil, t.String(), "resources are only passed through handles"))
	default:
		panic(errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			Type(t.String()).
			Detail("unknown definition kind %T", t.Kind).
			Build())
	}

	c.cache[t] = info
	return info
}

// Record lays out fields sequentially with alignment padding; the size is
// rounded up to the largest field alignment. Tuples and parameter lists use
// the same rule.
func (c *Calculator) Record(fields []types.Type) Info {
	if len(fields) == 0 {
		return Info{Size: 0, Align: 1}
	}

	offsets := make([]uint32, len(fields))
	maxAlign := uint32(1)
	offset := uint32(0)

	for i, field := range fields {
		fieldLayout := c.Calculate(field)

		offset = AlignTo(offset, fieldLayout.Align)
		offsets[i] = offset

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		offset += fieldLayout.Size
	}

	return Info{
		Size:    AlignTo(offset, maxAlign),
		Align:   maxAlign,
		Offsets: offsets,
	}
}

// FieldOffsets returns the byte offset of each field within a record of
// the given field types.
func (c *Calculator) FieldOffsets(fields []types.Type) []uint32 {
	return c.Record(fields).Offsets
}

// Variant lays out a discriminant of type tag followed by space for the
// largest payload, aligned to the strictest payload. Nil payloads are
// empty cases.
func (c *Calculator) Variant(tag Int, payloads []types.Type) Info {
	maxAlign := tag.Align()
	maxSize := uint32(0)

	for _, p := range payloads {
		if p == nil {
			continue
		}
		caseLayout := c.Calculate(p)
		if caseLayout.Align > maxAlign {
			maxAlign = caseLayout.Align
		}
		if caseLayout.Size > maxSize {
			maxSize = caseLayout.Size
		}
	}

	payloadOffset := AlignTo(tag.Size(), maxAlign)

	return Info{
		Size:    AlignTo(payloadOffset+maxSize, maxAlign),
		Align:   maxAlign,
		Payload: payloadOffset,
		Tag:     tag,
	}
}

// PayloadOffset is the offset of the payload within a variant-like value.
func (c *Calculator) PayloadOffset(tag Int, payloads []types.Type) uint32 {
	return c.Variant(tag, payloads).Payload
}
