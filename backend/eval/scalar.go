package eval

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bindgen/abi"
	"github.com/wippyai/bindgen/errors"
)

// scalar runs the one-to-one conversions between source scalars and flat
// core values.
func (m *machine) scalar(st *step) error {
	v := m.arg(st, 0)
	var out any
	ok := true

	switch st.inst.Op {
	case abi.OpI32FromBool:
		var b bool
		if b, ok = v.(bool); ok {
			out = uint64(0)
			if b {
				out = uint64(1)
			}
		}
	case abi.OpI32FromChar:
		var r rune
		if r, ok = v.(rune); ok {
			out = api.EncodeI32(r)
		}
	case abi.OpI32FromU8:
		var n uint8
		if n, ok = v.(uint8); ok {
			out = uint64(n)
		}
	case abi.OpI32FromS8:
		var n int8
		if n, ok = v.(int8); ok {
			out = api.EncodeI32(int32(n))
		}
	case abi.OpI32FromU16:
		var n uint16
		if n, ok = v.(uint16); ok {
			out = uint64(n)
		}
	case abi.OpI32FromS16:
		var n int16
		if n, ok = v.(int16); ok {
			out = api.EncodeI32(int32(n))
		}
	case abi.OpI32FromU32:
		var n uint32
		if n, ok = v.(uint32); ok {
			out = api.EncodeU32(n)
		}
	case abi.OpI32FromS32:
		var n int32
		if n, ok = v.(int32); ok {
			out = api.EncodeI32(n)
		}
	case abi.OpI64FromU64:
		var n uint64
		if n, ok = v.(uint64); ok {
			out = n
		}
	case abi.OpI64FromS64:
		var n int64
		if n, ok = v.(int64); ok {
			out = api.EncodeI64(n)
		}
	case abi.OpF32FromFloat32:
		var f float32
		if f, ok = v.(float32); ok {
			out = api.EncodeF32(f)
		}
	case abi.OpF64FromFloat64:
		var f float64
		if f, ok = v.(float64); ok {
			out = api.EncodeF64(f)
		}

	case abi.OpBoolFromI32:
		out = api.DecodeU32(m.flat(st, 0)) != 0
	case abi.OpCharFromI32:
		c := api.DecodeU32(m.flat(st, 0))
		if c > 0x10FFFF || (c >= 0xD800 && c <= 0xDFFF) {
			return errors.New(errors.PhaseEval, errors.KindInvalidData).
				Type("char").
				Value(c).
				Detail("invalid scalar value %#x", c).
				Build()
		}
		out = rune(c)
	case abi.OpU8FromI32:
		out = uint8(m.flat(st, 0))
	case abi.OpS8FromI32:
		out = int8(m.flat(st, 0))
	case abi.OpU16FromI32:
		out = uint16(m.flat(st, 0))
	case abi.OpS16FromI32:
		out = int16(m.flat(st, 0))
	case abi.OpU32FromI32:
		out = api.DecodeU32(m.flat(st, 0))
	case abi.OpS32FromI32:
		out = api.DecodeI32(m.flat(st, 0))
	case abi.OpU64FromI64:
		out = m.flat(st, 0)
	case abi.OpS64FromI64:
		out = int64(m.flat(st, 0))
	case abi.OpFloat32FromF32:
		out = api.DecodeF32(m.flat(st, 0))
	case abi.OpFloat64FromF64:
		out = api.DecodeF64(m.flat(st, 0))

	default:
		return errors.NotImplemented(errors.PhaseEval, st.inst.Op.String())
	}

	if !ok {
		return errors.TypeMismatch(errors.PhaseEval, nil, st.inst.Op.String(), v)
	}
	m.set(st, out)
	return nil
}
