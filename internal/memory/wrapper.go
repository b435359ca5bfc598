package memory

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bindgen"
	"github.com/wippyai/bindgen/errors"
)

// Wrap wraps a wazero api.Memory to implement bindgen.Memory.
func Wrap(mem api.Memory) *Wrapper {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// WrapRealloc wraps a guest cabi_realloc export to implement
// bindgen.Allocator.
func WrapRealloc(ctx context.Context, fn api.Function) bindgen.Allocator {
	if fn == nil {
		return nil
	}
	return &ReallocAllocator{Ctx: ctx, Fn: fn}
}

// Wrapper adapts wazero api.Memory to the bindgen.Memory interface. Access
// outside the memory fails with an out_of_bounds *errors.Error, the same as
// Slice.
type Wrapper struct {
	Mem api.Memory
}

var (
	_ bindgen.Memory      = (*Wrapper)(nil)
	_ bindgen.MemorySizer = (*Wrapper)(nil)
)

func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}

func check(ok bool, offset, length uint32) error {
	if !ok {
		return errors.OutOfBounds(errors.PhaseEval, nil, offset, length)
	}
	return nil
}

func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if err := check(ok, offset, length); err != nil {
		return nil, err
	}
	// api.Memory.Read returns a view; callers keep the bytes past growth.
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Wrapper) Write(offset uint32, data []byte) error {
	return check(m.Mem.Write(offset, data), offset, uint32(len(data)))
}

func (m *Wrapper) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	return v, check(ok, offset, 1)
}

func (m *Wrapper) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.Mem.ReadUint16Le(offset)
	return v, check(ok, offset, 2)
}

func (m *Wrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	return v, check(ok, offset, 4)
}

func (m *Wrapper) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	return v, check(ok, offset, 8)
}

func (m *Wrapper) WriteU8(offset uint32, value uint8) error {
	return check(m.Mem.WriteByte(offset, value), offset, 1)
}

func (m *Wrapper) WriteU16(offset uint32, value uint16) error {
	return check(m.Mem.WriteUint16Le(offset, value), offset, 2)
}

func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	return check(m.Mem.WriteUint32Le(offset, value), offset, 4)
}

func (m *Wrapper) WriteU64(offset uint32, value uint64) error {
	return check(m.Mem.WriteUint64Le(offset, value), offset, 8)
}

// ReallocAllocator calls a guest's cabi_realloc(old_ptr, old_size, align,
// new_size) export.
type ReallocAllocator struct {
	Ctx context.Context
	Fn  api.Function
}

func (a *ReallocAllocator) Alloc(size, align uint32) (uint32, error) {
	results, err := a.Fn.Call(a.Ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, errors.New(errors.PhaseEval, errors.KindAllocation).
			Detail("cabi_realloc(%d, %d)", size, align).
			Cause(err).
			Build()
	}
	if len(results) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseEval, size, align)
	}
	return api.DecodeU32(results[0]), nil
}

// Free shrinks the block to zero bytes, which cabi_realloc treats as a
// release.
func (a *ReallocAllocator) Free(ptr, size, align uint32) {
	_, _ = a.Fn.Call(a.Ctx, uint64(ptr), uint64(size), uint64(align), 0)
}
