package memory

import (
	"context"
	"testing"

	"github.com/wippyai/bindgen"
	"github.com/wippyai/bindgen/errors"
)

func TestWrap_Nil(t *testing.T) {
	if mem := Wrap(nil); mem != nil {
		t.Error("expected nil for nil memory")
	}
	if alloc := WrapRealloc(context.Background(), nil); alloc != nil {
		t.Error("expected nil for nil function")
	}
}

func exerciseMemory(t *testing.T, mem bindgen.Memory) {
	t.Helper()

	data := []byte{1, 2, 3, 4}
	if err := mem.Write(0, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	read, err := mem.Read(0, 4)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	for i, b := range read {
		if b != data[i] {
			t.Errorf("byte %d: expected %d, got %d", i, data[i], b)
		}
	}

	if err := mem.WriteU8(100, 0xAB); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU8(100); v != 0xAB {
		t.Errorf("ReadU8: got %#x", v)
	}
	if err := mem.WriteU16(102, 0xBEEF); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU16(102); v != 0xBEEF {
		t.Errorf("ReadU16: got %#x", v)
	}
	if err := mem.WriteU32(104, 0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU32(104); v != 0xDEADBEEF {
		t.Errorf("ReadU32: got %#x", v)
	}
	if err := mem.WriteU64(112, 0x0123456789ABCDEF); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU64(112); v != 0x0123456789ABCDEF {
		t.Errorf("ReadU64: got %#x", v)
	}
	// little-endian byte order
	if b, _ := mem.ReadU8(104); b != 0xEF {
		t.Errorf("low byte of u32: got %#x, want 0xef", b)
	}

	size := mem.(bindgen.MemorySizer).Size()
	if _, err := mem.Read(size-2, 4); err == nil {
		t.Error("expected out of bounds read to fail")
	}
	err = mem.WriteU32(size-2, 1)
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseEval, Kind: errors.KindOutOfBounds}) {
		t.Errorf("out of bounds write: got %v, want out_of_bounds", err)
	}
	if _, err := mem.ReadU64(size); err == nil {
		t.Error("expected read at end to fail")
	}
}

func TestSlice(t *testing.T) {
	exerciseMemory(t, NewSlice(4096))
}

func TestWazeroMemory(t *testing.T) {
	ctx := context.Background()
	inst, err := NewWazero(ctx)
	if err != nil {
		t.Fatalf("NewWazero failed: %v", err)
	}
	defer inst.Close(ctx)

	if inst.Size() != 65536 {
		t.Errorf("Size = %d, want one page", inst.Size())
	}
	exerciseMemory(t, inst.Wrapper)
}

func TestBump(t *testing.T) {
	b := NewBump(0, 64)

	p1, err := b.Alloc(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != 8 {
		t.Errorf("first allocation at %d, want 8", p1)
	}
	p2, err := b.Alloc(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if p2 != 16 {
		t.Errorf("aligned allocation at %d, want 16", p2)
	}
	if b.Live() != 2 {
		t.Errorf("Live = %d, want 2", b.Live())
	}

	b.Free(p1, 3, 1)
	b.Free(p1, 3, 1)
	if b.Live() != 1 || b.Freed() != 1 {
		t.Errorf("Live = %d Freed = %d after double free", b.Live(), b.Freed())
	}

	if _, err := b.Alloc(64, 4); err == nil {
		t.Error("expected allocation past limit to fail")
	}

	if _, err := b.Alloc(0, 4); err != nil {
		t.Errorf("zero-size allocation failed: %v", err)
	}
	if b.Live() != 1 {
		t.Error("zero-size allocation should not be tracked")
	}
}

func TestAllocationList(t *testing.T) {
	b := NewBump(0, 1024)
	al := NewAllocationList()

	for _, size := range []uint32{4, 16, 0} {
		p, _ := b.Alloc(size, 4)
		al.Add(p, size, 4)
	}
	if al.Count() != 3 {
		t.Fatalf("Count = %d, want 3", al.Count())
	}

	al.Free(b)
	if b.Live() != 0 {
		t.Errorf("Live = %d after Free, want 0", b.Live())
	}
	if al.Count() != 0 {
		t.Error("list not reset after Free")
	}

	al.Add(1, 1, 1)
	al.Free(nil)
	if al.Count() != 1 {
		t.Error("Free(nil) should leave the list untouched")
	}
}
