package memory

import (
	"github.com/wippyai/bindgen"
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/layout"
)

// Allocation is one live block handed out by an allocator.
type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// Bump is an allocator that never reuses memory. It records every live
// allocation so tests can check that translated code frees what it owns.
// Address 0 is never returned.
type Bump struct {
	live  map[uint32]Allocation
	next  uint32
	limit uint32
	freed int
}

var _ bindgen.Allocator = (*Bump)(nil)

// NewBump allocates from [base, limit). A zero base starts at 8.
func NewBump(base, limit uint32) *Bump {
	if base == 0 {
		base = 8
	}
	return &Bump{
		live:  make(map[uint32]Allocation),
		next:  base,
		limit: limit,
	}
}

// NewBumpFor allocates from the whole of mem after a reserved header.
func NewBumpFor(mem bindgen.MemorySizer) *Bump {
	return NewBump(0, mem.Size())
}

func (b *Bump) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	ptr := layout.AlignTo(b.next, align)
	end := uint64(ptr) + uint64(size)
	if end > uint64(b.limit) {
		return 0, errors.AllocationFailed(errors.PhaseEval, size, align)
	}
	b.next = uint32(end)
	if size == 0 {
		// Zero-sized blocks get a distinct aligned address but own no bytes.
		return ptr, nil
	}
	b.live[ptr] = Allocation{Ptr: ptr, Size: size, Align: align}
	return ptr, nil
}

// Free forgets a live allocation. Unknown pointers are ignored.
func (b *Bump) Free(ptr, size, align uint32) {
	if _, ok := b.live[ptr]; ok {
		delete(b.live, ptr)
		b.freed++
	}
}

// Live returns the number of allocations not yet freed.
func (b *Bump) Live() int {
	return len(b.live)
}

// Freed returns how many allocations were released.
func (b *Bump) Freed() int {
	return b.freed
}

// Used returns the high-water mark.
func (b *Bump) Used() uint32 {
	return b.next
}

// AllocationList tracks blocks that must be released together, such as
// the strings and lists lowered for a borrowed argument list.
type AllocationList struct {
	allocations []Allocation
}

func NewAllocationList() *AllocationList {
	return &AllocationList{allocations: make([]Allocation, 0, 8)}
}

func (al *AllocationList) Add(ptr, size, align uint32) {
	al.allocations = append(al.allocations, Allocation{
		Ptr:   ptr,
		Size:  size,
		Align: align,
	})
}

// Free releases every tracked block and empties the list.
func (al *AllocationList) Free(allocator bindgen.Allocator) {
	if allocator == nil {
		return
	}
	for _, a := range al.allocations {
		if a.Size != 0 {
			allocator.Free(a.Ptr, a.Size, a.Align)
		}
	}
	al.Reset()
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}
