package bindgen

// Memory is the linear memory that lowered values are stored into and
// lifted values are loaded from. Multi-byte values are little-endian.
// Accesses that fall outside the memory return an out_of_bounds
// *errors.Error and leave the memory unchanged.
type Memory interface {
	// Read returns length bytes at offset. The slice may alias the
	// memory, so callers that keep it copy it.
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error

	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)

	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer reports the size of a memory in bytes. Allocators use it to
// bound the region they hand out.
type MemorySizer interface {
	Size() uint32
}

// Allocator serves the Malloc instruction and the realloc calls behind
// lowered strings and lists. Free releases a block previously returned by
// Alloc with the same size and alignment; zero-sized blocks are never
// freed.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
