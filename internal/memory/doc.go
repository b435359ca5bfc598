// Package memory provides linear memories and allocators for running
// instruction streams: a plain Go slice, an adapter over wazero's
// api.Memory, and a bump allocator that tracks outstanding allocations.
package memory
