package memory

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
)

// memoryWASM is a minimal module exporting one page of memory as "memory".
var memoryWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}

// Instance is a wazero-backed linear memory and the runtime that owns it.
type Instance struct {
	*Wrapper
	rt wazero.Runtime
}

// NewWazero instantiates a memory-only module in a fresh wazero runtime.
func NewWazero(ctx context.Context) (*Instance, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())

	mod, err := rt.Instantiate(ctx, memoryWASM)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate memory module: %w", err)
	}

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("memory module exports no memory")
	}

	return &Instance{Wrapper: Wrap(mem), rt: rt}, nil
}

// Close releases the runtime and its memory.
func (i *Instance) Close(ctx context.Context) error {
	return i.rt.Close(ctx)
}
