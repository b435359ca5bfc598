package abi

import (
	"github.com/wippyai/bindgen/layout"
	"github.com/wippyai/bindgen/types"
)

// DefaultRealloc is the guest export used to allocate memory for values
// whose ownership crosses the boundary.
const DefaultRealloc = "cabi_realloc"

// Bindgen is implemented by language backends. O is the backend's operand
// representation: an expression string, a register index, an SSA value.
//
// The generator calls Emit once per instruction with exactly the number of
// operands Arity reports and expects exactly that many results back.
// PushBlock opens a nested instruction sequence and FinishBlock closes it
// with the operands the block yields; finished blocks belong to the next
// instruction whose Blocks count is non-zero.
type Bindgen[O any] interface {
	Emit(inst *Instruction, operands []O) []O
	PushBlock()
	FinishBlock(operands []O)

	// ReturnPointer returns scratch memory of the given size and
	// alignment, valid until the generated function returns.
	ReturnPointer(size, align uint32) O

	// IsListCanonical reports whether list<elem> can be moved as raw
	// bytes with ListCanonLower/ListCanonLift.
	IsListCanonical(elem types.Type) bool

	// Sizes returns the layout calculator shared with the generator.
	Sizes() *layout.Calculator
}

// Options configures a Generator.
type Options struct {
	// Realloc overrides DefaultRealloc.
	Realloc string
}

func (o Options) realloc() string {
	if o.Realloc == "" {
		return DefaultRealloc
	}
	return o.Realloc
}
