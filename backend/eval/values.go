package eval

import (
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/resource"
)

// Source values handled by the interpreter:
//
//	bool, int8..int64, uint8..uint64, float32, float64
//	rune                  char
//	string                string
//	[]any                 record, tuple and list fields or elements
//	[]byte                canonical list<u8>
//	[]bool                flags, one entry per flag
//	uint32                enum discriminant
//	Case                  variant, union, option and result
//	Own, Borrow           handles
//
// Flat core values are uint64 encoded the way wazero's api package
// encodes function parameters.

// Case is a value of a variant-like type. Option uses case 0 for none and
// 1 for some; result uses 0 for ok and 1 for err.
type Case struct {
	Payload any
	Index   uint32
}

func None() Case                   { return Case{Index: 0} }
func Some(v any) Case              { return Case{Index: 1, Payload: v} }
func Ok(v any) Case                { return Case{Index: 0, Payload: v} }
func Err(v any) Case               { return Case{Index: 1, Payload: v} }
func Variant(i uint32, v any) Case { return Case{Index: i, Payload: v} }

// Own is an owned resource handle carrying the resource's representation.
type Own struct {
	Rep uint32
}

// Borrow is a borrowed resource handle. A non-zero Lender lowers the
// borrow as a loan of that owned handle in the Env's table, and Rep is
// ignored.
type Borrow struct {
	Rep    uint32
	Lender resource.Handle
}

// Args converts flat core values into Run arguments.
func Args(flat []uint64) []any {
	out := make([]any, len(flat))
	for i, v := range flat {
		out[i] = v
	}
	return out
}

// Flat converts the results of a program that lowers its results back into
// core values.
func Flat(results []any, err error) ([]uint64, error) {
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(results))
	for i, r := range results {
		v, ok := r.(uint64)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEval, nil, "core value", r)
		}
		out[i] = v
	}
	return out, nil
}
