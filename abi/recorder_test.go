package abi

import (
	"testing"

	"github.com/wippyai/bindgen/layout"
	"github.com/wippyai/bindgen/types"
)

// recorder is a Bindgen that checks arity and records every instruction.
type recorder struct {
	t         *testing.T
	sizes     *layout.Calculator
	canonical func(types.Type) bool
	insts     []Instruction
	operands  [][]int
	results   [][]int
	retptrs   [][2]uint32
	// finished block counts, one per open block plus the root
	finished []int
	next     int
	maxDepth int
	// extra results returned for the named opcode, to provoke mismatches
	corrupt Opcode
}

func newRecorder(t *testing.T) *recorder {
	return &recorder{
		t:        t,
		sizes:    layout.NewCalculator(),
		finished: []int{0},
		canonical: func(elem types.Type) bool {
			_, ok := elem.(types.U8)
			return ok
		},
	}
}

func (r *recorder) fresh(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = r.next
		r.next++
	}
	return out
}

func (r *recorder) Emit(inst *Instruction, operands []int) []int {
	want, produce := inst.Arity()
	if len(operands) != want {
		r.t.Errorf("%s: got %d operands, arity says %d", inst.Op, len(operands), want)
	}
	top := len(r.finished) - 1
	if inst.Blocks() != r.finished[top] {
		r.t.Errorf("%s: consumes %d blocks, %d finished", inst.Op, inst.Blocks(), r.finished[top])
	}
	r.finished[top] = 0
	r.insts = append(r.insts, *inst)
	if inst.Op == r.corrupt {
		produce++
	}
	out := r.fresh(produce)
	r.operands = append(r.operands, operands)
	r.results = append(r.results, out)
	return out
}

func (r *recorder) PushBlock() {
	r.finished = append(r.finished, 0)
	if r.depth() > r.maxDepth {
		r.maxDepth = r.depth()
	}
}

func (r *recorder) FinishBlock(operands []int) {
	if r.depth() == 0 {
		r.t.Error("FinishBlock without PushBlock")
		return
	}
	r.finished = r.finished[:len(r.finished)-1]
	r.finished[len(r.finished)-1]++
}

func (r *recorder) depth() int {
	return len(r.finished) - 1
}

func (r *recorder) ReturnPointer(size, align uint32) int {
	r.retptrs = append(r.retptrs, [2]uint32{size, align})
	return r.fresh(1)[0]
}

func (r *recorder) IsListCanonical(elem types.Type) bool {
	return r.canonical(elem)
}

func (r *recorder) Sizes() *layout.Calculator {
	return r.sizes
}

func (r *recorder) ops() []Opcode {
	out := make([]Opcode, len(r.insts))
	for i, inst := range r.insts {
		out[i] = inst.Op
	}
	return out
}

func (r *recorder) count(op Opcode) int {
	n := 0
	for _, inst := range r.insts {
		if inst.Op == op {
			n++
		}
	}
	return n
}

func (r *recorder) find(op Opcode) *Instruction {
	for i := range r.insts {
		if r.insts[i].Op == op {
			return &r.insts[i]
		}
	}
	return nil
}

// producedBy returns the first value op produced.
func (r *recorder) producedBy(op Opcode) (int, bool) {
	for i := range r.insts {
		if r.insts[i].Op == op && len(r.results[i]) > 0 {
			return r.results[i][0], true
		}
	}
	return 0, false
}

// operandsOf returns the nth operand of every op instruction.
func (r *recorder) operandsOf(op Opcode, nth int) []int {
	var out []int
	for i := range r.insts {
		if r.insts[i].Op == op && nth < len(r.operands[i]) {
			out = append(out, r.operands[i][nth])
		}
	}
	return out
}

func def(name string, kind types.TypeDefKind) *types.TypeDef {
	return &types.TypeDef{Name: name, Kind: kind}
}

func fn(name string, params []types.Type, results ...types.Type) *types.Function {
	f := &types.Function{Name: name}
	for i, p := range params {
		f.Params = append(f.Params, types.Param{Name: string(rune('a' + i)), Type: p})
	}
	for _, r := range results {
		f.Results = append(f.Results, types.Param{Type: r})
	}
	return f
}

var modes = []struct {
	dir  Direction
	mode Mode
}{
	{Import, LowerArgsLiftResults},
	{Import, LiftArgsLowerResults},
	{Export, LowerArgsLiftResults},
	{Export, LiftArgsLowerResults},
}
