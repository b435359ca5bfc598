package eval

import (
	"go.uber.org/zap"

	"github.com/wippyai/bindgen/abi"
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/layout"
	"github.com/wippyai/bindgen/types"
)

// Reg names a virtual register holding one operand.
type Reg int

type step struct {
	blocks []*block
	args   []Reg
	outs   []Reg
	inst   abi.Instruction
	retptr bool
}

type block struct {
	steps   []step
	results []Reg
}

// Compiler records an instruction stream into a Program. It implements
// abi.Bindgen with registers as operands.
type Compiler struct {
	sizes     *layout.Calculator
	canonical func(types.Type) bool
	open      []*block
	finished  []*block
	regs      int
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithCanonicalLists overrides which list element types are moved as raw
// bytes. The interpreter only supports u8 there; other element types
// fail at run time.
func WithCanonicalLists(fn func(types.Type) bool) CompilerOption {
	return func(c *Compiler) {
		c.canonical = fn
	}
}

// WithSizes shares a layout calculator.
func WithSizes(sizes *layout.Calculator) CompilerOption {
	return func(c *Compiler) {
		c.sizes = sizes
	}
}

func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		sizes:     layout.NewCalculator(),
		canonical: isByte,
		open:      []*block{{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func isByte(t types.Type) bool {
	_, ok := t.(types.U8)
	return ok
}

var _ abi.Bindgen[Reg] = (*Compiler)(nil)

func (c *Compiler) alloc(n int) []Reg {
	out := make([]Reg, n)
	for i := range out {
		out[i] = Reg(c.regs)
		c.regs++
	}
	return out
}

func (c *Compiler) current() *block {
	return c.open[len(c.open)-1]
}

func (c *Compiler) Emit(inst *abi.Instruction, operands []Reg) []Reg {
	_, n := inst.Arity()
	st := step{
		inst: *inst,
		args: append([]Reg(nil), operands...),
		outs: c.alloc(n),
	}
	if k := inst.Blocks(); k > 0 {
		st.blocks = append([]*block(nil), c.finished[len(c.finished)-k:]...)
		c.finished = c.finished[:len(c.finished)-k]
	}
	cur := c.current()
	cur.steps = append(cur.steps, st)
	return st.outs
}

func (c *Compiler) PushBlock() {
	c.open = append(c.open, &block{})
}

func (c *Compiler) FinishBlock(operands []Reg) {
	b := c.current()
	c.open = c.open[:len(c.open)-1]
	b.results = append([]Reg(nil), operands...)
	c.finished = append(c.finished, b)
}

func (c *Compiler) ReturnPointer(size, align uint32) Reg {
	out := c.alloc(1)
	cur := c.current()
	cur.steps = append(cur.steps, step{
		inst:   abi.Instruction{Size: size, Align: align},
		outs:   out,
		retptr: true,
	})
	return out[0]
}

func (c *Compiler) IsListCanonical(elem types.Type) bool {
	return c.canonical(elem)
}

func (c *Compiler) Sizes() *layout.Calculator {
	return c.sizes
}

// Program is a compiled translation ready to run.
type Program struct {
	fn    *types.Function
	body  *block
	sizes *layout.Calculator
	regs  int
	dir   abi.Direction
	mode  abi.Mode
}

// Compile translates fn and records the result.
func Compile(dir abi.Direction, mode abi.Mode, fn *types.Function, opts ...CompilerOption) (*Program, error) {
	c := NewCompiler(opts...)
	if err := abi.Translate[Reg](c, dir, mode, fn, abi.Options{}); err != nil {
		return nil, err
	}
	return c.program(dir, mode, fn)
}

// CompilePostReturn records the post-return function of an export.
func CompilePostReturn(fn *types.Function, opts ...CompilerOption) (*Program, error) {
	c := NewCompiler(opts...)
	if err := abi.TranslatePostReturn[Reg](c, fn, abi.Options{}); err != nil {
		return nil, err
	}
	return c.program(abi.Export, abi.LiftArgsLowerResults, fn)
}

func (c *Compiler) program(dir abi.Direction, mode abi.Mode, fn *types.Function) (*Program, error) {
	if len(c.open) != 1 || len(c.finished) != 0 {
		return nil, errors.UnbalancedBlock(errors.PhaseEval, "recorded stream left blocks open")
	}
	Logger().Debug("compile",
		zap.String("func", fn.Name),
		zap.Stringer("direction", dir),
		zap.Stringer("mode", mode),
		zap.Int("steps", len(c.open[0].steps)),
		zap.Int("registers", c.regs))
	return &Program{
		fn:    fn,
		body:  c.open[0],
		sizes: c.sizes,
		regs:  c.regs,
		dir:   dir,
		mode:  mode,
	}, nil
}

// Steps returns the number of top-level steps, mostly for diagnostics.
func (p *Program) Steps() int {
	return len(p.body.steps)
}

// Function returns the function the program was compiled from.
func (p *Program) Function() *types.Function {
	return p.fn
}
