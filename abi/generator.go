package abi

import (
	"go.uber.org/zap"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/layout"
	"github.com/wippyai/bindgen/types"
)

type blockFrame struct {
	height   int
	finished int
}

// Generator drives a Bindgen through the instruction stream of one
// function. A Generator is single use and not safe for concurrent use.
type Generator[O any] struct {
	bindgen Bindgen[O]
	sizes   *layout.Calculator
	log     *zap.Logger
	realloc string
	stack   []O
	blocks  []blockFrame
	retptr  O
	root    blockFrame
	dir     Direction
	mode    Mode
	hasRet  bool
	used    bool
}

// NewGenerator creates a generator for one direction and mode.
func NewGenerator[O any](b Bindgen[O], dir Direction, mode Mode, opts Options) *Generator[O] {
	sizes := b.Sizes()
	if sizes == nil {
		sizes = layout.NewCalculator()
	}
	return &Generator[O]{
		bindgen: b,
		sizes:   sizes,
		log:     Logger(),
		realloc: opts.realloc(),
		dir:     dir,
		mode:    mode,
	}
}

// Call emits the full translation of fn. Violations of the stack or block
// discipline panic with *errors.Error; use Translate to get them as errors.
func Call[O any](b Bindgen[O], dir Direction, mode Mode, fn *types.Function) {
	NewGenerator(b, dir, mode, Options{}).Call(fn)
}

// PostReturn emits the cleanup function of an export: it frees everything
// the lowered results own.
func PostReturn[O any](b Bindgen[O], fn *types.Function) {
	NewGenerator(b, Export, LiftArgsLowerResults, Options{}).PostReturn(fn)
}

func (g *Generator[O]) start(fn *types.Function) {
	if g.used {
		panic(errors.InvalidInput(errors.PhaseGenerate, "generator reused"))
	}
	g.used = true
	if len(g.stack) != 0 {
		panic(errors.StackMismatch(errors.PhaseGenerate, "stack at entry", 0, len(g.stack)))
	}
	g.log.Debug("translate",
		zap.String("func", fn.Name),
		zap.Stringer("direction", g.dir),
		zap.Stringer("mode", g.mode))
}

func (g *Generator[O]) finish(fn *types.Function) {
	if len(g.stack) != 0 {
		panic(errors.StackMismatch(errors.PhaseGenerate, "stack at exit of "+fn.Name, 0, len(g.stack)))
	}
	if len(g.blocks) != 0 {
		panic(errors.UnbalancedBlock(errors.PhaseGenerate, "block left open at exit of "+fn.Name))
	}
	if g.root.finished != 0 {
		panic(errors.UnbalancedBlock(errors.PhaseGenerate, "finished block never consumed"))
	}
	g.log.Debug("translated", zap.String("func", fn.Name))
}

// Call emits the translation of fn for the generator's direction and mode.
func (g *Generator[O]) Call(fn *types.Function) {
	g.start(fn)
	sig := Signature(g.dir, fn)

	switch g.mode {
	case LowerArgsLiftResults:
		g.lowerArgs(fn, sig)
		g.emit(&Instruction{Op: OpCallWasm, Name: fn.Name, Sig: sig})
		g.liftResults(fn, sig)
	case LiftArgsLowerResults:
		g.liftArgs(fn, sig)
		g.emit(&Instruction{Op: OpCallInterface, Func: fn})
		g.lowerResults(fn, sig)
	}

	g.finish(fn)
}

func (g *Generator[O]) lowerArgs(fn *types.Function, sig *WasmSignature) {
	if !sig.IndirectParams {
		for i, p := range fn.Params {
			g.emit(&Instruction{Op: OpGetArg, Nth: i})
			g.lower(p.Type)
		}
	} else {
		info := g.sizes.Record(fn.ParamTypes())
		var ptr O
		switch g.dir {
		case Import:
			ptr = g.bindgen.ReturnPointer(info.Size, info.Align)
		case Export:
			g.emit(&Instruction{Op: OpMalloc, Realloc: g.realloc, Size: info.Size, Align: info.Align})
			ptr = g.pop()
		}
		for i, p := range fn.Params {
			g.emit(&Instruction{Op: OpGetArg, Nth: i})
			g.writeToMemory(p.Type, ptr, info.Offsets[i])
		}
		g.push(ptr)
	}

	if sig.RetPtr != nil && g.dir == Import {
		info := g.sizes.Record(fn.ResultTypes())
		g.retptr = g.bindgen.ReturnPointer(info.Size, info.Align)
		g.hasRet = true
		g.push(g.retptr)
	}
}

func (g *Generator[O]) liftResults(fn *types.Function, sig *WasmSignature) {
	results := fn.ResultTypes()
	if sig.RetPtr == nil {
		g.liftFlat(results, g.popN(len(sig.Results)))
	} else {
		var ptr O
		if g.dir == Import {
			ptr = g.retptr
		} else {
			ptr = g.pop()
		}
		g.readFields(results, ptr, 0)
	}
	g.emit(&Instruction{Op: OpReturn, Amt: len(results)})
}

func (g *Generator[O]) liftArgs(fn *types.Function, sig *WasmSignature) {
	params := fn.ParamTypes()
	if !sig.IndirectParams {
		nth := 0
		for _, ty := range params {
			for range Flatten(ty) {
				g.emit(&Instruction{Op: OpGetArg, Nth: nth})
				nth++
			}
			g.lift(ty)
		}
		return
	}

	g.emit(&Instruction{Op: OpGetArg, Nth: 0})
	ptr := g.pop()
	info := g.sizes.Record(params)
	for i, ty := range params {
		g.readFromMemory(ty, ptr, info.Offsets[i])
	}
	if g.dir == Export {
		// The caller allocated the argument area with realloc and handed
		// it over.
		g.push(ptr)
		g.emit(&Instruction{Op: OpGuestDeallocate, Size: info.Size, Align: info.Align})
	}
}

func (g *Generator[O]) lowerResults(fn *types.Function, sig *WasmSignature) {
	results := fn.ResultTypes()
	values := g.popN(len(results))

	if sig.RetPtr == nil {
		for i, ty := range results {
			g.push(values[i])
			g.lower(ty)
		}
		g.emit(&Instruction{Op: OpReturn, Amt: len(sig.Results)})
		return
	}

	info := g.sizes.Record(results)
	switch g.dir {
	case Import:
		// The caller passed the destination as the trailing parameter.
		g.emit(&Instruction{Op: OpGetArg, Nth: len(sig.Params) - 1})
		ptr := g.pop()
		for i, ty := range results {
			g.push(values[i])
			g.writeToMemory(ty, ptr, info.Offsets[i])
		}
		g.emit(&Instruction{Op: OpReturn, Amt: 0})
	case Export:
		ptr := g.bindgen.ReturnPointer(info.Size, info.Align)
		for i, ty := range results {
			g.push(values[i])
			g.writeToMemory(ty, ptr, info.Offsets[i])
		}
		g.push(ptr)
		g.emit(&Instruction{Op: OpReturn, Amt: 1})
	}
}

// PostReturn emits the post-return function of fn, which takes the pointer
// an export returned and frees the memory its results own. Functions whose
// results are returned flat get a bare Return.
func (g *Generator[O]) PostReturn(fn *types.Function) {
	g.start(fn)
	if g.dir != Export {
		panic(errors.InvalidInput(errors.PhaseGenerate, "post-return only exists for exports"))
	}

	sig := Signature(Export, fn)
	if sig.RetPtr != nil {
		results := fn.ResultTypes()
		info := g.sizes.Record(results)
		addr := g.emit(&Instruction{Op: OpGetArg, Nth: 0})[0]
		g.pop()
		for i, ty := range results {
			if NeedsPostReturn(ty) {
				g.deallocate(ty, addr, info.Offsets[i])
			}
		}
	}
	g.emit(&Instruction{Op: OpReturn, Amt: 0})

	g.finish(fn)
}

func (g *Generator[O]) emit(inst *Instruction) []O {
	want, produce := inst.Arity()
	if len(g.stack) < want {
		panic(errors.StackMismatch(errors.PhaseGenerate, inst.Op.String(), want, len(g.stack)))
	}

	frame := g.frame()
	if frame.finished != inst.Blocks() {
		panic(errors.New(errors.PhaseGenerate, errors.KindUnbalancedBlock).
			Detail("%s consumes %d blocks, %d finished", inst.Op, inst.Blocks(), frame.finished).
			Build())
	}
	frame.finished = 0

	operands := make([]O, want)
	copy(operands, g.stack[len(g.stack)-want:])
	g.stack = g.stack[:len(g.stack)-want]

	results := g.bindgen.Emit(inst, operands)
	if len(results) != produce {
		panic(errors.StackMismatch(errors.PhaseGenerate, inst.Op.String()+" results", produce, len(results)))
	}
	g.stack = append(g.stack, results...)
	return results
}

func (g *Generator[O]) frame() *blockFrame {
	if len(g.blocks) == 0 {
		return &g.root
	}
	return &g.blocks[len(g.blocks)-1]
}

func (g *Generator[O]) pushBlock() {
	g.blocks = append(g.blocks, blockFrame{height: len(g.stack)})
	g.log.Debug("push block", zap.Int("depth", len(g.blocks)))
	g.bindgen.PushBlock()
}

func (g *Generator[O]) finishBlock(n int) {
	if len(g.blocks) == 0 {
		panic(errors.UnbalancedBlock(errors.PhaseGenerate, "finish without push"))
	}
	top := g.blocks[len(g.blocks)-1]
	if top.finished != 0 {
		panic(errors.UnbalancedBlock(errors.PhaseGenerate, "nested block never consumed"))
	}
	if len(g.stack) != top.height+n {
		panic(errors.StackMismatch(errors.PhaseGenerate, "block result", top.height+n, len(g.stack)))
	}
	g.blocks = g.blocks[:len(g.blocks)-1]

	operands := g.popN(n)
	g.log.Debug("finish block", zap.Int("depth", len(g.blocks)+1), zap.Int("results", n))
	g.bindgen.FinishBlock(operands)
	g.frame().finished++
}

func (g *Generator[O]) push(op O) {
	g.stack = append(g.stack, op)
}

func (g *Generator[O]) pop() O {
	return g.popN(1)[0]
}

func (g *Generator[O]) popN(n int) []O {
	if len(g.stack) < n {
		panic(errors.StackMismatch(errors.PhaseGenerate, "pop", n, len(g.stack)))
	}
	if len(g.blocks) > 0 && len(g.stack)-n < g.blocks[len(g.blocks)-1].height {
		panic(errors.UnbalancedBlock(errors.PhaseGenerate, "pop below block entry"))
	}
	out := make([]O, n)
	copy(out, g.stack[len(g.stack)-n:])
	g.stack = g.stack[:len(g.stack)-n]
	return out
}

// liftFlat lifts each type from its share of already popped flat values.
func (g *Generator[O]) liftFlat(tys []types.Type, flat []O) {
	next := 0
	for _, ty := range tys {
		n := len(Flatten(ty))
		for _, v := range flat[next : next+n] {
			g.push(v)
		}
		next += n
		g.lift(ty)
	}
}

// reallocFor names the function that allocates lowered strings and lists.
// Arguments an import lowers are borrowed by the callee, so nothing is
// allocated on its behalf.
func (g *Generator[O]) reallocFor() string {
	if g.dir == Import && g.mode == LowerArgsLiftResults {
		return ""
	}
	return g.realloc
}
