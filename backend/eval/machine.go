package eval

import (
	"context"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/bindgen"
	"github.com/wippyai/bindgen/abi"
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/internal/memory"
	"github.com/wippyai/bindgen/resource"
	"github.com/wippyai/bindgen/types"
)

// WasmFunc is called for CallWasm. Parameters and results use wazero's
// uint64 encoding, so an api.Function's Call method fits directly.
type WasmFunc func(ctx context.Context, name string, params []uint64) ([]uint64, error)

// InterfaceFunc is called for CallInterface with lifted source values.
type InterfaceFunc func(ctx context.Context, fn *types.Function, args []any) ([]any, error)

// Env is the world a Program runs against.
type Env struct {
	Memory    bindgen.Memory
	Alloc     bindgen.Allocator
	Table     *resource.Table
	Wasm      WasmFunc
	Interface InterfaceFunc
}

type iterFrame struct {
	elem any
	base uint32
}

type machine struct {
	ctx      context.Context
	log      *zap.Logger
	env      *Env
	prog     *Program
	regs     []any
	iters    []iterFrame
	payloads []any
	scratch  *memory.AllocationList
	borrowed *memory.AllocationList
	lent     []resource.Handle
	result   []any
	owned    bool
}

// Run executes the program. Arguments are source values when the program
// lowers arguments and flat uint64 values when it lifts them; results
// follow the opposite convention.
func (p *Program) Run(ctx context.Context, env *Env, args []any) (results []any, err error) {
	m := &machine{
		ctx:      ctx,
		log:      Logger(),
		env:      env,
		prog:     p,
		regs:     make([]any, p.regs),
		scratch:  memory.NewAllocationList(),
		borrowed: memory.NewAllocationList(),
		// Lifted strings and lists are copied, so memory handed over with
		// ownership is released right after.
		owned: (p.dir == abi.Export && p.mode == abi.LiftArgsLowerResults) ||
			(p.dir == abi.Import && p.mode == abi.LowerArgsLiftResults),
	}
	defer func() {
		// Borrows lowered by this run live for the call only.
		for _, h := range m.lent {
			if err := env.Table.ReleaseBorrow(h); err != nil {
				m.log.Debug("release borrow", zap.Uint32("handle", uint32(h)), zap.Error(err))
			}
		}
		m.borrowed.Free(env.Alloc)
		if p.dir == abi.Import {
			m.scratch.Free(env.Alloc)
		}
	}()

	m.log.Debug("run",
		zap.String("func", p.fn.Name),
		zap.Stringer("direction", p.dir),
		zap.Stringer("mode", p.mode),
		zap.Int("args", len(args)))
	if _, err := m.run(p.body, args); err != nil {
		m.log.Debug("run failed", zap.String("func", p.fn.Name), zap.Error(err))
		return nil, err
	}
	return m.result, nil
}

func (m *machine) run(b *block, args []any) ([]any, error) {
	for i := range b.steps {
		if err := m.exec(&b.steps[i], args); err != nil {
			return nil, err
		}
	}
	out := make([]any, len(b.results))
	for i, r := range b.results {
		out[i] = m.regs[r]
	}
	return out, nil
}

func (m *machine) set(st *step, vals ...any) {
	for i, v := range vals {
		m.regs[st.outs[i]] = v
	}
}

func (m *machine) arg(st *step, i int) any {
	return m.regs[st.args[i]]
}

func (m *machine) flat(st *step, i int) uint64 {
	v, _ := m.regs[st.args[i]].(uint64)
	return v
}

func (m *machine) addr(st *step, i int) uint32 {
	return api.DecodeU32(m.flat(st, i)) + st.inst.Offset
}

func (m *machine) allocate(size, align uint32) (uint32, error) {
	if m.env.Alloc == nil {
		return 0, errors.InvalidInput(errors.PhaseEval, "no allocator")
	}
	return m.env.Alloc.Alloc(size, align)
}

func (m *machine) exec(st *step, args []any) error {
	inst := &st.inst

	if st.retptr {
		ptr, err := m.allocate(inst.Size, inst.Align)
		if err != nil {
			return err
		}
		m.scratch.Add(ptr, inst.Size, inst.Align)
		m.set(st, api.EncodeU32(ptr))
		return nil
	}

	switch op := inst.Op; {
	case op.IsLoad():
		return m.load(st)
	case op.IsStore():
		return m.store(st)
	}

	switch inst.Op {
	case abi.OpGetArg:
		if inst.Nth >= len(args) {
			return errors.New(errors.PhaseEval, errors.KindInvalidInput).
				Detail("argument %d of %d", inst.Nth, len(args)).
				Build()
		}
		m.set(st, args[inst.Nth])
	case abi.OpI32Const:
		m.set(st, api.EncodeI32(inst.Val))
	case abi.OpConstZero:
		for i := range inst.Tys {
			m.regs[st.outs[i]] = uint64(0)
		}
	case abi.OpBitcasts:
		for i, c := range inst.Casts {
			m.regs[st.outs[i]] = bitcast(c, m.flat(st, i))
		}

	case abi.OpIterElem:
		m.set(st, m.iters[len(m.iters)-1].elem)
	case abi.OpIterBasePointer:
		m.set(st, api.EncodeU32(m.iters[len(m.iters)-1].base))
	case abi.OpVariantPayloadName:
		m.set(st, m.payloads[len(m.payloads)-1])

	case abi.OpStringLower:
		return m.lowerString(st)
	case abi.OpStringLift:
		return m.liftString(st)
	case abi.OpListCanonLower:
		return m.lowerBytes(st)
	case abi.OpListCanonLift:
		return m.liftBytes(st)
	case abi.OpListLower:
		return m.lowerList(st)
	case abi.OpListLift:
		return m.liftList(st)

	case abi.OpRecordLower, abi.OpTupleLower:
		fields, ok := m.arg(st, 0).([]any)
		if !ok || len(fields) != len(st.outs) {
			return errors.TypeMismatch(errors.PhaseEval, nil, inst.Def.String(), m.arg(st, 0))
		}
		m.set(st, fields...)
	case abi.OpRecordLift, abi.OpTupleLift:
		fields := make([]any, len(st.args))
		for i := range st.args {
			fields[i] = m.arg(st, i)
		}
		m.set(st, fields)

	case abi.OpFlagsLower:
		return m.lowerFlags(st)
	case abi.OpFlagsLift:
		return m.liftFlags(st)
	case abi.OpEnumLower:
		disc, ok := m.arg(st, 0).(uint32)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEval, nil, inst.Def.String(), m.arg(st, 0))
		}
		m.set(st, api.EncodeU32(disc))
	case abi.OpEnumLift:
		disc := api.DecodeU32(m.flat(st, 0))
		if n := len(inst.Def.Resolve().(*types.Enum).Cases); disc >= uint32(n) {
			return errors.InvalidDiscriminant(errors.PhaseEval, nil, disc, uint32(n-1))
		}
		m.set(st, disc)

	case abi.OpVariantLower, abi.OpUnionLower, abi.OpOptionLower, abi.OpResultLower:
		return m.lowerVariant(st)
	case abi.OpVariantLift, abi.OpUnionLift, abi.OpOptionLift, abi.OpResultLift:
		return m.liftVariant(st)

	case abi.OpI32FromOwnHandle, abi.OpI32FromBorrowHandle, abi.OpOwnHandleFromI32, abi.OpBorrowHandleFromI32:
		return m.handle(st)

	case abi.OpCallWasm:
		return m.callWasm(st)
	case abi.OpCallInterface:
		return m.callInterface(st)
	case abi.OpReturn:
		m.result = make([]any, len(st.args))
		for i := range st.args {
			m.result[i] = m.arg(st, i)
		}

	case abi.OpMalloc:
		ptr, err := m.allocate(inst.Size, inst.Align)
		if err != nil {
			return err
		}
		m.set(st, api.EncodeU32(ptr))
	case abi.OpGuestDeallocate:
		m.free(api.DecodeU32(m.flat(st, 0)), inst.Size, inst.Align)
	case abi.OpGuestDeallocateString:
		m.free(api.DecodeU32(m.flat(st, 0)), api.DecodeU32(m.flat(st, 1)), 1)
	case abi.OpGuestDeallocateList:
		return m.deallocateList(st)
	case abi.OpGuestDeallocateVariant:
		disc := api.DecodeU32(m.flat(st, 0))
		if disc >= uint32(len(st.blocks)) {
			return errors.InvalidDiscriminant(errors.PhaseEval, nil, disc, uint32(len(st.blocks)-1))
		}
		_, err := m.run(st.blocks[disc], nil)
		return err

	default:
		return m.scalar(st)
	}
	return nil
}

func (m *machine) free(ptr, size, align uint32) {
	// Zero-sized blocks own no memory and may share an address with a
	// later allocation.
	if size != 0 && m.env.Alloc != nil {
		m.env.Alloc.Free(ptr, size, align)
	}
}

func bitcast(c abi.Bitcast, v uint64) uint64 {
	switch c {
	case abi.I64ToI32, abi.I64ToF32:
		return uint64(uint32(v))
	default:
		// Other casts keep the bit pattern: 32-bit values already sit
		// zero-extended in the low half.
		return v
	}
}

func (m *machine) load(st *step) error {
	mem := m.env.Memory
	addr := m.addr(st, 0)
	var v uint64
	switch st.inst.Op {
	case abi.OpI32Load8U:
		b, err := mem.ReadU8(addr)
		if err != nil {
			return err
		}
		v = uint64(b)
	case abi.OpI32Load8S:
		b, err := mem.ReadU8(addr)
		if err != nil {
			return err
		}
		v = api.EncodeI32(int32(int8(b)))
	case abi.OpI32Load16U:
		h, err := mem.ReadU16(addr)
		if err != nil {
			return err
		}
		v = uint64(h)
	case abi.OpI32Load16S:
		h, err := mem.ReadU16(addr)
		if err != nil {
			return err
		}
		v = api.EncodeI32(int32(int16(h)))
	case abi.OpI32Load, abi.OpF32Load:
		w, err := mem.ReadU32(addr)
		if err != nil {
			return err
		}
		v = uint64(w)
	case abi.OpI64Load, abi.OpF64Load:
		d, err := mem.ReadU64(addr)
		if err != nil {
			return err
		}
		v = d
	}
	m.set(st, v)
	return nil
}

func (m *machine) store(st *step) error {
	mem := m.env.Memory
	v := m.flat(st, 0)
	addr := m.addr(st, 1)
	switch st.inst.Op {
	case abi.OpI32Store8:
		return mem.WriteU8(addr, uint8(v))
	case abi.OpI32Store16:
		return mem.WriteU16(addr, uint16(v))
	case abi.OpI32Store, abi.OpF32Store:
		return mem.WriteU32(addr, uint32(v))
	default:
		return mem.WriteU64(addr, v)
	}
}

func (m *machine) readRange(ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	data, err := m.env.Memory.Read(ptr, length)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// place copies data into freshly allocated memory. Allocations for
// borrowed arguments are released when the run ends.
func (m *machine) place(data []byte, align uint32, realloc string) (uint32, error) {
	ptr, err := m.allocate(uint32(len(data)), align)
	if err != nil {
		return 0, err
	}
	if realloc == "" {
		m.borrowed.Add(ptr, uint32(len(data)), align)
	}
	if len(data) > 0 {
		if err := m.env.Memory.Write(ptr, data); err != nil {
			return 0, err
		}
	}
	return ptr, nil
}

func (m *machine) lowerString(st *step) error {
	s, ok := m.arg(st, 0).(string)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEval, nil, "string", m.arg(st, 0))
	}
	ptr, err := m.place([]byte(s), 1, st.inst.Realloc)
	if err != nil {
		return err
	}
	m.set(st, api.EncodeU32(ptr), api.EncodeU32(uint32(len(s))))
	return nil
}

func (m *machine) liftString(st *step) error {
	ptr, length := api.DecodeU32(m.flat(st, 0)), api.DecodeU32(m.flat(st, 1))
	data, err := m.readRange(ptr, length)
	if err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return errors.New(errors.PhaseEval, errors.KindInvalidData).
			Type("string").
			Value(ptr).
			Detail("invalid UTF-8 at %d", ptr).
			Build()
	}
	if m.owned {
		m.free(ptr, length, 1)
	}
	m.set(st, string(data))
	return nil
}

func (m *machine) lowerBytes(st *step) error {
	if !isByte(st.inst.Elem) {
		return errors.NotImplemented(errors.PhaseEval, "canonical list<"+st.inst.Elem.String()+">")
	}
	data, ok := m.arg(st, 0).([]byte)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEval, nil, "list<u8>", m.arg(st, 0))
	}
	ptr, err := m.place(data, 1, st.inst.Realloc)
	if err != nil {
		return err
	}
	m.set(st, api.EncodeU32(ptr), api.EncodeU32(uint32(len(data))))
	return nil
}

func (m *machine) liftBytes(st *step) error {
	if !isByte(st.inst.Elem) {
		return errors.NotImplemented(errors.PhaseEval, "canonical list<"+st.inst.Elem.String()+">")
	}
	ptr, length := api.DecodeU32(m.flat(st, 0)), api.DecodeU32(m.flat(st, 1))
	data, err := m.readRange(ptr, length)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	if m.owned {
		m.free(ptr, length, 1)
	}
	m.set(st, data)
	return nil
}

func (m *machine) lowerList(st *step) error {
	elems, ok := m.arg(st, 0).([]any)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEval, nil, st.inst.Def.String(), m.arg(st, 0))
	}
	size := m.prog.sizes.Size(st.inst.Elem)
	align := m.prog.sizes.Align(st.inst.Elem)
	total := size * uint32(len(elems))

	ptr, err := m.allocate(total, align)
	if err != nil {
		return err
	}
	if st.inst.Realloc == "" {
		m.borrowed.Add(ptr, total, align)
	}

	for i, e := range elems {
		m.iters = append(m.iters, iterFrame{elem: e, base: ptr + uint32(i)*size})
		_, err := m.run(st.blocks[0], nil)
		m.iters = m.iters[:len(m.iters)-1]
		if err != nil {
			return err
		}
	}
	m.set(st, api.EncodeU32(ptr), api.EncodeU32(uint32(len(elems))))
	return nil
}

func (m *machine) liftList(st *step) error {
	ptr, length := api.DecodeU32(m.flat(st, 0)), api.DecodeU32(m.flat(st, 1))
	size := m.prog.sizes.Size(st.inst.Elem)
	align := m.prog.sizes.Align(st.inst.Elem)

	elems := make([]any, length)
	for i := range elems {
		m.iters = append(m.iters, iterFrame{base: ptr + uint32(i)*size})
		out, err := m.run(st.blocks[0], nil)
		m.iters = m.iters[:len(m.iters)-1]
		if err != nil {
			return err
		}
		elems[i] = out[0]
	}
	if m.owned {
		m.free(ptr, size*length, align)
	}
	m.set(st, elems)
	return nil
}

func (m *machine) deallocateList(st *step) error {
	ptr, length := api.DecodeU32(m.flat(st, 0)), api.DecodeU32(m.flat(st, 1))
	size := m.prog.sizes.Size(st.inst.Elem)
	align := m.prog.sizes.Align(st.inst.Elem)
	for i := uint32(0); i < length; i++ {
		m.iters = append(m.iters, iterFrame{base: ptr + i*size})
		_, err := m.run(st.blocks[0], nil)
		m.iters = m.iters[:len(m.iters)-1]
		if err != nil {
			return err
		}
	}
	m.free(ptr, size*length, align)
	return nil
}

func (m *machine) lowerFlags(st *step) error {
	flags, ok := m.arg(st, 0).([]bool)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEval, nil, st.inst.Def.String(), m.arg(st, 0))
	}
	lanes := make([]any, len(st.outs))
	for i := range lanes {
		var bits uint32
		for j := 0; j < 32; j++ {
			if k := i*32 + j; k < len(flags) && flags[k] {
				bits |= 1 << j
			}
		}
		lanes[i] = api.EncodeU32(bits)
	}
	m.set(st, lanes...)
	return nil
}

func (m *machine) liftFlags(st *step) error {
	n := len(st.inst.Def.Resolve().(*types.Flags).Flags)
	flags := make([]bool, n)
	for k := range flags {
		lane := api.DecodeU32(m.flat(st, k/32))
		flags[k] = lane&(1<<(k%32)) != 0
	}
	m.set(st, flags)
	return nil
}

func (m *machine) lowerVariant(st *step) error {
	c, ok := m.arg(st, 0).(Case)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEval, nil, st.inst.Def.String(), m.arg(st, 0))
	}
	if c.Index >= uint32(len(st.blocks)) {
		return errors.InvalidDiscriminant(errors.PhaseEval, nil, c.Index, uint32(len(st.blocks)-1))
	}
	m.payloads = append(m.payloads, c.Payload)
	out, err := m.run(st.blocks[c.Index], nil)
	m.payloads = m.payloads[:len(m.payloads)-1]
	if err != nil {
		return err
	}
	m.set(st, out...)
	return nil
}

func (m *machine) liftVariant(st *step) error {
	disc := api.DecodeU32(m.flat(st, 0))
	if disc >= uint32(len(st.blocks)) {
		return errors.InvalidDiscriminant(errors.PhaseEval, nil, disc, uint32(len(st.blocks)-1))
	}
	out, err := m.run(st.blocks[disc], nil)
	if err != nil {
		return err
	}
	c := Case{Index: disc}
	if len(out) > 0 {
		c.Payload = out[0]
	}
	m.set(st, c)
	return nil
}

func handleResource(td *types.TypeDef) *types.TypeDef {
	switch kind := td.Resolve().(type) {
	case *types.Own:
		return kind.Resource
	case *types.Borrow:
		return kind.Resource
	}
	return nil
}

func (m *machine) handle(st *step) error {
	table := m.env.Table
	if table == nil {
		return errors.InvalidInput(errors.PhaseEval, "no handle table")
	}
	res := handleResource(st.inst.Def)

	switch st.inst.Op {
	case abi.OpI32FromOwnHandle:
		v, ok := m.arg(st, 0).(Own)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEval, nil, st.inst.Def.String(), m.arg(st, 0))
		}
		h, err := table.NewOwn(res, v.Rep)
		if err != nil {
			return err
		}
		m.set(st, api.EncodeU32(uint32(h)))
	case abi.OpI32FromBorrowHandle:
		v, ok := m.arg(st, 0).(Borrow)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEval, nil, st.inst.Def.String(), m.arg(st, 0))
		}
		var h resource.Handle
		var err error
		if v.Lender != 0 {
			h, err = table.Lend(v.Lender, res)
		} else {
			h, err = table.NewBorrow(res, v.Rep)
		}
		if err != nil {
			return err
		}
		m.lent = append(m.lent, h)
		m.set(st, api.EncodeU32(uint32(h)))
	case abi.OpOwnHandleFromI32:
		rep, err := table.Take(resource.Handle(api.DecodeU32(m.flat(st, 0))), res)
		if err != nil {
			return err
		}
		m.set(st, Own{Rep: rep})
	case abi.OpBorrowHandleFromI32:
		rep, err := table.Rep(resource.Handle(api.DecodeU32(m.flat(st, 0))), res)
		if err != nil {
			return err
		}
		m.set(st, Borrow{Rep: rep})
	}
	return nil
}

func (m *machine) callWasm(st *step) error {
	if m.env.Wasm == nil {
		return errors.NotFound(errors.PhaseEval, "wasm function", st.inst.Name)
	}
	params := make([]uint64, len(st.args))
	for i := range params {
		params[i] = m.flat(st, i)
	}
	m.log.Debug("call wasm", zap.String("func", st.inst.Name), zap.Uint64s("params", params))
	results, err := m.env.Wasm(m.ctx, st.inst.Name, params)
	if err != nil {
		return errors.Wrap(errors.PhaseEval, errors.KindInvalidData, err, "call "+st.inst.Name)
	}
	if len(results) != len(st.outs) {
		return errors.StackMismatch(errors.PhaseEval, "results of "+st.inst.Name, len(st.outs), len(results))
	}
	for i, r := range results {
		m.regs[st.outs[i]] = r
	}
	return nil
}

func (m *machine) callInterface(st *step) error {
	fn := st.inst.Func
	if m.env.Interface == nil {
		return errors.NotFound(errors.PhaseEval, "interface function", fn.Name)
	}
	args := make([]any, len(st.args))
	for i := range args {
		args[i] = m.arg(st, i)
	}
	m.log.Debug("call interface", zap.String("func", fn.Name), zap.Int("args", len(args)))
	results, err := m.env.Interface(m.ctx, fn, args)
	if err != nil {
		return errors.Wrap(errors.PhaseEval, errors.KindInvalidData, err, "call "+fn.Name)
	}
	if len(results) != len(st.outs) {
		return errors.StackMismatch(errors.PhaseEval, "results of "+fn.Name, len(st.outs), len(results))
	}
	m.set(st, results...)
	return nil
}
