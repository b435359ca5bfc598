package text

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/bindgen/abi"
	"github.com/wippyai/bindgen/layout"
	"github.com/wippyai/bindgen/types"
)

const indentUnit = "  "

// Printer implements abi.Bindgen with value names as operands.
type Printer struct {
	sizes     *layout.Calculator
	canonical func(types.Type) bool
	b         strings.Builder
	depth     int
	next      int
}

// Option configures a Printer.
type Option func(*Printer)

// WithCanonicalLists overrides which list element types print as a single
// list_canon instruction. The default is abi.AllBitsValid.
func WithCanonicalLists(fn func(types.Type) bool) Option {
	return func(p *Printer) {
		p.canonical = fn
	}
}

// WithSizes shares a layout calculator.
func WithSizes(sizes *layout.Calculator) Option {
	return func(p *Printer) {
		p.sizes = sizes
	}
}

func New(opts ...Option) *Printer {
	p := &Printer{
		sizes:     layout.NewCalculator(),
		canonical: abi.AllBitsValid,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// String returns everything printed so far.
func (p *Printer) String() string {
	return p.b.String()
}

// Reset clears the output and restarts value numbering.
func (p *Printer) Reset() {
	p.b.Reset()
	p.depth = 0
	p.next = 0
}

func (p *Printer) Emit(inst *abi.Instruction, operands []string) []string {
	_, n := inst.Arity()
	results := make([]string, n)
	for i := range results {
		results[i] = p.value()
	}

	p.indent()
	if n > 0 {
		p.b.WriteString(strings.Join(results, ", "))
		p.b.WriteString(" = ")
	}
	p.b.WriteString(inst.Op.String())
	if attrs := attributes(inst); attrs != "" {
		p.b.WriteByte(' ')
		p.b.WriteString(attrs)
	}
	if len(operands) > 0 {
		p.b.WriteString(" (")
		p.b.WriteString(strings.Join(operands, ", "))
		p.b.WriteByte(')')
	}
	p.b.WriteByte('\n')
	return results
}

func (p *Printer) PushBlock() {
	p.indent()
	p.b.WriteString("block {\n")
	p.depth++
}

func (p *Printer) FinishBlock(operands []string) {
	if len(operands) > 0 {
		p.indent()
		p.b.WriteString("yield ")
		p.b.WriteString(strings.Join(operands, ", "))
		p.b.WriteByte('\n')
	}
	p.depth--
	p.indent()
	p.b.WriteString("}\n")
}

func (p *Printer) ReturnPointer(size, align uint32) string {
	v := p.value()
	p.indent()
	fmt.Fprintf(&p.b, "%s = return_pointer size=%d align=%d\n", v, size, align)
	return v
}

func (p *Printer) IsListCanonical(elem types.Type) bool {
	return p.canonical(elem)
}

func (p *Printer) Sizes() *layout.Calculator {
	return p.sizes
}

func (p *Printer) value() string {
	v := "v" + strconv.Itoa(p.next)
	p.next++
	return v
}

func (p *Printer) indent() {
	for range p.depth {
		p.b.WriteString(indentUnit)
	}
}

// attributes renders the payload fields relevant to inst.Op.
func attributes(inst *abi.Instruction) string {
	var attrs []string
	add := func(format string, args ...any) {
		attrs = append(attrs, fmt.Sprintf(format, args...))
	}

	switch op := inst.Op; {
	case op == abi.OpGetArg:
		add("nth=%d", inst.Nth)
	case op == abi.OpI32Const:
		add("%d", inst.Val)
	case op == abi.OpConstZero:
		add("%s", abi.FormatTypes(inst.Tys))
	case op == abi.OpBitcasts:
		casts := make([]string, len(inst.Casts))
		for i, c := range inst.Casts {
			casts[i] = c.String()
		}
		add("[%s]", strings.Join(casts, ", "))
	case op.IsLoad(), op.IsStore():
		add("offset=%d", inst.Offset)
	case op == abi.OpCallWasm:
		add("%s %s", inst.Name, inst.Sig)
	case op == abi.OpCallInterface:
		add("%s", inst.Func.Name)
	case op == abi.OpReturn:
		add("amt=%d", inst.Amt)
	case op == abi.OpMalloc, op == abi.OpGuestDeallocate:
		add("size=%d align=%d", inst.Size, inst.Align)
	}

	if inst.Def != nil {
		add("type=%s", inst.Def)
	} else if inst.Elem != nil {
		add("elem=%s", inst.Elem)
	}
	if inst.Realloc != "" {
		add("realloc=%s", inst.Realloc)
	}
	if len(inst.Results) > 0 {
		add("-> %s", abi.FormatTypes(inst.Results))
	}
	return strings.Join(attrs, " ")
}

// Render translates fn and returns the printed stream.
func Render(dir abi.Direction, mode abi.Mode, fn *types.Function, opts abi.Options) (string, error) {
	p := New()
	if err := abi.Translate[string](p, dir, mode, fn, opts); err != nil {
		return "", err
	}
	return p.String(), nil
}

// RenderPostReturn is Render for the post-return function of an export.
func RenderPostReturn(fn *types.Function, opts abi.Options) (string, error) {
	p := New()
	if err := abi.TranslatePostReturn[string](p, fn, opts); err != nil {
		return "", err
	}
	return p.String(), nil
}
