package sigparse

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/types"
)

// File is the result of parsing a signature file.
type File struct {
	Types map[string]*types.TypeDef
	Funcs []*types.Function
}

// Func returns the function with the given name.
func (f *File) Func(name string) (*types.Function, bool) {
	for _, fn := range f.Funcs {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

type parser struct {
	defs   map[string]*types.TypeDef
	tokens []token
	pos    int
}

func newParser(src string) (*parser, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	return &parser{tokens: tokens, defs: make(map[string]*types.TypeDef)}, nil
}

// Parse parses a single function signature such as
// "greet: func(name: string) -> string".
func Parse(src string) (*types.Function, error) {
	return ParseWith(src, nil)
}

// ParseWith parses a single function signature, resolving named types
// against defs.
func ParseWith(src string, defs map[string]*types.TypeDef) (*types.Function, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, errors.ParseFailed("signature", err)
	}
	for name, td := range defs {
		p.defs[name] = td
	}
	fn, err := p.parseFunc()
	if err == nil && p.peek() != nil {
		err = p.errorf(p.peek(), "trailing input %q", p.peek().Value)
	}
	if err != nil {
		return nil, errors.ParseFailed("signature", err)
	}
	return fn, nil
}

// ParseFile parses a sequence of declarations:
//
//	resource file
//	type point = record { x: f32, y: f32 }
//	move: func(p: point, dx: f32) -> point
//	[method]file.read: func(self: borrow<file>, n: u32) -> list<u8>
//
// Declarations may be separated by newlines or semicolons. Types must be
// declared before they are used.
func ParseFile(src string) (*File, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, errors.ParseFailed("file", err)
	}
	file, err := p.parseFile()
	if err != nil {
		return nil, errors.ParseFailed("file", err)
	}
	return file, nil
}

func (p *parser) parseFile() (*File, error) {
	file := &File{Types: p.defs}
	for p.peek() != nil {
		if p.accept(";") {
			continue
		}
		t := p.peek()
		next := p.peekAt(1)
		switch {
		case t.Value == "resource" && next != nil && next.Type == tokIdent:
			p.next()
			name := p.next().Value
			if err := p.declare(name, &types.TypeDef{Name: name, Kind: &types.Resource{}}); err != nil {
				return nil, err
			}
		case t.Value == "type" && next != nil && next.Type == tokIdent:
			p.next()
			name := p.next().Value
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			td, ok := ty.(*types.TypeDef)
			if !ok || td.Name != "" {
				td = &types.TypeDef{Kind: &types.Alias{Type: ty}}
			}
			td.Name = name
			if err := p.declare(name, td); err != nil {
				return nil, err
			}
		default:
			fn, err := p.parseFunc()
			if err != nil {
				return nil, err
			}
			if _, dup := file.Func(fn.Name); dup {
				return nil, p.errorf(t, "duplicate function %q", fn.Name)
			}
			file.Funcs = append(file.Funcs, fn)
		}
	}
	return file, nil
}

func (p *parser) declare(name string, td *types.TypeDef) error {
	if _, ok := p.defs[name]; ok {
		return fmt.Errorf("type %q declared twice", name)
	}
	p.defs[name] = td
	return nil
}

func (p *parser) parseFunc() (*types.Function, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("func"); err != nil {
		return nil, err
	}

	fn := &types.Function{Name: name.Value}
	if err := p.classify(fn); err != nil {
		return nil, err
	}

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if fn.Params, err = p.parseParams(")"); err != nil {
		return nil, err
	}

	if t := p.peek(); t != nil && t.Type == tokArrow {
		p.next()
		if p.accept("(") {
			if fn.Results, err = p.parseParams(")"); err != nil {
				return nil, err
			}
		} else {
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fn.Results = []types.Param{{Type: ty}}
		}
	}
	return fn, nil
}

// classify derives the function kind from the "[method]res.name" naming
// convention.
func (p *parser) classify(fn *types.Function) error {
	prefixes := []struct {
		prefix string
		kind   types.FunctionKind
	}{
		{"[method]", types.Method},
		{"[static]", types.Static},
		{"[constructor]", types.Constructor},
	}
	for _, pf := range prefixes {
		rest, ok := strings.CutPrefix(fn.Name, pf.prefix)
		if !ok {
			continue
		}
		res := rest
		if i := strings.IndexByte(rest, '.'); i >= 0 {
			res = rest[:i]
		}
		td, ok := p.defs[res]
		if !ok {
			return fmt.Errorf("function %q refers to unknown resource %q", fn.Name, res)
		}
		fn.Kind = pf.kind
		fn.Resource = td
		return nil
	}
	return nil
}

func (p *parser) parseParams(closer string) ([]types.Param, error) {
	var params []types.Param
	for !p.accept(closer) {
		if len(params) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
			// trailing comma
			if p.accept(closer) {
				break
			}
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, types.Param{Name: name.Value, Type: ty})
	}
	return params, nil
}

func (p *parser) parseType() (types.Type, error) {
	t, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	switch t.Value {
	case "list":
		elem, err := p.parseAngle1()
		if err != nil {
			return nil, err
		}
		return &types.TypeDef{Kind: &types.List{Type: elem}}, nil
	case "option":
		elem, err := p.parseAngle1()
		if err != nil {
			return nil, err
		}
		return &types.TypeDef{Kind: &types.Option{Type: elem}}, nil
	case "future":
		elem, err := p.parseOptionalAngle()
		if err != nil {
			return nil, err
		}
		return &types.TypeDef{Kind: &types.Future{Type: elem}}, nil
	case "stream":
		elem, err := p.parseOptionalAngle()
		if err != nil {
			return nil, err
		}
		return &types.TypeDef{Kind: &types.Stream{Type: elem}}, nil
	case "result":
		return p.parseResult()
	case "tuple":
		if err := p.expectPunct("<"); err != nil {
			return nil, err
		}
		elems, err := p.parseTypeList(">")
		if err != nil {
			return nil, err
		}
		return &types.TypeDef{Kind: &types.Tuple{Types: elems}}, nil
	case "own", "borrow":
		return p.parseHandle(t.Value == "own")
	case "record":
		return p.parseRecord()
	case "variant":
		return p.parseVariant()
	case "union":
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		elems, err := p.parseTypeList("}")
		if err != nil {
			return nil, err
		}
		u := &types.Union{Cases: make([]types.UnionCase, len(elems))}
		for i, e := range elems {
			u.Cases[i].Type = e
		}
		return &types.TypeDef{Kind: u}, nil
	case "enum":
		names, err := p.parseNames()
		if err != nil {
			return nil, err
		}
		return &types.TypeDef{Kind: &types.Enum{Cases: names}}, nil
	case "flags":
		names, err := p.parseNames()
		if err != nil {
			return nil, err
		}
		return &types.TypeDef{Kind: &types.Flags{Flags: names}}, nil
	}

	if td, ok := p.defs[t.Value]; ok {
		return td, nil
	}
	return primitive(t)
}

// primitive resolves the scalar type names through the WIT parser.
func primitive(t *token) (types.Type, error) {
	wt, err := wit.ParseType(t.Value)
	if err != nil {
		return nil, fmt.Errorf("line %d: unknown type %q", t.Line, t.Value)
	}
	ty, err := types.FromWIT(wt)
	if err != nil {
		return nil, err
	}
	if _, ok := ty.(*types.TypeDef); ok {
		return nil, fmt.Errorf("line %d: unknown type %q", t.Line, t.Value)
	}
	return ty, nil
}

func (p *parser) parseAngle1() (types.Type, error) {
	if err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	return elem, nil
}

func (p *parser) parseOptionalAngle() (types.Type, error) {
	if !p.peekPunct("<") {
		return nil, nil
	}
	return p.parseAngle1()
}

// parseResult accepts result, result<T>, result<_, E> and result<T, E>.
func (p *parser) parseResult() (types.Type, error) {
	r := &types.Result{}
	if !p.accept("<") {
		return &types.TypeDef{Kind: r}, nil
	}

	if !p.accept("_") {
		ok, err := p.parseType()
		if err != nil {
			return nil, err
		}
		r.OK = ok
	}
	if p.accept(",") {
		e, err := p.parseType()
		if err != nil {
			return nil, err
		}
		r.Err = e
	}
	if err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	return &types.TypeDef{Kind: r}, nil
}

func (p *parser) parseHandle(own bool) (types.Type, error) {
	if err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	res, ok := p.defs[name.Value]
	if !ok {
		return nil, p.errorf(name, "unknown resource %q", name.Value)
	}
	if own {
		return &types.TypeDef{Kind: &types.Own{Resource: res}}, nil
	}
	return &types.TypeDef{Kind: &types.Borrow{Resource: res}}, nil
}

func (p *parser) parseRecord() (types.Type, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	params, err := p.parseParams("}")
	if err != nil {
		return nil, err
	}
	r := &types.Record{Fields: make([]types.Field, len(params))}
	for i, f := range params {
		r.Fields[i] = types.Field{Name: f.Name, Type: f.Type}
	}
	return &types.TypeDef{Kind: r}, nil
}

// parseVariant accepts "variant { a, b(u32) }".
func (p *parser) parseVariant() (types.Type, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	v := &types.Variant{}
	for !p.accept("}") {
		if len(v.Cases) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
			if p.accept("}") {
				break
			}
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		c := types.Case{Name: name.Value}
		if p.accept("(") {
			if c.Type, err = p.parseType(); err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		v.Cases = append(v.Cases, c)
	}
	return &types.TypeDef{Kind: v}, nil
}

func (p *parser) parseNames() ([]string, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var names []string
	for !p.accept("}") {
		if len(names) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
			if p.accept("}") {
				break
			}
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, name.Value)
	}
	return names, nil
}

func (p *parser) parseTypeList(closer string) ([]types.Type, error) {
	var out []types.Type
	for !p.accept(closer) {
		if len(out) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, ty)
	}
	return out, nil
}

func (p *parser) peek() *token {
	return p.peekAt(0)
}

func (p *parser) peekAt(n int) *token {
	if p.pos+n >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+n]
}

func (p *parser) next() *token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) peekPunct(v string) bool {
	t := p.peek()
	return t != nil && t.Value == v && (t.Type == tokPunct || v == "_")
}

// accept consumes the next token if it is the punctuation v. The "_"
// placeholder of result<_, E> lexes as an identifier and is accepted too.
func (p *parser) accept(v string) bool {
	if p.peekPunct(v) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectPunct(v string) error {
	t := p.next()
	if t == nil {
		return fmt.Errorf("unexpected end of input, expected %q", v)
	}
	if t.Type != tokPunct || t.Value != v {
		return p.errorf(t, "expected %q, got %q", v, t.Value)
	}
	return nil
}

func (p *parser) expectIdent() (*token, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of input, expected %v", tokIdent)
	}
	if t.Type != tokIdent {
		return nil, p.errorf(t, "expected %v, got %q", tokIdent, t.Value)
	}
	return t, nil
}

func (p *parser) expectKeyword(kw string) error {
	t, err := p.expectIdent()
	if err != nil {
		return err
	}
	if t.Value != kw {
		return p.errorf(t, "expected %q, got %q", kw, t.Value)
	}
	return nil
}

func (p *parser) errorf(t *token, format string, args ...any) error {
	return fmt.Errorf("line %d: "+format, append([]any{t.Line}, args...)...)
}
