// Package types is the resolved interface type graph consumed by the ABI
// engine.
//
// The graph is a closed sum: Type is implemented by the primitive value
// types and *TypeDef, and TypeDefKind by the kinds declared in this file.
// Both interfaces carry unexported marker methods so every switch over them
// in this module is exhaustive over a known set.
package types

// Type is a primitive value type or a reference to a TypeDef.
type Type interface {
	isType()
	String() string
}

type (
	Bool   struct{}
	S8     struct{}
	U8     struct{}
	S16    struct{}
	U16    struct{}
	S32    struct{}
	U32    struct{}
	S64    struct{}
	U64    struct{}
	F32    struct{}
	F64    struct{}
	Char   struct{}
	String struct{}
)

func (Bool) isType()   {}
func (S8) isType()     {}
func (U8) isType()     {}
func (S16) isType()    {}
func (U16) isType()    {}
func (S32) isType()    {}
func (U32) isType()    {}
func (S64) isType()    {}
func (U64) isType()    {}
func (F32) isType()    {}
func (F64) isType()    {}
func (Char) isType()   {}
func (String) isType() {}

func (Bool) String() string   { return "bool" }
func (S8) String() string     { return "s8" }
func (U8) String() string     { return "u8" }
func (S16) String() string    { return "s16" }
func (U16) String() string    { return "u16" }
func (S32) String() string    { return "s32" }
func (U32) String() string    { return "u32" }
func (S64) String() string    { return "s64" }
func (U64) String() string    { return "u64" }
func (F32) String() string    { return "f32" }
func (F64) String() string    { return "f64" }
func (Char) String() string   { return "char" }
func (String) String() string { return "string" }

// TypeDef is a named or anonymous type definition. TypeDefs are interned:
// two references denote the same type only if they are the same pointer.
type TypeDef struct {
	Kind TypeDefKind
	Name string
}

func (*TypeDef) isType() {}

// String returns the definition name, or the kind's structural spelling for
// anonymous definitions.
func (t *TypeDef) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Name != "" {
		return t.Name
	}
	if t.Kind == nil {
		return "<unknown>"
	}
	return t.Kind.String()
}

// Resolve follows aliases and returns the first non-alias kind.
func (t *TypeDef) Resolve() TypeDefKind {
	kind := t.Kind
	for {
		a, ok := kind.(*Alias)
		if !ok {
			return kind
		}
		td, ok := a.Type.(*TypeDef)
		if !ok {
			return a
		}
		kind = td.Kind
	}
}

// TypeDefKind is the body of a TypeDef.
type TypeDefKind interface {
	isKind()
	String() string
}

type Field struct {
	Type Type
	Name string
}

type Record struct {
	Fields []Field
}

// Case is a variant case; Type is nil for cases without a payload.
type Case struct {
	Type Type
	Name string
}

type Variant struct {
	Cases []Case
}

type Enum struct {
	Cases []string
}

type Flags struct {
	Flags []string
}

type UnionCase struct {
	Type Type
}

// Union is a variant whose cases are distinguished by payload type alone.
type Union struct {
	Cases []UnionCase
}

type Option struct {
	Type Type
}

// Result is result<OK, Err>; either side may be nil.
type Result struct {
	OK  Type
	Err Type
}

type Tuple struct {
	Types []Type
}

type List struct {
	Type Type
}

// Own is an owning handle to Resource. Transferring an Own relinquishes it.
type Own struct {
	Resource *TypeDef
}

// Borrow is a borrowed handle to Resource, valid for the duration of a call.
type Borrow struct {
	Resource *TypeDef
}

// Resource is an opaque entity reachable only through Own or Borrow.
type Resource struct{}

type Future struct {
	Type Type
}

type Stream struct {
	Type Type
}

// Alias is a named reference to another type.
type Alias struct {
	Type Type
}

func (*Record) isKind()   {}
func (*Variant) isKind()  {}
func (*Enum) isKind()     {}
func (*Flags) isKind()    {}
func (*Union) isKind()    {}
func (*Option) isKind()   {}
func (*Result) isKind()   {}
func (*Tuple) isKind()    {}
func (*List) isKind()     {}
func (*Own) isKind()      {}
func (*Borrow) isKind()   {}
func (*Resource) isKind() {}
func (*Future) isKind()   {}
func (*Stream) isKind()   {}
func (*Alias) isKind()    {}

// Types returns the field types in declaration order.
func (r *Record) Types() []Type {
	out := make([]Type, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Type
	}
	return out
}

// Payloads returns the payload type of each case; nil for empty cases.
func (v *Variant) Payloads() []Type {
	out := make([]Type, len(v.Cases))
	for i, c := range v.Cases {
		out[i] = c.Type
	}
	return out
}

func (u *Union) Payloads() []Type {
	out := make([]Type, len(u.Cases))
	for i, c := range u.Cases {
		out[i] = c.Type
	}
	return out
}

// Payloads returns [nil, T]: case 0 is none, case 1 is some.
func (o *Option) Payloads() []Type {
	return []Type{nil, o.Type}
}

// Payloads returns [OK, Err]: case 0 is ok, case 1 is err.
func (r *Result) Payloads() []Type {
	return []Type{r.OK, r.Err}
}

// Payloads returns one nil payload per enum case.
func (e *Enum) Payloads() []Type {
	return make([]Type, len(e.Cases))
}
