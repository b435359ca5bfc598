package types

import "strings"

// FunctionKind distinguishes free functions from resource members.
type FunctionKind uint8

const (
	Freestanding FunctionKind = iota
	Method
	Static
	Constructor
)

func (k FunctionKind) String() string {
	switch k {
	case Freestanding:
		return "freestanding"
	case Method:
		return "method"
	case Static:
		return "static"
	case Constructor:
		return "constructor"
	default:
		return "unknown"
	}
}

type Param struct {
	Type Type
	Name string
}

// Function is a function signature in the interface type system.
// Resource is set for every kind except Freestanding.
type Function struct {
	Resource *TypeDef
	Name     string
	Params   []Param
	Results  []Param
	Kind     FunctionKind
}

// ParamTypes returns the parameter types in declaration order.
func (f *Function) ParamTypes() []Type {
	out := make([]Type, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.Type
	}
	return out
}

// ResultTypes returns the result types in declaration order.
func (f *Function) ResultTypes() []Type {
	out := make([]Type, len(f.Results))
	for i, p := range f.Results {
		out[i] = p.Type
	}
	return out
}

func (f *Function) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteString(": func(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(typeString(p.Type))
	}
	b.WriteByte(')')
	switch {
	case len(f.Results) == 0:
	case len(f.Results) == 1 && f.Results[0].Name == "":
		b.WriteString(" -> ")
		b.WriteString(typeString(f.Results[0].Type))
	default:
		b.WriteString(" -> (")
		for i, r := range f.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			if r.Name != "" {
				b.WriteString(r.Name)
				b.WriteString(": ")
			}
			b.WriteString(typeString(r.Type))
		}
		b.WriteByte(')')
	}
	return b.String()
}
