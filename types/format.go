package types

import "strings"

func typeString(t Type) string {
	if t == nil {
		return "_"
	}
	return t.String()
}

func (r *Record) String() string {
	var b strings.Builder
	b.WriteString("record { ")
	for i, f := range r.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(typeString(f.Type))
	}
	b.WriteString(" }")
	return b.String()
}

func (v *Variant) String() string {
	var b strings.Builder
	b.WriteString("variant { ")
	for i, c := range v.Cases {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		if c.Type != nil {
			b.WriteByte('(')
			b.WriteString(c.Type.String())
			b.WriteByte(')')
		}
	}
	b.WriteString(" }")
	return b.String()
}

func (e *Enum) String() string {
	return "enum { " + strings.Join(e.Cases, ", ") + " }"
}

func (f *Flags) String() string {
	return "flags { " + strings.Join(f.Flags, ", ") + " }"
}

func (u *Union) String() string {
	parts := make([]string, len(u.Cases))
	for i, c := range u.Cases {
		parts[i] = typeString(c.Type)
	}
	return "union { " + strings.Join(parts, ", ") + " }"
}

func (o *Option) String() string { return "option<" + typeString(o.Type) + ">" }

func (r *Result) String() string {
	switch {
	case r.OK == nil && r.Err == nil:
		return "result"
	case r.Err == nil:
		return "result<" + r.OK.String() + ">"
	default:
		return "result<" + typeString(r.OK) + ", " + r.Err.String() + ">"
	}
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Types))
	for i, e := range t.Types {
		parts[i] = typeString(e)
	}
	return "tuple<" + strings.Join(parts, ", ") + ">"
}

func (l *List) String() string   { return "list<" + typeString(l.Type) + ">" }
func (h *Own) String() string    { return "own<" + resourceName(h.Resource) + ">" }
func (h *Borrow) String() string { return "borrow<" + resourceName(h.Resource) + ">" }
func (*Resource) String() string { return "resource" }
func (f *Future) String() string { return "future<" + typeString(f.Type) + ">" }
func (s *Stream) String() string { return "stream<" + typeString(s.Type) + ">" }
func (a *Alias) String() string  { return typeString(a.Type) }

func resourceName(td *TypeDef) string {
	if td == nil || td.Name == "" {
		return "resource"
	}
	return td.Name
}
