package types

import (
	"github.com/wippyai/bindgen/errors"
	"go.bytecodealliance.org/wit"
)

// WITConverter converts go.bytecodealliance.org/wit types into this
// package's graph. Conversion preserves interning: the same *wit.TypeDef
// always maps to the same *TypeDef.
type WITConverter struct {
	defs map[*wit.TypeDef]*TypeDef
}

func NewWITConverter() *WITConverter {
	return &WITConverter{defs: make(map[*wit.TypeDef]*TypeDef)}
}

// FromWIT converts a single type with a fresh converter.
func FromWIT(t wit.Type) (Type, error) {
	return NewWITConverter().Convert(t)
}

// Convert converts t, reusing previously converted definitions.
func (c *WITConverter) Convert(t wit.Type) (Type, error) {
	switch typ := t.(type) {
	case nil:
		return nil, nil
	case wit.Bool:
		return Bool{}, nil
	case wit.S8:
		return S8{}, nil
	case wit.U8:
		return U8{}, nil
	case wit.S16:
		return S16{}, nil
	case wit.U16:
		return U16{}, nil
	case wit.S32:
		return S32{}, nil
	case wit.U32:
		return U32{}, nil
	case wit.S64:
		return S64{}, nil
	case wit.U64:
		return U64{}, nil
	case wit.F32:
		return F32{}, nil
	case wit.F64:
		return F64{}, nil
	case wit.Char:
		return Char{}, nil
	case wit.String:
		return String{}, nil
	case *wit.TypeDef:
		return c.convertDef(typ)
	default:
		return nil, errors.Unsupported(errors.PhaseParse, nil, "", "unknown WIT type")
	}
}

func (c *WITConverter) convertDef(td *wit.TypeDef) (*TypeDef, error) {
	if td == nil {
		return nil, errors.InvalidInput(errors.PhaseParse, "nil WIT type definition")
	}
	if def, ok := c.defs[td]; ok {
		return def, nil
	}

	def := &TypeDef{}
	if td.Name != nil {
		def.Name = *td.Name
	}
	// Registered before the body so handle kinds that refer back to their
	// resource see the same definition.
	c.defs[td] = def

	kind, err := c.convertKind(td.Kind)
	if err != nil {
		delete(c.defs, td)
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Type(def.Name).
			Detail("convert WIT definition").
			Cause(err).
			Build()
	}
	def.Kind = kind
	return def, nil
}

func (c *WITConverter) convertKind(k wit.TypeDefKind) (TypeDefKind, error) {
	switch kind := k.(type) {
	case *wit.Record:
		r := &Record{Fields: make([]Field, len(kind.Fields))}
		for i, f := range kind.Fields {
			ft, err := c.Convert(f.Type)
			if err != nil {
				return nil, err
			}
			r.Fields[i] = Field{Name: f.Name, Type: ft}
		}
		return r, nil

	case *wit.Variant:
		v := &Variant{Cases: make([]Case, len(kind.Cases))}
		for i, cs := range kind.Cases {
			ct, err := c.Convert(cs.Type)
			if err != nil {
				return nil, err
			}
			v.Cases[i] = Case{Name: cs.Name, Type: ct}
		}
		return v, nil

	case *wit.Enum:
		e := &Enum{Cases: make([]string, len(kind.Cases))}
		for i, cs := range kind.Cases {
			e.Cases[i] = cs.Name
		}
		return e, nil

	case *wit.Flags:
		f := &Flags{Flags: make([]string, len(kind.Flags))}
		for i, fl := range kind.Flags {
			f.Flags[i] = fl.Name
		}
		return f, nil

	case *wit.Tuple:
		t := &Tuple{Types: make([]Type, len(kind.Types))}
		for i, et := range kind.Types {
			ct, err := c.Convert(et)
			if err != nil {
				return nil, err
			}
			t.Types[i] = ct
		}
		return t, nil

	case *wit.Option:
		inner, err := c.Convert(kind.Type)
		if err != nil {
			return nil, err
		}
		return &Option{Type: inner}, nil

	case *wit.Result:
		ok, err := c.Convert(kind.OK)
		if err != nil {
			return nil, err
		}
		e, err := c.Convert(kind.Err)
		if err != nil {
			return nil, err
		}
		return &Result{OK: ok, Err: e}, nil

	case *wit.List:
		elem, err := c.Convert(kind.Type)
		if err != nil {
			return nil, err
		}
		return &List{Type: elem}, nil

	case *wit.Own:
		res, err := c.convertResource(kind.Type)
		if err != nil {
			return nil, err
		}
		return &Own{Resource: res}, nil

	case *wit.Borrow:
		res, err := c.convertResource(kind.Type)
		if err != nil {
			return nil, err
		}
		return &Borrow{Resource: res}, nil

	case *wit.Resource:
		return &Resource{}, nil

	case *wit.Future:
		inner, err := c.Convert(kind.Type)
		if err != nil {
			return nil, err
		}
		return &Future{Type: inner}, nil

	case *wit.Stream:
		return &Stream{}, nil

	case wit.Type:
		inner, err := c.Convert(kind)
		if err != nil {
			return nil, err
		}
		return &Alias{Type: inner}, nil

	default:
		return nil, errors.Unsupported(errors.PhaseParse, nil, "", "unknown WIT definition kind")
	}
}

// convertResource tolerates a nil resource reference, which WIT uses for
// handles whose resource is not yet resolved.
func (c *WITConverter) convertResource(td *wit.TypeDef) (*TypeDef, error) {
	if td == nil {
		return &TypeDef{Kind: &Resource{}}, nil
	}
	return c.convertDef(td)
}
