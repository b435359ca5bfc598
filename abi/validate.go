package abi

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/types"
)

// Validate reports every shape in fn the generator cannot translate. The
// returned error combines one *errors.Error per offending position; use
// multierr.Errors to list them.
func Validate(fn *types.Function) error {
	if fn == nil {
		return errors.InvalidInput(errors.PhaseValidate, "nil function")
	}

	v := &validator{seen: make(map[*types.TypeDef]bool)}
	for _, p := range fn.Params {
		v.check(p.Type, []string{fn.Name, paramLabel("param", p.Name)}, false)
	}
	for i, r := range fn.Results {
		name := r.Name
		if name == "" {
			name = fmt.Sprint(i)
		}
		v.check(r.Type, []string{fn.Name, paramLabel("result", name)}, true)
	}
	if fn.Kind != types.Freestanding && fn.Resource == nil {
		v.add(errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path(fn.Name).
			Detail("%s function without a resource", fn.Kind).
			Build())
	}
	return v.err
}

func paramLabel(kind, name string) string {
	if name == "" {
		return kind
	}
	return kind + " " + name
}

type validator struct {
	err  error
	seen map[*types.TypeDef]bool
}

func (v *validator) add(err *errors.Error) {
	v.err = multierr.Append(v.err, err)
}

func (v *validator) check(ty types.Type, path []string, result bool) {
	switch t := ty.(type) {
	case nil:
		v.add(errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path(path...).
			Detail("missing type").
			Build())
	case *types.TypeDef:
		v.checkDef(t, path, result)
	}
}

func (v *validator) checkDef(td *types.TypeDef, path []string, result bool) {
	if td.Kind == nil {
		v.add(errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path(path...).
			Type(td.String()).
			Detail("definition without a kind").
			Build())
		return
	}

	switch kind := td.Kind.(type) {
	case *types.Alias:
		v.check(kind.Type, path, result)
	case *types.Record:
		v.enter(td, func() {
			for _, f := range kind.Fields {
				v.check(f.Type, extend(path, f.Name), result)
			}
		})
	case *types.Tuple:
		v.enter(td, func() {
			for i, e := range kind.Types {
				v.check(e, extend(path, fmt.Sprint(i)), result)
			}
		})
	case *types.Variant:
		v.enter(td, func() {
			for _, c := range kind.Cases {
				if c.Type != nil {
					v.check(c.Type, extend(path, c.Name), result)
				}
			}
		})
	case *types.Union:
		v.enter(td, func() {
			for i, c := range kind.Cases {
				v.check(c.Type, extend(path, fmt.Sprint(i)), result)
			}
		})
	case *types.Option:
		v.check(kind.Type, extend(path, "some"), result)
	case *types.Result:
		if kind.OK != nil {
			v.check(kind.OK, extend(path, "ok"), result)
		}
		if kind.Err != nil {
			v.check(kind.Err, extend(path, "err"), result)
		}
	case *types.List:
		v.check(kind.Type, extend(path, "elem"), result)
	case *types.Own:
		v.checkResource(td, kind.Resource, path)
	case *types.Borrow:
		v.checkResource(td, kind.Resource, path)
		if result {
			v.add(errors.Unsupported(errors.PhaseValidate, path, td.String(), "borrowed handles cannot be returned"))
		}
	case *types.Future, *types.Stream:
		v.add(errors.Unsupported(errors.PhaseValidate, path, td.String(), "async values have no canonical lowering"))
	case *types.Resource:
		v.add(errors.Unsupported(errors.PhaseValidate, path, td.String(), "resources are only passed through handles"))
	}
}

// enter guards against walking a recursive definition twice.
func (v *validator) enter(td *types.TypeDef, walk func()) {
	if v.seen[td] {
		return
	}
	v.seen[td] = true
	walk()
}

func (v *validator) checkResource(handle, res *types.TypeDef, path []string) {
	if res == nil {
		v.add(errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path(path...).
			Type(handle.String()).
			Detail("handle without a resource").
			Build())
		return
	}
	if _, ok := res.Resolve().(*types.Resource); !ok {
		v.add(errors.TypeMismatch(errors.PhaseValidate, path, "resource", res.Kind))
	}
}

func extend(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

// Translate validates fn and runs the generator, converting panics raised
// during generation into returned errors.
func Translate[O any](b Bindgen[O], dir Direction, mode Mode, fn *types.Function, opts Options) (err error) {
	if err := Validate(fn); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	NewGenerator(b, dir, mode, opts).Call(fn)
	return nil
}

// TranslatePostReturn is Translate for the post-return function of an
// export.
func TranslatePostReturn[O any](b Bindgen[O], fn *types.Function, opts Options) (err error) {
	if err := Validate(fn); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	NewGenerator(b, Export, LiftArgsLowerResults, opts).PostReturn(fn)
	return nil
}

func recovered(r any) error {
	switch e := r.(type) {
	case *errors.Error:
		return e
	case error:
		return errors.Wrap(errors.PhaseGenerate, errors.KindInvalidInput, e, "translation aborted")
	default:
		return errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Value(r).
			Detail("translation aborted: %v", r).
			Build()
	}
}
