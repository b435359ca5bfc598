package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"

	"github.com/wippyai/bindgen/abi"
	"github.com/wippyai/bindgen/backend/eval"
	"github.com/wippyai/bindgen/backend/text"
	"github.com/wippyai/bindgen/internal/sigparse"
	"github.com/wippyai/bindgen/types"
)

type target struct {
	dir  abi.Direction
	mode abi.Mode
}

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	sig   lipgloss.Style
	err   lipgloss.Style
}

func plainStyles() styles {
	return styles{
		title: lipgloss.NewStyle(),
		label: lipgloss.NewStyle(),
		sig:   lipgloss.NewStyle(),
		err:   lipgloss.NewStyle(),
	}
}

func colorStyles() styles {
	return styles{
		title: funcStyle.Bold(true),
		label: helpStyle,
		sig:   typeStyle,
		err:   errorStyle,
	}
}

type dumpOptions struct {
	style      styles
	abi        abi.Options
	targets    []target
	postReturn bool
	sigOnly    bool
	// check compiles every listing for the interpreter as well.
	check bool
}

func parseTargets(dir, mode string) ([]target, error) {
	var dirs []abi.Direction
	switch dir {
	case "import":
		dirs = []abi.Direction{abi.Import}
	case "export":
		dirs = []abi.Direction{abi.Export}
	case "all", "":
		dirs = []abi.Direction{abi.Import, abi.Export}
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}

	var modes []abi.Mode
	switch mode {
	case "lower":
		modes = []abi.Mode{abi.LowerArgsLiftResults}
	case "lift":
		modes = []abi.Mode{abi.LiftArgsLowerResults}
	case "all", "":
		modes = []abi.Mode{abi.LowerArgsLiftResults, abi.LiftArgsLowerResults}
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	var out []target
	for _, d := range dirs {
		for _, m := range modes {
			out = append(out, target{dir: d, mode: m})
		}
	}
	return out, nil
}

func loadFunctions(sig, path, name string) ([]*types.Function, error) {
	var fns []*types.Function

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		file, err := sigparse.ParseFile(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if name != "" {
			fn, ok := file.Func(name)
			if !ok {
				return nil, fmt.Errorf("function %q not found in %s", name, path)
			}
			return []*types.Function{fn}, nil
		}
		fns = file.Funcs
	}

	if sig != "" {
		fn, err := sigparse.Parse(sig)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

// dump renders every function for every target. A function that fails to
// translate is reported inline and the remaining ones are still dumped;
// the combined error is returned at the end.
func dump(w io.Writer, fns []*types.Function, o dumpOptions) error {
	var errs error
	for i, fn := range fns {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, o.style.title.Render(fn.String()))

		if err := abi.Validate(fn); err != nil {
			for _, e := range multierr.Errors(err) {
				fmt.Fprintln(w, o.style.err.Render("  "+e.Error()))
			}
			errs = multierr.Append(errs, err)
			continue
		}

		for _, t := range o.targets {
			sig := abi.Signature(t.dir, fn)
			fmt.Fprintf(w, "\n%s %s\n", o.style.label.Render(t.dir.String()+" "+t.mode.String()+":"), o.style.sig.Render(describe(sig)))
			if o.sigOnly {
				continue
			}
			out, err := text.Render(t.dir, t.mode, fn, o.abi)
			if err != nil {
				fmt.Fprintln(w, o.style.err.Render("  "+err.Error()))
				errs = multierr.Append(errs, err)
				continue
			}
			fmt.Fprint(w, indent(out))
			if o.check {
				errs = multierr.Append(errs, checkProgram(w, o.style, t, fn))
			}
		}

		if o.postReturn && !o.sigOnly {
			fmt.Fprintf(w, "\n%s\n", o.style.label.Render("post-return:"))
			out, err := text.RenderPostReturn(fn, o.abi)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			fmt.Fprint(w, indent(out))
		}
	}
	return errs
}

func checkProgram(w io.Writer, st styles, t target, fn *types.Function) error {
	p, err := eval.Compile(t.dir, t.mode, fn)
	if err != nil {
		fmt.Fprintln(w, st.err.Render("  interpreter: "+err.Error()))
		return err
	}
	fmt.Fprintln(w, st.label.Render(fmt.Sprintf("  interpreter: %d steps", p.Steps())))
	return nil
}

func describe(sig *abi.WasmSignature) string {
	s := sig.String()
	if sig.IndirectParams {
		s += " (params by pointer)"
	}
	if sig.RetPtr != nil {
		s += " (results by pointer: " + abi.FormatTypes(sig.RetPtr) + ")"
	}
	return s
}

func indent(s string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString("  ")
		b.WriteString(l)
	}
	return b.String()
}
