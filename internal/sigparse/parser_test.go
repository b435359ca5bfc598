package sigparse

import (
	"testing"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"nop: func()", "nop: func()"},
		{"greet: func(name: string) -> string", "greet: func(name: string) -> string"},
		{"add: func(a: u32, b: u32,) -> u64", "add: func(a: u32, b: u32) -> u64"},
		{"scalars: func(a: bool, b: s8, c: u16, d: s64, e: f32, f: f64, g: char)", "scalars: func(a: bool, b: s8, c: u16, d: s64, e: f32, f: f64, g: char)"},
		{"bytes: func(b: list<u8>) -> list<list<string>>", "bytes: func(b: list<u8>) -> list<list<string>>"},
		{"opt: func(x: option<tuple<u8, char>>)", "opt: func(x: option<tuple<u8, char>>)"},
		{"r1: func() -> result", "r1: func() -> result"},
		{"r2: func() -> result<u32>", "r2: func() -> result<u32>"},
		{"r3: func() -> result<_, string>", "r3: func() -> result<_, string>"},
		{"r4: func() -> result<u32, string>", "r4: func() -> result<u32, string>"},
		{"multi: func() -> (a: u32, b: string)", "multi: func() -> (a: u32, b: string)"},
		{"rec: func(p: record { x: f32, y: f32 })", "rec: func(p: record { x: f32, y: f32 })"},
		{"var: func(v: variant { none, some(u32) })", "var: func(v: variant { none, some(u32) })"},
		{"e: func(c: enum { red, green })", "e: func(c: enum { red, green })"},
		{"f: func(c: flags { read, write, })", "f: func(c: flags { read, write })"},
		{"u: func(c: union { u8, f64 })", "u: func(c: union { u8, f64 })"},
		{"s: func(c: stream<u8>, d: future)", "s: func(c: stream<u8>, d: future<_>)"},
		{"kebab-name: func(my-arg: u32)", "kebab-name: func(my-arg: u32)"},
	}

	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			fn, err := Parse(tc.src)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := fn.String(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"greet",
		"greet: fn()",
		"greet: func(name string)",
		"greet: func(name: strng)",
		"greet: func(name: string",
		"greet: func() ->",
		"greet: func(h: own<file>)",
		"greet: func() extra",
		"greet: func(x: list<u8)",
		"greet: func(x: #)",
		"[method]file.read: func()",
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			if err == nil {
				t.Fatal("expected error")
			}
			var e *errors.Error
			if !errors.As(err, &e) || e.Phase != errors.PhaseParse {
				t.Errorf("got %v, want parse error", err)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	src := `
// geometry
resource file
type point = record { x: f32, y: f32 }
type points = list<point>
type id = u64

move: func(p: point, dx: f32) -> point
centroid: func(ps: points) -> option<point>
lookup: func(key: id) -> result<own<file>, string>; close: func(f: own<file>)
[method]file.read: func(self: borrow<file>, n: u32) -> list<u8>
[static]file.open: func(path: string) -> own<file>
[constructor]file: func() -> own<file>
`
	file, err := ParseFile(src)
	if err != nil {
		t.Fatal(err)
	}

	if len(file.Types) != 4 {
		t.Errorf("got %d types, want 4", len(file.Types))
	}
	if len(file.Funcs) != 7 {
		t.Fatalf("got %d functions, want 7", len(file.Funcs))
	}

	move, ok := file.Func("move")
	if !ok {
		t.Fatal("move not found")
	}
	point := file.Types["point"]
	if move.Params[0].Type != point || move.Results[0].Type != point {
		t.Error("named types should be shared by reference")
	}
	if got := move.String(); got != "move: func(p: point, dx: f32) -> point" {
		t.Errorf("move = %q", got)
	}

	if _, ok := file.Types["id"].Kind.(*types.Alias); !ok {
		t.Errorf("id kind = %T, want alias", file.Types["id"].Kind)
	}

	read, _ := file.Func("[method]file.read")
	if read.Kind != types.Method || read.Resource != file.Types["file"] {
		t.Errorf("read kind %s resource %v", read.Kind, read.Resource)
	}
	borrow := read.Params[0].Type.(*types.TypeDef).Kind.(*types.Borrow)
	if borrow.Resource != file.Types["file"] {
		t.Error("borrow does not point at the declared resource")
	}

	open, _ := file.Func("[static]file.open")
	if open.Kind != types.Static {
		t.Errorf("open kind = %s", open.Kind)
	}
	ctor, _ := file.Func("[constructor]file")
	if ctor.Kind != types.Constructor || ctor.Resource == nil {
		t.Errorf("constructor kind = %s", ctor.Kind)
	}
	if _, ok := file.Func("close"); !ok {
		t.Error("declarations separated by semicolons")
	}
}

func TestParseFileErrors(t *testing.T) {
	tests := map[string]string{
		"duplicate_type": "type a = u8\ntype a = u16",
		"duplicate_func": "f: func()\nf: func()",
		"use_before_def": "f: func(p: point)\ntype point = record { x: u8 }",
		"bad_line":       "resource file\nf: func(\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseFile(src); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseWith(t *testing.T) {
	point := &types.TypeDef{Name: "point", Kind: &types.Record{Fields: []types.Field{{Name: "x", Type: types.U8{}}}}}
	fn, err := ParseWith("f: func(p: point) -> point", map[string]*types.TypeDef{"point": point})
	if err != nil {
		t.Fatal(err)
	}
	if fn.Params[0].Type != point {
		t.Error("ParseWith should resolve supplied definitions")
	}
}

func TestTokenizeLines(t *testing.T) {
	tokens, err := tokenize("a: func()\n// note\nb->c")
	if err != nil {
		t.Fatal(err)
	}
	last := tokens[len(tokens)-1]
	if last.Value != "c" || last.Line != 3 {
		t.Errorf("last token %q on line %d", last.Value, last.Line)
	}
	arrow := tokens[len(tokens)-2]
	if arrow.Type != tokArrow {
		t.Errorf("got %v, want arrow", arrow.Type)
	}
}
