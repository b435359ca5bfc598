package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/bindgen/abi"
	"github.com/wippyai/bindgen/types"
)

func TestParseTargets(t *testing.T) {
	tests := []struct {
		dir, mode string
		want      int
		wantErr   bool
	}{
		{"all", "all", 4, false},
		{"import", "lower", 1, false},
		{"export", "all", 2, false},
		{"", "lift", 2, false},
		{"sideways", "all", 0, true},
		{"import", "both", 0, true},
	}
	for _, tc := range tests {
		got, err := parseTargets(tc.dir, tc.mode)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseTargets(%q, %q) err = %v", tc.dir, tc.mode, err)
			continue
		}
		if len(got) != tc.want {
			t.Errorf("parseTargets(%q, %q) = %d targets, want %d", tc.dir, tc.mode, len(got), tc.want)
		}
	}
}

func TestLoadFunctions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.wit")
	src := "type point = record { x: f32, y: f32 }\nmove: func(p: point) -> point\nreset: func()\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	fns, err := loadFunctions("extra: func(a: u8)", path, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(fns) != 3 || fns[2].Name != "extra" {
		t.Errorf("got %d functions", len(fns))
	}

	fns, err = loadFunctions("", path, "reset")
	if err != nil || len(fns) != 1 || fns[0].Name != "reset" {
		t.Errorf("filter by name: %v, %v", fns, err)
	}

	if _, err := loadFunctions("", path, "missing"); err == nil {
		t.Error("missing function accepted")
	}
	if _, err := loadFunctions("", filepath.Join(t.TempDir(), "nope"), ""); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := loadFunctions("broken", "", ""); err == nil {
		t.Error("bad signature accepted")
	}
}

func TestDump(t *testing.T) {
	fns, err := loadFunctions("greet: func(name: string) -> string", "", "")
	if err != nil {
		t.Fatal(err)
	}
	targets, _ := parseTargets("all", "all")

	var b strings.Builder
	err = dump(&b, fns, dumpOptions{targets: targets, postReturn: true, style: plainStyles()})
	if err != nil {
		t.Fatal(err)
	}
	out := b.String()

	for _, want := range []string{
		"greet: func(name: string) -> string",
		"import lower-args-lift-results: [i32, i32, i32] -> [] (results by pointer: [i32, i32])",
		"export lift-args-lower-results: [i32, i32] -> [i32] (results by pointer: [i32, i32])",
		"  v1, v2 = string_lower (v0)",
		"realloc=cabi_realloc",
		"post-return:",
		"  guest_deallocate_string (v1, v2)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "call_wasm"); n != 2 {
		t.Errorf("call_wasm appears %d times, want 2", n)
	}
}

func TestDumpCheck(t *testing.T) {
	fns, _ := loadFunctions("greet: func(name: string) -> string", "", "")
	targets, _ := parseTargets("import", "lower")

	var b strings.Builder
	if err := dump(&b, fns, dumpOptions{targets: targets, check: true, style: plainStyles()}); err != nil {
		t.Fatal(err)
	}
	// get_arg, string_lower, return_pointer, call_wasm, two loads,
	// string_lift, return
	if !strings.Contains(b.String(), "  interpreter: 8 steps") {
		t.Errorf("interpreter check missing:\n%s", b.String())
	}
}

func TestDumpSigOnly(t *testing.T) {
	fns, _ := loadFunctions("f: func(a: u32)", "", "")
	targets, _ := parseTargets("import", "lower")

	var b strings.Builder
	if err := dump(&b, fns, dumpOptions{targets: targets, sigOnly: true, style: plainStyles()}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(b.String(), "get_arg") {
		t.Errorf("instructions printed with sigOnly:\n%s", b.String())
	}
	if !strings.Contains(b.String(), "[i32] -> []") {
		t.Errorf("signature missing:\n%s", b.String())
	}
}

func TestDumpReportsInvalid(t *testing.T) {
	fns, _ := loadFunctions("bad: func(s: stream<u8>)", "", "")
	fns = append(fns, &types.Function{Name: "good"})
	targets, _ := parseTargets("import", "lower")

	var b strings.Builder
	err := dump(&b, fns, dumpOptions{targets: targets, style: plainStyles()})
	if err == nil {
		t.Fatal("expected error")
	}
	out := b.String()
	if !strings.Contains(out, "unsupported") {
		t.Errorf("error not reported inline:\n%s", out)
	}
	if !strings.Contains(out, "call_wasm good") {
		t.Errorf("valid function after an invalid one not dumped:\n%s", out)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInteractiveModel(t *testing.T) {
	fns, _ := loadFunctions("", "", "")
	m := newInteractiveModel(fns, abi.Options{})
	if m.state != stateInput {
		t.Fatal("empty model should start with the signature prompt")
	}

	m.input.SetValue("greet: func(name: string) -> string")
	m.Update(key("enter"))
	if m.state != stateBrowse || len(m.funcs) != 1 {
		t.Fatalf("state %v with %d functions", m.state, len(m.funcs))
	}
	if !strings.Contains(m.View(), "string_lower") {
		t.Errorf("view lacks instructions:\n%s", m.View())
	}

	m.Update(key("d"))
	if m.dir != abi.Export {
		t.Error("d should toggle the direction")
	}
	m.Update(key("m"))
	if m.mode != abi.LiftArgsLowerResults {
		t.Error("m should toggle the mode")
	}
	m.Update(key("p"))
	if !strings.Contains(m.View(), "guest_deallocate_string") {
		t.Errorf("post-return view:\n%s", m.View())
	}

	m.Update(key("/"))
	m.input.SetValue("not a signature")
	m.Update(key("enter"))
	if m.err == nil || m.state != stateInput {
		t.Error("bad signature should keep the prompt open with an error")
	}
	m.Update(key("esc"))
	if m.state != stateBrowse || m.err != nil {
		t.Error("esc should return to browsing")
	}

	m.Update(key("/"))
	m.input.SetValue("second: func()")
	m.Update(key("enter"))
	m.Update(key("k"))
	if m.selected != 0 {
		t.Errorf("selected = %d after moving up", m.selected)
	}
	m.Update(key("down"))
	if m.selected != 1 {
		t.Errorf("selected = %d after moving down", m.selected)
	}

	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Error("q should quit")
	}
}
