package abi

import (
	"reflect"
	"testing"

	"github.com/wippyai/bindgen/types"
)

func TestFlatten(t *testing.T) {
	file := def("file", &types.Resource{})

	tests := []struct {
		name string
		typ  types.Type
		want []WasmType
	}{
		{"bool", types.Bool{}, []WasmType{I32}},
		{"u64", types.U64{}, []WasmType{I64}},
		{"f32", types.F32{}, []WasmType{F32}},
		{"f64", types.F64{}, []WasmType{F64}},
		{"char", types.Char{}, []WasmType{I32}},
		{"string", types.String{}, []WasmType{I32, I32}},
		{"list", def("", &types.List{Type: types.U64{}}), []WasmType{I32, I32}},
		{"record", def("", &types.Record{Fields: []types.Field{{Type: types.U8{}}, {Type: types.F64{}}}}), []WasmType{I32, F64}},
		{"empty_record", def("", &types.Record{}), nil},
		{"tuple", def("", &types.Tuple{Types: []types.Type{types.S64{}, types.String{}}}), []WasmType{I64, I32, I32}},
		{"enum", def("", &types.Enum{Cases: []string{"a", "b"}}), []WasmType{I32}},
		{"flags_0", def("", &types.Flags{}), nil},
		{"flags_32", def("", &types.Flags{Flags: make([]string, 32)}), []WasmType{I32}},
		{"flags_33", def("", &types.Flags{Flags: make([]string, 33)}), []WasmType{I32, I32}},
		{"option_u8", def("", &types.Option{Type: types.U8{}}), []WasmType{I32, I32}},
		{"result_unit", def("", &types.Result{}), []WasmType{I32}},
		{"result_f32_u32", def("", &types.Result{OK: types.F32{}, Err: types.U32{}}), []WasmType{I32, I32}},
		{"result_f32_f32", def("", &types.Result{OK: types.F32{}, Err: types.F32{}}), []WasmType{I32, F32}},
		{"variant_f64_u32", def("", &types.Variant{Cases: []types.Case{{Type: types.F64{}}, {Type: types.U32{}}}}), []WasmType{I32, I64}},
		{"variant_widths", def("", &types.Variant{Cases: []types.Case{{Type: types.String{}}, {Type: types.U64{}}, {}}}), []WasmType{I32, I64, I32}},
		{"union", def("", &types.Union{Cases: []types.UnionCase{{Type: types.F32{}}, {Type: types.F64{}}}}), []WasmType{I32, I64}},
		{"own", def("", &types.Own{Resource: file}), []WasmType{I32}},
		{"borrow", def("", &types.Borrow{Resource: file}), []WasmType{I32}},
		{"alias", def("a", &types.Alias{Type: types.String{}}), []WasmType{I32, I32}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Flatten(tc.typ)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Flatten = %s, want %s", FormatTypes(got), FormatTypes(tc.want))
			}
		})
	}
}

func TestFlattenResourcePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic flattening a resource")
		}
	}()
	Flatten(def("file", &types.Resource{}))
}

func TestSignatureRetPtr(t *testing.T) {
	f := fn("triple", nil, types.U32{}, types.U32{}, types.U32{})

	imp := Signature(Import, f)
	if !reflect.DeepEqual(imp.RetPtr, []WasmType{I32, I32, I32}) {
		t.Errorf("import RetPtr = %s", FormatTypes(imp.RetPtr))
	}
	if !reflect.DeepEqual(imp.Params, []WasmType{I32}) {
		t.Errorf("import Params = %s, want trailing i32", FormatTypes(imp.Params))
	}
	if len(imp.Results) != 0 {
		t.Errorf("import Results = %s, want none", FormatTypes(imp.Results))
	}

	exp := Signature(Export, f)
	if !reflect.DeepEqual(exp.RetPtr, []WasmType{I32, I32, I32}) {
		t.Errorf("export RetPtr = %s", FormatTypes(exp.RetPtr))
	}
	if len(exp.Params) != 0 {
		t.Errorf("export Params = %s, want none", FormatTypes(exp.Params))
	}
	if !reflect.DeepEqual(exp.Results, []WasmType{I32}) {
		t.Errorf("export Results = %s, want single pointer", FormatTypes(exp.Results))
	}
}

func TestSignatureSymmetry(t *testing.T) {
	point := def("point", &types.Record{Fields: []types.Field{{Type: types.F32{}}, {Type: types.F32{}}}})
	funcs := []*types.Function{
		fn("nop", nil),
		fn("scalar", []types.Type{types.U8{}, types.S64{}, types.F64{}}, types.Bool{}),
		fn("greet", []types.Type{types.String{}}, types.String{}),
		fn("move", []types.Type{point}, point),
		fn("many", make17(), types.U64{}),
	}

	for _, f := range funcs {
		t.Run(f.Name, func(t *testing.T) {
			imp := Signature(Import, f)
			exp := Signature(Export, f)

			if !reflect.DeepEqual(imp.RetPtr, exp.RetPtr) {
				t.Errorf("RetPtr differs: %s vs %s", FormatTypes(imp.RetPtr), FormatTypes(exp.RetPtr))
			}
			if imp.IndirectParams != exp.IndirectParams {
				t.Error("IndirectParams differs")
			}

			if imp.RetPtr == nil {
				if !reflect.DeepEqual(imp, exp) {
					t.Errorf("signatures differ without retptr: %s vs %s", imp, exp)
				}
				return
			}
			if len(imp.Params) != len(exp.Params)+1 || imp.Params[len(imp.Params)-1] != I32 {
				t.Errorf("import params %s should be export params %s plus i32", FormatTypes(imp.Params), FormatTypes(exp.Params))
			}
			if len(imp.Results) != 0 || !reflect.DeepEqual(exp.Results, []WasmType{I32}) {
				t.Errorf("results: import %s export %s", FormatTypes(imp.Results), FormatTypes(exp.Results))
			}
		})
	}
}

func make17() []types.Type {
	out := make([]types.Type, MaxFlatParams+1)
	for i := range out {
		out[i] = types.U32{}
	}
	return out
}

func TestSignatureIndirectParams(t *testing.T) {
	exact := fn("exact", make17()[:MaxFlatParams])
	if sig := Signature(Import, exact); sig.IndirectParams || len(sig.Params) != MaxFlatParams {
		t.Errorf("16 flat params should stay direct, got %s", sig)
	}

	over := fn("over", make17())
	sig := Signature(Import, over)
	if !sig.IndirectParams || !reflect.DeepEqual(sig.Params, []WasmType{I32}) {
		t.Errorf("17 flat params should be passed by pointer, got %s", sig)
	}

	// the string's two slots push fifteen u64 params over the limit
	mixed := fn("mixed", []types.Type{
		types.String{}, types.U64{}, types.U64{}, types.U64{}, types.U64{},
		types.U64{}, types.U64{}, types.U64{}, types.U64{}, types.U64{},
		types.U64{}, types.U64{}, types.U64{}, types.U64{}, types.U64{},
		types.U64{},
	}, types.String{})
	sig = Signature(Import, mixed)
	if !sig.IndirectParams || !reflect.DeepEqual(sig.Params, []WasmType{I32, I32}) {
		t.Errorf("indirect params with retptr: got %s", sig)
	}
}

func TestVariantCasts(t *testing.T) {
	got := VariantCasts([]types.Type{types.F32{}, types.U32{}})
	want := [][]Bitcast{{F32ToI32}, {BitcastNone}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("VariantCasts = %v, want %v", got, want)
	}

	got = VariantCasts([]types.Type{nil, types.F64{}, types.String{}})
	want = [][]Bitcast{{}, {F64ToI64}, {I32ToI64, BitcastNone}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("VariantCasts = %v, want %v", got, want)
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		a, b, want WasmType
	}{
		{I32, I32, I32},
		{F64, F64, F64},
		{I32, F32, I32},
		{F32, I32, I32},
		{I32, I64, I64},
		{F32, F64, I64},
		{F32, I64, I64},
		{I64, F64, I64},
	}
	for _, tc := range tests {
		if got := join(tc.a, tc.b); got != tc.want {
			t.Errorf("join(%s, %s) = %s, want %s", FormatTypes([]WasmType{tc.a}), FormatTypes([]WasmType{tc.b}), FormatTypes([]WasmType{got}), FormatTypes([]WasmType{tc.want}))
		}
	}
}

func TestAllBitsValid(t *testing.T) {
	tests := []struct {
		name string
		typ  types.Type
		want bool
	}{
		{"u8", types.U8{}, true},
		{"f64", types.F64{}, true},
		{"bool", types.Bool{}, false},
		{"char", types.Char{}, false},
		{"string", types.String{}, false},
		{"record_of_numbers", def("", &types.Record{Fields: []types.Field{{Type: types.U16{}}, {Type: types.S32{}}}}), true},
		{"tuple_with_bool", def("", &types.Tuple{Types: []types.Type{types.U8{}, types.Bool{}}}), false},
		{"enum", def("", &types.Enum{Cases: []string{"a"}}), false},
	}
	for _, tc := range tests {
		if got := AllBitsValid(tc.typ); got != tc.want {
			t.Errorf("%s: AllBitsValid = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNeedsPostReturn(t *testing.T) {
	tests := []struct {
		name string
		typ  types.Type
		want bool
	}{
		{"u32", types.U32{}, false},
		{"string", types.String{}, true},
		{"list_u8", def("", &types.List{Type: types.U8{}}), true},
		{"record_with_string", def("", &types.Record{Fields: []types.Field{{Type: types.U8{}}, {Type: types.String{}}}}), true},
		{"option_u32", def("", &types.Option{Type: types.U32{}}), false},
		{"result_err_string", def("", &types.Result{Err: types.String{}}), true},
		{"enum", def("", &types.Enum{Cases: []string{"a"}}), false},
	}
	for _, tc := range tests {
		if got := NeedsPostReturn(tc.typ); got != tc.want {
			t.Errorf("%s: NeedsPostReturn = %v, want %v", tc.name, got, tc.want)
		}
	}
}
