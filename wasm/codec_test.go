package wasm

import (
	"bytes"
	"testing"
)

// addModule is (module (func (export "add") (param i32 i32) (result i32)
// local.get 0 local.get 1 i32.add)) assembled by hand.
var addModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
}

func TestIsModule(t *testing.T) {
	if !IsModule(addModule) {
		t.Error("valid header not recognized")
	}
	if IsModule([]byte("(module)")) {
		t.Error("text accepted as binary")
	}
	if IsModule(nil) {
		t.Error("nil accepted as binary")
	}
}

func TestDecodeAddModule(t *testing.T) {
	m, err := Decode(addModule)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Types) != 1 {
		t.Fatalf("types = %d, want 1", len(m.Types))
	}
	ft := m.Types[0]
	if !bytes.Equal(ft.Params, []byte{ValI32, ValI32}) || !bytes.Equal(ft.Results, []byte{ValI32}) {
		t.Errorf("type = %v", ft)
	}
	if len(m.Funcs) != 1 || m.Funcs[0] != 0 {
		t.Errorf("funcs = %v", m.Funcs)
	}
	if len(m.Exports) != 1 || m.Exports[0].Name != "add" || m.Exports[0].Kind != KindFunc {
		t.Errorf("exports = %+v", m.Exports)
	}
	if len(m.Code) != 1 {
		t.Fatalf("code entries = %d", len(m.Code))
	}
	want := []byte{OpLocalGet, 0x00, OpLocalGet, 0x01, 0x6a, OpEnd}
	if !bytes.Equal(m.Code[0].Code, want) {
		t.Errorf("body = % x, want % x", m.Code[0].Code, want)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	m, err := Decode(addModule)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Encode(); !bytes.Equal(got, addModule) {
		t.Errorf("re-encoding differs:\n got % x\nwant % x", got, addModule)
	}
}

func TestCodecFullModule(t *testing.T) {
	max := uint64(16)
	m := &Module{
		Types: []FuncType{
			{Params: []byte{ValI32}, Results: nil},
			{Params: nil, Results: []byte{ValI64}},
		},
		Imports: []Import{
			{Module: "env", Name: "log", Desc: ImportDesc{Kind: KindFunc, TypeIdx: 0}},
			{Module: "env", Name: "mem", Desc: ImportDesc{Kind: KindMemory, Memory: &MemoryType{Limits: Limits{Min: 1}}}},
		},
		Funcs:   []uint32{1},
		Tables:  []TableType{{ElemType: ValFuncRef, Limits: Limits{Min: 2, Max: &max}}},
		Globals: []Global{{Type: GlobalType{ValType: ValI64, Mutable: true}, Init: []byte{OpI64Const, 0x2a, OpEnd}}},
		Exports: []Export{
			{Name: "run", Kind: KindFunc, Idx: 1},
			{Name: "g", Kind: KindGlobal, Idx: 0},
		},
		Elements: []Element{{Flags: 0, TableIdx: 0, Offset: []byte{OpI32Const, 0x00, OpEnd}, FuncIdxs: []uint32{1}}},
		Code:     []FuncBody{{Locals: []LocalEntry{{Count: 2, ValType: ValI32}}, Code: []byte{OpI64Const, 0x07, OpEnd}}},
		Data:     []DataSegment{{MemIdx: 0, Offset: []byte{OpI32Const, 0x00, OpEnd}, Init: []byte("hi")}},
	}

	got, err := Decode(m.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Types) != 2 || len(got.Imports) != 2 || len(got.Funcs) != 1 {
		t.Fatalf("section counts: types=%d imports=%d funcs=%d",
			len(got.Types), len(got.Imports), len(got.Funcs))
	}
	if got.Imports[1].Desc.Kind != KindMemory || got.Imports[1].Desc.Memory.Limits.Min != 1 {
		t.Errorf("memory import = %+v", got.Imports[1])
	}
	if got.Tables[0].Limits.Max == nil || *got.Tables[0].Limits.Max != 16 {
		t.Errorf("table limits = %+v", got.Tables[0].Limits)
	}
	if !got.Globals[0].Type.Mutable || got.Globals[0].Type.ValType != ValI64 {
		t.Errorf("global type = %+v", got.Globals[0].Type)
	}
	if len(got.Elements) != 1 || len(got.Elements[0].FuncIdxs) != 1 || got.Elements[0].FuncIdxs[0] != 1 {
		t.Errorf("elements = %+v", got.Elements)
	}
	if len(got.Code) != 1 || len(got.Code[0].Locals) != 1 || got.Code[0].Locals[0].Count != 2 {
		t.Errorf("code = %+v", got.Code)
	}
	if string(got.Data[0].Init) != "hi" {
		t.Errorf("data = %q", got.Data[0].Init)
	}
	if got.NumImported(KindFunc) != 1 || got.NumImported(KindMemory) != 1 {
		t.Errorf("NumImported: funcs=%d mems=%d", got.NumImported(KindFunc), got.NumImported(KindMemory))
	}
	ft := got.FuncTypeAt(1)
	if ft == nil || len(ft.Results) != 1 || ft.Results[0] != ValI64 {
		t.Errorf("FuncTypeAt(1) = %+v", ft)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0x00, 0x61, 0x73}); err == nil {
		t.Error("truncated header accepted")
	}
	bad := append([]byte(nil), addModule...)
	bad[8] = 0x63 // unknown section id
	if _, err := Decode(bad); err == nil {
		t.Error("unknown section accepted")
	}
}

func TestRewriteImports(t *testing.T) {
	m := &Module{
		Imports: []Import{
			{Module: "env", Name: "log", Desc: ImportDesc{Kind: KindFunc}},
			{Module: "wasi_snapshot_preview1", Name: "fd_write", Desc: ImportDesc{Kind: KindFunc}},
		},
	}
	m.RewriteImports(func(module, name string, kind byte) (string, string) {
		if module == "env" {
			return "host.1", name
		}
		return module, name
	})
	if m.Imports[0].Module != "host.1" || m.Imports[0].Name != "log" {
		t.Errorf("import 0 = %+v", m.Imports[0])
	}
	if m.Imports[1].Module != "wasi_snapshot_preview1" {
		t.Errorf("import 1 = %+v", m.Imports[1])
	}
}
