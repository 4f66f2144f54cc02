package wasm

import (
	"bytes"
	"testing"
)

func TestSynthGlobal(t *testing.T) {
	bin := SynthGlobal("g", GlobalType{ValType: ValI32, Mutable: true}, ConstExpr(ValI32, uint64(uint32(42))))
	m, err := Decode(bin)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Globals) != 1 {
		t.Fatalf("globals = %d", len(m.Globals))
	}
	g := m.Globals[0]
	if g.Type.ValType != ValI32 || !g.Type.Mutable {
		t.Errorf("type = %+v", g.Type)
	}
	if !bytes.Equal(g.Init, []byte{OpI32Const, 0x2a, OpEnd}) {
		t.Errorf("init = % x", g.Init)
	}
	if len(m.Exports) != 1 || m.Exports[0].Name != "g" || m.Exports[0].Kind != KindGlobal {
		t.Errorf("exports = %+v", m.Exports)
	}
}

func TestSynthMemory(t *testing.T) {
	max := uint64(8)
	m, err := Decode(SynthMemory("mem", Limits{Min: 2, Max: &max}))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Memories) != 1 || m.Memories[0].Limits.Min != 2 {
		t.Fatalf("memories = %+v", m.Memories)
	}
	if m.Memories[0].Limits.Max == nil || *m.Memories[0].Limits.Max != 8 {
		t.Errorf("max = %v", m.Memories[0].Limits.Max)
	}
	if m.Exports[0].Name != "mem" || m.Exports[0].Kind != KindMemory {
		t.Errorf("exports = %+v", m.Exports)
	}
}

func TestSynthFunc(t *testing.T) {
	sig := FuncType{Params: []byte{ValI32, ValI32}, Results: []byte{ValI32}}
	m, err := Decode(SynthFunc("host.1", "fn", "fn", sig))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Types) != 1 || !m.Types[0].Equal(sig) {
		t.Fatalf("types = %+v", m.Types)
	}
	if len(m.Imports) != 1 {
		t.Fatalf("imports = %+v", m.Imports)
	}
	imp := m.Imports[0]
	if imp.Module != "host.1" || imp.Name != "fn" || imp.Desc.Kind != KindFunc || imp.Desc.TypeIdx != 0 {
		t.Errorf("import = %+v", imp)
	}
	if len(m.Exports) != 1 || m.Exports[0].Name != "fn" || m.Exports[0].Kind != KindFunc || m.Exports[0].Idx != 0 {
		t.Errorf("exports = %+v", m.Exports)
	}
}

func TestSynthTable(t *testing.T) {
	m, err := Decode(SynthTable("t", TableType{ElemType: ValFuncRef, Limits: Limits{Min: 4}}))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Tables) != 1 || m.Tables[0].ElemType != ValFuncRef || m.Tables[0].Limits.Min != 4 {
		t.Fatalf("tables = %+v", m.Tables)
	}
	if m.Exports[0].Kind != KindTable {
		t.Errorf("exports = %+v", m.Exports)
	}
}

func TestConstExpr(t *testing.T) {
	cases := []struct {
		name    string
		valType byte
		bits    uint64
		want    []byte
	}{
		{"i32", ValI32, uint64(uint32(7)), []byte{OpI32Const, 0x07, OpEnd}},
		{"i64 negative", ValI64, uint64(0xffffffffffffffff), []byte{OpI64Const, 0x7f, OpEnd}},
		{"f32", ValF32, F32Bits(1.0), []byte{OpF32Const, 0x00, 0x00, 0x80, 0x3f, OpEnd}},
		{"funcref", ValFuncRef, 0, []byte{OpRefNull, ValFuncRef, OpEnd}},
		{"externref", ValExternRef, 0, []byte{OpRefNull, ValExternRef, OpEnd}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConstExpr(tc.valType, tc.bits); !bytes.Equal(got, tc.want) {
				t.Errorf("ConstExpr = % x, want % x", got, tc.want)
			}
		})
	}
}
