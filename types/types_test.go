package types_test

import (
	"testing"

	"github.com/wasmlite/wasmlite/types"
)

func TestValTypeKinds(t *testing.T) {
	tests := []struct {
		ty   types.ValType
		kind types.ValKind
		str  string
	}{
		{types.I32(), types.KindI32, "i32"},
		{types.I64(), types.KindI64, "i64"},
		{types.F32(), types.KindF32, "f32"},
		{types.F64(), types.KindF64, "f64"},
		{types.V128(), types.KindV128, "v128"},
		{types.FuncRef(), types.KindFuncRef, "funcref"},
		{types.ExternRef(), types.KindExternRef, "externref"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if tt.ty.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", tt.ty.Kind(), tt.kind)
			}
			if tt.ty.String() != tt.str {
				t.Errorf("String() = %q, want %q", tt.ty.String(), tt.str)
			}
		})
	}
}

func TestLimits(t *testing.T) {
	l := types.NewLimitsMin(1)
	if l.Min != 1 {
		t.Errorf("Min = %d, want 1", l.Min)
	}
	if l.HasMax() {
		t.Error("unbounded limits should not have max")
	}

	l = types.NewLimits(2, 3)
	if l.Min != 2 || l.Max != 3 {
		t.Errorf("limits = %d..%d, want 2..3", l.Min, l.Max)
	}
	if !l.HasMax() {
		t.Error("bounded limits should have max")
	}
}

func TestFuncTypeEqual(t *testing.T) {
	a := types.NewFuncType([]types.ValType{types.I32()}, []types.ValType{types.I64()})
	b := types.NewFuncType([]types.ValType{types.I32()}, []types.ValType{types.I64()})
	c := types.NewFuncType([]types.ValType{types.I64()}, []types.ValType{types.I64()})

	if !a.Equal(b) {
		t.Error("identical signatures should be equal")
	}
	if a.Equal(c) {
		t.Error("different params should not be equal")
	}
	if a.String() != "(func (param i32) (result i64))" {
		t.Errorf("String() = %q", a.String())
	}
}

func TestExternType(t *testing.T) {
	gt := types.NewGlobalType(types.I32(), false)
	et := types.GlobalExtern(gt)

	if et.Kind != types.ExternGlobal {
		t.Errorf("Kind = %v, want global", et.Kind)
	}
	if et.Global == nil || et.Global.Content.Kind() != types.KindI32 {
		t.Error("global payload missing or wrong")
	}
	if et.Func != nil || et.Table != nil || et.Memory != nil {
		t.Error("other payloads must be nil")
	}
	if et.Kind.String() != "global" {
		t.Errorf("Kind.String() = %q", et.Kind.String())
	}
}
