package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmlite/wasmlite/engine"
	"github.com/wasmlite/wasmlite/types"
	"github.com/wasmlite/wasmlite/wasm"
)

const addSource = `(module
  (func (export "add") (param i32 i32) (result i32)
    local.get 0
    local.get 1
    i32.add))`

func TestCompileText(t *testing.T) {
	eng := engine.New()
	m, err := CompileText(context.Background(), eng, addSource)
	require.NoError(t, err)

	ty := m.Type()
	require.Empty(t, ty.Imports)
	require.Len(t, ty.Exports, 1)
	require.Equal(t, "add", ty.Exports[0].Name)
	require.Equal(t, types.ExternFunc, ty.Exports[0].Type.Kind)

	ft := ty.Exports[0].Type.Func
	require.NotNil(t, ft)
	require.Equal(t, []types.ValType{types.I32(), types.I32()}, ft.Params)
	require.Equal(t, []types.ValType{types.I32()}, ft.Results)
}

func TestCompileAutoDetectsText(t *testing.T) {
	eng := engine.New()

	m, err := Compile(context.Background(), eng, []byte(addSource))
	require.NoError(t, err)
	require.NotNil(t, m)

	bin, err := m.Serialize()
	require.NoError(t, err)
	require.NotNil(t, bin)
}

func TestCompileRejectsGarbage(t *testing.T) {
	eng := engine.New()
	_, err := Compile(context.Background(), eng, []byte("(module (func"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	eng := engine.New()

	bin, err := CompileText(context.Background(), eng, addSource)
	require.NoError(t, err)
	require.NoError(t, Validate(context.Background(), eng, bin.binary))

	require.Error(t, Validate(context.Background(), eng, []byte("not wasm")))
}

func TestSerializeRoundTrip(t *testing.T) {
	eng := engine.New()
	m, err := CompileText(context.Background(), eng, addSource)
	require.NoError(t, err)

	data, err := m.Serialize()
	require.NoError(t, err)

	m2, err := Deserialize(context.Background(), eng, data)
	require.NoError(t, err)
	require.Equal(t, m.Type(), m2.Type())

	_, err = Deserialize(context.Background(), eng, []byte("bogus"))
	require.Error(t, err)
}

func TestModuleTypeImports(t *testing.T) {
	eng := engine.New()
	m, err := CompileText(context.Background(), eng, `(module
	  (import "env" "log" (func (param i32)))
	  (import "env" "mem" (memory 1 4))
	  (import "env" "g" (global (mut i64)))
	  (import "env" "tbl" (table 2 funcref)))`)
	require.NoError(t, err)

	imps := m.Type().Imports
	require.Len(t, imps, 4)

	require.Equal(t, types.ExternFunc, imps[0].Type.Kind)
	require.Equal(t, "log", imps[0].Name)

	require.Equal(t, types.ExternMemory, imps[1].Type.Kind)
	require.Equal(t, types.Limits{Min: 1, Max: 4}, imps[1].Type.Memory.Limits)

	require.Equal(t, types.ExternGlobal, imps[2].Type.Kind)
	require.True(t, imps[2].Type.Global.Mutable)
	require.Equal(t, types.KindI64, imps[2].Type.Global.Content.Kind())

	require.Equal(t, types.ExternTable, imps[3].Type.Kind)
	require.Equal(t, types.KindFuncRef, imps[3].Type.Table.Element.Kind())
}

func TestFuelModuleHidesCounterExport(t *testing.T) {
	cfg := engine.NewConfig()
	cfg.ConsumeFuel = true
	eng, err := engine.NewWithConfig(cfg)
	require.NoError(t, err)

	m, err := CompileText(context.Background(), eng, addSource)
	require.NoError(t, err)
	require.True(t, m.hasFuel)

	for _, exp := range m.Type().Exports {
		require.NotEqual(t, wasm.FuelExportName, exp.Name)
	}
}
