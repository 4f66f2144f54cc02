package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmlite/wasmlite/types"
)

func compileText(t *testing.T, s *Store, source string) *Module {
	t.Helper()
	m, err := CompileText(context.Background(), s.Engine(), source)
	require.NoError(t, err)
	return m
}

func TestInstantiateAndCall(t *testing.T) {
	s := newTestStore(t)
	m := compileText(t, s, addSource)

	inst, err := NewInstance(context.Background(), s, m, nil)
	require.NoError(t, err)

	add, err := inst.Func("add")
	require.NoError(t, err)

	out, err := add.Call(context.Background(), ValI32(3), ValI32(4))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int32(7), out[0].I32())
}

func TestInstantiateMissingImports(t *testing.T) {
	s := newTestStore(t)
	m := compileText(t, s, `(module (import "env" "f" (func)))`)

	_, err := NewInstance(context.Background(), s, m, nil)
	require.Error(t, err)

	_, err = NewInstance(context.Background(), s, m, []Extern{nil})
	require.Error(t, err)
}

func TestInstantiateWithHostGlobal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := NewGlobal(ctx, s, types.NewGlobalType(types.I32(), true), ValI32(41))
	require.NoError(t, err)

	m := compileText(t, s, `(module
	  (import "env" "g" (global $g (mut i32)))
	  (func (export "bump") (result i32)
	    global.get $g
	    i32.const 1
	    i32.add
	    global.set $g
	    global.get $g))`)

	inst, err := NewInstance(ctx, s, m, []Extern{g})
	require.NoError(t, err)

	bump, err := inst.Func("bump")
	require.NoError(t, err)
	out, err := bump.Call(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(42), out[0].I32())
	require.Equal(t, int32(42), g.Get().I32(), "host handle sees guest writes")
}

func TestInstantiateWithHostMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mem, err := NewMemory(ctx, s, types.NewMemoryType(types.NewLimits(1, 2)))
	require.NoError(t, err)

	m := compileText(t, s, `(module
	  (import "env" "mem" (memory 1))
	  (func (export "peek") (param i32) (result i32)
	    local.get 0
	    i32.load8_u))`)

	inst, err := NewInstance(ctx, s, m, []Extern{mem})
	require.NoError(t, err)

	require.NoError(t, mem.Write(10, []byte{0xab}))

	peek, err := inst.Func("peek")
	require.NoError(t, err)
	out, err := peek.Call(ctx, ValI32(10))
	require.NoError(t, err)
	require.Equal(t, int32(0xab), out[0].I32())
}

func TestInstantiateTypeMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := NewGlobal(ctx, s, types.NewGlobalType(types.I64(), false), ValI64(0))
	require.NoError(t, err)

	m := compileText(t, s, `(module (import "env" "g" (global i32)))`)
	_, err = NewInstance(ctx, s, m, []Extern{g})
	require.Error(t, err)
}

func TestStartSectionTrap(t *testing.T) {
	s := newTestStore(t)
	m := compileText(t, s, `(module
	  (func $boom unreachable)
	  (start $boom))`)

	_, err := NewInstance(context.Background(), s, m, nil)
	var trap *Trap
	require.ErrorAs(t, err, &trap)
	require.Contains(t, trap.Message(), "unreachable")
}

func TestInstanceExports(t *testing.T) {
	s := newTestStore(t)
	m := compileText(t, s, `(module
	  (memory (export "mem") 1)
	  (global (export "g") i32 (i32.const 5))
	  (table (export "tbl") 4 funcref)
	  (func (export "f")))`)

	inst, err := NewInstance(context.Background(), s, m, nil)
	require.NoError(t, err)

	require.Len(t, inst.Exports(), 4)
	require.Nil(t, inst.Export("nope"))

	mem, err := inst.Memory("mem")
	require.NoError(t, err)
	require.Equal(t, uint32(1), mem.Size())

	g, err := inst.Global("g")
	require.NoError(t, err)
	require.Equal(t, int32(5), g.Get().I32())
	require.False(t, g.Type().Mutable)

	tbl := inst.Export("tbl")
	require.NotNil(t, tbl)
	require.Equal(t, types.ExternTable, tbl.Kind())

	_, err = inst.Func("mem")
	require.Error(t, err, "kind mismatch on typed lookup")
}

func TestGuestTrapHasFrames(t *testing.T) {
	s := newTestStore(t)
	m := compileText(t, s, `(module
	  (func $inner unreachable)
	  (func (export "outer") call $inner))`)

	inst, err := NewInstance(context.Background(), s, m, nil)
	require.NoError(t, err)

	outer, err := inst.Func("outer")
	require.NoError(t, err)

	_, err = outer.Call(context.Background())
	var trap *Trap
	require.ErrorAs(t, err, &trap)
	require.Contains(t, trap.Message(), "unreachable")
	require.NotEmpty(t, trap.Frames())
}
