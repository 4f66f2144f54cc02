package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/types"
)

func TestHostFuncCalledFromGuest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var got []int32
	log, err := NewFunc(ctx, s, types.NewFuncType([]types.ValType{types.I32()}, nil),
		func(caller *Caller, args []Val) ([]Val, *Trap) {
			got = append(got, args[0].I32())
			return nil, nil
		})
	require.NoError(t, err)

	m := compileText(t, s, `(module
	  (import "env" "log" (func $log (param i32)))
	  (func (export "run")
	    i32.const 11
	    call $log
	    i32.const 22
	    call $log))`)

	inst, err := NewInstance(ctx, s, m, []Extern{log})
	require.NoError(t, err)

	run, err := inst.Func("run")
	require.NoError(t, err)
	_, err = run.Call(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{11, 22}, got)
}

func TestHostFuncResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	double, err := NewFunc(ctx, s, types.NewFuncType(
		[]types.ValType{types.I64()}, []types.ValType{types.I64()}),
		func(caller *Caller, args []Val) ([]Val, *Trap) {
			return []Val{ValI64(args[0].I64() * 2)}, nil
		})
	require.NoError(t, err)

	out, err := double.Call(ctx, ValI64(21))
	require.NoError(t, err)
	require.Equal(t, int64(42), out[0].I64())
}

func TestHostFuncTrapPropagates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom, err := NewFunc(ctx, s, types.NewFuncType(nil, nil),
		func(caller *Caller, args []Val) ([]Val, *Trap) {
			return nil, NewTrap("host said no")
		})
	require.NoError(t, err)

	m := compileText(t, s, `(module
	  (import "env" "boom" (func $boom))
	  (func (export "run") call $boom))`)

	inst, err := NewInstance(ctx, s, m, []Extern{boom})
	require.NoError(t, err)

	run, err := inst.Func("run")
	require.NoError(t, err)
	_, err = run.Call(ctx)

	var trap *Trap
	require.ErrorAs(t, err, &trap)
	require.Equal(t, "host said no", trap.Message())
}

func TestHostFuncCallerExports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	read, err := NewFunc(ctx, s, types.NewFuncType(
		[]types.ValType{types.I32()}, []types.ValType{types.I32()}),
		func(caller *Caller, args []Val) ([]Val, *Trap) {
			mem, ok := caller.ExportedMemory("mem")
			if !ok {
				return nil, NewTrap("caller has no memory")
			}
			b, err := mem.Read(uint32(args[0].I32()), 1)
			if err != nil {
				return nil, NewTrap(err.Error())
			}
			return []Val{ValI32(int32(b[0]))}, nil
		})
	require.NoError(t, err)

	m := compileText(t, s, `(module
	  (import "env" "read" (func $read (param i32) (result i32)))
	  (memory (export "mem") 1)
	  (data (i32.const 8) "\2a")
	  (func (export "run") (result i32)
	    i32.const 8
	    call $read))`)

	inst, err := NewInstance(ctx, s, m, []Extern{read})
	require.NoError(t, err)

	run, err := inst.Func("run")
	require.NoError(t, err)
	out, err := run.Call(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(42), out[0].I32())
}

func TestHostFuncRejectsV128Signature(t *testing.T) {
	s := newTestStore(t)
	_, err := NewFunc(context.Background(), s,
		types.NewFuncType([]types.ValType{types.V128()}, nil),
		func(caller *Caller, args []Val) ([]Val, *Trap) { return nil, nil })
	require.ErrorIs(t, err, &errs.Error{Kind: errs.KindUnsupported})
}

func TestCallArgumentChecking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := compileText(t, s, addSource)

	inst, err := NewInstance(ctx, s, m, nil)
	require.NoError(t, err)
	add, err := inst.Func("add")
	require.NoError(t, err)

	_, err = add.Call(ctx, ValI32(1))
	require.ErrorIs(t, err, &errs.Error{Kind: errs.KindTypeMismatch})

	_, err = add.Call(ctx, ValI32(1), ValI64(2))
	require.ErrorIs(t, err, &errs.Error{Kind: errs.KindTypeMismatch})
}

func TestExternRefThroughGuest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := compileText(t, s, `(module
	  (func (export "id") (param externref) (result externref)
	    local.get 0))`)

	inst, err := NewInstance(ctx, s, m, nil)
	require.NoError(t, err)
	id, err := inst.Func("id")
	require.NoError(t, err)

	ref := NewExternRef(s, "hello")
	out, err := id.Call(ctx, ValExternref(ref))
	require.NoError(t, err)
	require.Equal(t, "hello", out[0].Externref().Data())

	out, err = id.Call(ctx, ValExternref(nil))
	require.NoError(t, err)
	require.Nil(t, out[0].Externref())
}
