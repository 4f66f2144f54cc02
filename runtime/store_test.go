package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wasmlite/wasmlite/engine"
	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(context.Background(), engine.New())
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func newFuelStore(t *testing.T) *Store {
	t.Helper()
	cfg := engine.NewConfig()
	cfg.ConsumeFuel = true
	eng, err := engine.NewWithConfig(cfg)
	require.NoError(t, err)
	s := NewStore(context.Background(), eng)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestStoreClose(t *testing.T) {
	s := NewStore(context.Background(), engine.New())
	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()), "close is idempotent")

	err := s.ensureOpen()
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, errs.KindClosed, e.Kind)
}

func TestStoreUniqueNames(t *testing.T) {
	s := newTestStore(t)
	require.Equal(t, "host.1", s.uniqueName("host"))
	require.Equal(t, "host.2", s.uniqueName("host"))
	require.Equal(t, "instance.1", s.uniqueName("instance"))
}

func TestFuelDisabled(t *testing.T) {
	s := newTestStore(t)

	err := s.AddFuel(100)
	require.ErrorIs(t, err, errs.FuelDisabled())

	_, ok := s.FuelConsumed()
	require.False(t, ok)
	_, ok = s.FuelRemaining()
	require.False(t, ok)
}

func TestFuelAccounting(t *testing.T) {
	s := newFuelStore(t)
	require.NoError(t, s.AddFuel(100))

	remaining, ok := s.FuelRemaining()
	require.True(t, ok)
	require.Equal(t, uint64(100), remaining)

	consumed, ok := s.FuelConsumed()
	require.True(t, ok)
	require.Zero(t, consumed)
}

func TestExternRefRoundTrip(t *testing.T) {
	s := newTestStore(t)

	type payload struct{ n int }
	ref := NewExternRef(s, &payload{n: 7})
	require.Equal(t, &payload{n: 7}, ref.Data())

	ref.Unwrap()
	require.Nil(t, ref.Data())

	require.Nil(t, s.externRefFromHandle(0), "handle 0 is the null reference")
}

func newInterruptableStore(t *testing.T) *Store {
	t.Helper()
	cfg := engine.NewConfig()
	cfg.Interruptable = true
	cfg.Strategy = engine.StrategyInterpreter
	eng, err := engine.NewWithConfig(cfg)
	require.NoError(t, err)
	s := NewStore(context.Background(), eng)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestInterruptStopsRunningCall(t *testing.T) {
	s := newInterruptableStore(t)
	ctx := context.Background()

	m := compileText(t, s, `(module
	  (func (export "spin")
	    (loop $l br $l)))`)
	inst, err := NewInstance(ctx, s, m, nil)
	require.NoError(t, err)
	spin, err := inst.Func("spin")
	require.NoError(t, err)

	h, err := s.InterruptHandle()
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		h.Interrupt()
	}()

	_, err = spin.Call(ctx)
	var trap *Trap
	require.ErrorAs(t, err, &trap)
	require.Equal(t, "interrupt", trap.Message())
	_, isExit := trap.ExitStatus()
	require.False(t, isExit, "an interrupt is not a guest exit")
}

func TestInterruptAfterReentrantCall(t *testing.T) {
	s := newInterruptableStore(t)
	ctx := context.Background()

	// The host function calls back into the guest; once that inner
	// call returns, the outer call must still be interruptable.
	tick, err := NewFunc(ctx, s, types.FuncType{},
		func(caller *Caller, args []Val) ([]Val, *Trap) {
			noop, ok := caller.ExportedFunc("noop")
			if !ok {
				return nil, NewTrap("noop export missing")
			}
			if _, err := noop.Call(context.Background()); err != nil {
				return nil, NewTrap(err.Error())
			}
			return nil, nil
		})
	require.NoError(t, err)

	m := compileText(t, s, `(module
	  (import "env" "tick" (func $tick))
	  (func (export "noop"))
	  (func (export "outer")
	    call $tick
	    (loop $l br $l)))`)
	inst, err := NewInstance(ctx, s, m, []Extern{tick})
	require.NoError(t, err)
	outer, err := inst.Func("outer")
	require.NoError(t, err)

	h, err := s.InterruptHandle()
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		h.Interrupt()
	}()

	_, err = outer.Call(ctx)
	var trap *Trap
	require.ErrorAs(t, err, &trap)
	require.Equal(t, "interrupt", trap.Message())
}

func TestFuelCountersDroppedWithInstance(t *testing.T) {
	s := newFuelStore(t)
	ctx := context.Background()
	require.NoError(t, s.AddFuel(10000))

	m := compileText(t, s, addSource)
	inst1, err := NewInstance(ctx, s, m, nil)
	require.NoError(t, err)
	inst2, err := NewInstance(ctx, s, m, nil)
	require.NoError(t, err)
	require.Len(t, s.fuelGlobals, 2)

	require.NoError(t, inst1.mod.Close(ctx))

	add, err := inst2.Func("add")
	require.NoError(t, err)
	_, err = add.Call(ctx, ValI32(1), ValI32(2))
	require.NoError(t, err)
	require.Len(t, s.fuelGlobals, 1, "counters of closed instances are pruned")
}

func TestInterruptHandleRequiresConfig(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InterruptHandle()
	require.Error(t, err)

	cfg := engine.NewConfig()
	cfg.Interruptable = true
	eng, err := engine.NewWithConfig(cfg)
	require.NoError(t, err)
	si := NewStore(context.Background(), eng)
	defer si.Close(context.Background())

	h, err := si.InterruptHandle()
	require.NoError(t, err)
	h.Interrupt() // no active call; must not panic
}
