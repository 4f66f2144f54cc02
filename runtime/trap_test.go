package runtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTrap(t *testing.T) {
	trap := NewTrap("boom")
	require.Equal(t, "wasm trap: boom", trap.Error())
	require.Equal(t, "boom", trap.Message())
	require.Empty(t, trap.Frames())

	_, isExit := trap.ExitStatus()
	require.False(t, isExit)
}

func TestTrapFromErrorPending(t *testing.T) {
	orig := NewTrap("host abort")
	wrapped := fmt.Errorf("call failed: %w", &pendingTrap{trap: orig})

	trap, ok := trapFromError(wrapped)
	require.True(t, ok)
	require.Same(t, orig, trap)
}

func TestTrapFromErrorWasmError(t *testing.T) {
	err := errors.New("module[m] function[f] failed: wasm error: integer divide by zero\n" +
		"wasm stack trace:\n" +
		"\tm.div(i32,i32) i32\n" +
		"\tm.main()")

	trap, ok := trapFromError(err)
	require.True(t, ok)
	require.Equal(t, "integer divide by zero", trap.Message())
	require.Len(t, trap.Frames(), 2)
	require.Equal(t, "div", trap.Frames()[0].FuncName)
	require.Equal(t, "m", trap.Frames()[0].ModuleName)
	require.Equal(t, "main", trap.Frames()[1].FuncName)
	require.ErrorIs(t, trap, err)
}

func TestTrapFromErrorInterrupt(t *testing.T) {
	err := errors.New("module closed with context canceled")
	trap, ok := trapFromError(err)
	require.True(t, ok)
	require.Equal(t, "interrupt", trap.Message())
}

func TestTrapFromErrorNotATrap(t *testing.T) {
	_, ok := trapFromError(errors.New("expected 2 params, but passed 1"))
	require.False(t, ok)
}
