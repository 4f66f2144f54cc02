package runtime

import (
	"errors"
	"strings"

	"github.com/tetratelabs/wazero/sys"
)

// Frame is one entry of a trap's stack trace. Only symbolic
// information is available; index and offset fields are zero when the
// engine does not report them.
type Frame struct {
	FuncName   string
	ModuleName string
	FuncIndex  uint32
	FuncOffset uint64
}

// Trap is raised when WebAssembly execution aborts: an unreachable
// instruction, a memory fault, fuel exhaustion, an interrupt, an
// explicit host trap, or a WASI exit.
type Trap struct {
	msg    string
	frames []Frame
	exit   *int32
	cause  error
}

// NewTrap creates a trap with the given message, as a host function
// callback does to abort the calling guest.
func NewTrap(msg string) *Trap {
	return &Trap{msg: msg}
}

// Error implements the error interface.
func (t *Trap) Error() string { return "wasm trap: " + t.msg }

// Message returns the trap's message without the prefix.
func (t *Trap) Message() string { return t.msg }

// Frames returns the guest stack at the point of the trap, innermost
// first. It may be empty.
func (t *Trap) Frames() []Frame { return t.frames }

// ExitStatus returns the WASI exit code when the trap represents a
// proc_exit, and whether it does.
func (t *Trap) ExitStatus() (int32, bool) {
	if t.exit == nil {
		return 0, false
	}
	return *t.exit, true
}

// Unwrap exposes the underlying engine error, if any.
func (t *Trap) Unwrap() error { return t.cause }

const fuelExhaustedMsg = "all fuel consumed by WebAssembly"

// trapFromError classifies an execution error from the engine. The
// second result is false when err does not represent a guest trap (a
// host-side failure such as a type mismatch).
func trapFromError(err error) (*Trap, bool) {
	var pending *pendingTrap
	if errors.As(err, &pending) {
		return pending.trap, true
	}
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		// Close-on-context-done surfaces cancellation as an ExitError
		// with a reserved code; that is an interrupt, not a WASI exit.
		switch exitErr.ExitCode() {
		case sys.ExitCodeContextCanceled, sys.ExitCodeDeadlineExceeded:
			return &Trap{msg: "interrupt", cause: err}, true
		}
		code := int32(exitErr.ExitCode())
		return &Trap{msg: exitErr.Error(), exit: &code, cause: err}, true
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "module closed with context canceled"),
		strings.Contains(msg, "module closed with context deadline exceeded"):
		return &Trap{msg: "interrupt", cause: err}, true
	case strings.Contains(msg, "wasm error:"):
		return parseWasmError(msg, err), true
	}
	return nil, false
}

// parseWasmError splits wazero's "wasm error: <reason>\nwasm stack
// trace:\n\t<frames>" text into a message and frames.
func parseWasmError(msg string, cause error) *Trap {
	t := &Trap{cause: cause}

	reason := msg
	if i := strings.Index(msg, "wasm error:"); i >= 0 {
		reason = msg[i+len("wasm error:"):]
	}
	if i := strings.Index(reason, "\nwasm stack trace:"); i >= 0 {
		t.frames = parseStackTrace(reason[i+len("\nwasm stack trace:"):])
		reason = reason[:i]
	}
	t.msg = strings.TrimSpace(reason)
	return t
}

// parseStackTrace reads frames of the form "\tmodule.func(i32,i32)".
func parseStackTrace(s string) []Frame {
	var frames []Frame
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i := strings.IndexByte(line, '('); i >= 0 {
			line = line[:i]
		}
		f := Frame{FuncName: line}
		if i := strings.IndexByte(line, '.'); i >= 0 {
			f.ModuleName, f.FuncName = line[:i], line[i+1:]
		}
		frames = append(frames, f)
	}
	return frames
}

// pendingTrap carries a host-raised *Trap through the engine's panic
// recovery so the original trap object reaches the caller.
type pendingTrap struct {
	trap *Trap
}

func (p *pendingTrap) Error() string { return p.trap.Error() }
