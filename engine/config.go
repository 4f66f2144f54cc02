package engine

// Strategy selects how modules are executed.
type Strategy int

const (
	// StrategyAuto picks the compiler when the platform supports it.
	StrategyAuto Strategy = iota
	// StrategyCompiler requires ahead-of-time native compilation.
	StrategyCompiler
	// StrategyInterpreter forces the platform-independent interpreter.
	StrategyInterpreter
)

// OptLevel expresses the requested code generation effort. The wazero
// compiler has a single code generator, so the level is recorded for
// introspection but does not change generated code.
type OptLevel int

const (
	OptNone OptLevel = iota
	OptSpeed
	OptSpeedAndSize
)

// ProfilingStrategy selects guest profiling support. Only ProfileNone
// is implemented; anything else is rejected at engine creation.
type ProfilingStrategy int

const (
	ProfileNone ProfilingStrategy = iota
	ProfileJitdump
	ProfileVTune
)

// Config holds engine-wide configuration. The zero value gives the
// defaults described on each field; NewConfig returns it ready for
// adjustment.
type Config struct {
	// DebugInfo keeps DWARF-based source information available so
	// traps can report source positions. Off by default.
	DebugInfo bool

	// ConsumeFuel turns on deterministic fuel metering. Modules are
	// instrumented at compile time and every store starts with zero
	// fuel; see Store.AddFuel.
	ConsumeFuel bool

	// Interruptable makes running guest code stop when the context
	// passed to a call is canceled; see Store.InterruptHandle.
	Interruptable bool

	// MaxWasmStack records the requested guest stack budget. The
	// runtime manages stacks itself, so this is informational. 0
	// means the runtime default.
	MaxWasmStack uint32

	// MemoryLimitPages caps every linear memory at this many 64KiB
	// pages. 0 means the 4GiB architecture limit.
	MemoryLimitPages uint32

	// Strategy picks compiler or interpreter execution.
	Strategy Strategy

	// OptLevel records the requested code generation effort.
	OptLevel OptLevel

	// Profiling selects a guest profiler. Only ProfileNone is
	// supported.
	Profiling ProfilingStrategy

	// Threads enables shared memories and atomic instructions.
	Threads bool

	// Feature toggles below default to enabled, matching the core
	// spec level the runtime targets.
	ReferenceTypes       bool
	SIMD                 bool
	BulkMemory           bool
	MultiValue           bool
	SignExtension        bool
	SaturatingTruncation bool

	// Cache enables an in-process compilation cache shared by all
	// stores of this engine. CacheDir additionally persists it on
	// disk across processes.
	Cache    bool
	CacheDir string
}

// NewConfig returns a Config with the default feature set enabled.
func NewConfig() *Config {
	return &Config{
		ReferenceTypes:       true,
		SIMD:                 true,
		BulkMemory:           true,
		MultiValue:           true,
		SignExtension:        true,
		SaturatingTruncation: true,
	}
}
