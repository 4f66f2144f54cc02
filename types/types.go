package types

// ValKind enumerates WebAssembly value kinds.
type ValKind int

const (
	KindI32 ValKind = iota
	KindI64
	KindF32
	KindF64
	KindV128
	KindFuncRef
	KindExternRef
)

func (k ValKind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindV128:
		return "v128"
	case KindFuncRef:
		return "funcref"
	case KindExternRef:
		return "externref"
	default:
		return "unknown"
	}
}

// ValType is a WebAssembly value type. It currently carries only the kind;
// the distinct type exists so signatures read like the core wasm grammar.
type ValType struct {
	kind ValKind
}

// NewValType creates a value type of the given kind.
func NewValType(kind ValKind) ValType {
	return ValType{kind: kind}
}

// Shorthand constructors named after the wasm value types.
func I32() ValType       { return ValType{kind: KindI32} }
func I64() ValType       { return ValType{kind: KindI64} }
func F32() ValType       { return ValType{kind: KindF32} }
func F64() ValType       { return ValType{kind: KindF64} }
func V128() ValType      { return ValType{kind: KindV128} }
func FuncRef() ValType   { return ValType{kind: KindFuncRef} }
func ExternRef() ValType { return ValType{kind: KindExternRef} }

// Kind returns the value kind.
func (t ValType) Kind() ValKind { return t.kind }

func (t ValType) String() string { return t.kind.String() }

// NoMax marks a limit without an upper bound.
const NoMax = ^uint32(0)

// Limits bounds the size of a memory or table, in pages or elements.
type Limits struct {
	Min uint32
	Max uint32 // NoMax when unbounded
}

// NewLimits creates bounded limits.
func NewLimits(min, max uint32) Limits {
	return Limits{Min: min, Max: max}
}

// NewLimitsMin creates limits with no upper bound.
func NewLimitsMin(min uint32) Limits {
	return Limits{Min: min, Max: NoMax}
}

// HasMax reports whether an upper bound is set.
func (l Limits) HasMax() bool { return l.Max != NoMax }

// MemoryType describes a linear memory.
type MemoryType struct {
	Limits Limits
}

// NewMemoryType creates a memory type with the given page limits.
func NewMemoryType(limits Limits) MemoryType {
	return MemoryType{Limits: limits}
}

// TableType describes a table of reference values.
type TableType struct {
	Element ValType
	Limits  Limits
}

// NewTableType creates a table type. Element must be a reference kind.
func NewTableType(element ValType, limits Limits) TableType {
	return TableType{Element: element, Limits: limits}
}

// GlobalType describes a global variable.
type GlobalType struct {
	Content ValType
	Mutable bool
}

// NewGlobalType creates a global type.
func NewGlobalType(content ValType, mutable bool) GlobalType {
	return GlobalType{Content: content, Mutable: mutable}
}

// FuncType describes a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// NewFuncType creates a function type.
func NewFuncType(params, results []ValType) FuncType {
	return FuncType{Params: params, Results: results}
}

// Equal reports whether two signatures match exactly.
func (t FuncType) Equal(other FuncType) bool {
	if len(t.Params) != len(other.Params) || len(t.Results) != len(other.Results) {
		return false
	}
	for i := range t.Params {
		if t.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range t.Results {
		if t.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}

func (t FuncType) String() string {
	s := "(func"
	for _, p := range t.Params {
		s += " (param " + p.String() + ")"
	}
	for _, r := range t.Results {
		s += " (result " + r.String() + ")"
	}
	return s + ")"
}

// ExternKind enumerates the externally visible item kinds.
type ExternKind int

const (
	ExternFunc ExternKind = iota
	ExternGlobal
	ExternTable
	ExternMemory
	ExternInstance
	ExternModule
)

func (k ExternKind) String() string {
	switch k {
	case ExternFunc:
		return "func"
	case ExternGlobal:
		return "global"
	case ExternTable:
		return "table"
	case ExternMemory:
		return "memory"
	case ExternInstance:
		return "instance"
	case ExternModule:
		return "module"
	default:
		return "unknown"
	}
}

// ExternType is the tagged union over importable/exportable item types.
// Exactly one of the pointers is non-nil, matching Kind.
type ExternType struct {
	Kind   ExternKind
	Func   *FuncType
	Global *GlobalType
	Table  *TableType
	Memory *MemoryType
}

// FuncExtern wraps a function type as an extern type.
func FuncExtern(t FuncType) ExternType {
	return ExternType{Kind: ExternFunc, Func: &t}
}

// GlobalExtern wraps a global type as an extern type.
func GlobalExtern(t GlobalType) ExternType {
	return ExternType{Kind: ExternGlobal, Global: &t}
}

// TableExtern wraps a table type as an extern type.
func TableExtern(t TableType) ExternType {
	return ExternType{Kind: ExternTable, Table: &t}
}

// MemoryExtern wraps a memory type as an extern type.
func MemoryExtern(t MemoryType) ExternType {
	return ExternType{Kind: ExternMemory, Memory: &t}
}

// ImportType describes one import a module requires.
type ImportType struct {
	Module string
	Name   string
	Type   ExternType
}

// ExportType describes one export a module or instance provides.
type ExportType struct {
	Name string
	Type ExternType
}

// ModuleType lists a compiled module's imports and exports.
type ModuleType struct {
	Imports []ImportType
	Exports []ExportType
}

// InstanceType lists a live instance's exports.
type InstanceType struct {
	Exports []ExportType
}
