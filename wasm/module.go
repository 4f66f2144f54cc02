package wasm

// Module is the section model of a parsed core module.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type indices of locally defined functions
	Tables   []TableType
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Elements []Element
	Code     []FuncBody
	Data     []DataSegment

	// DataCount mirrors the data count section when present; required by
	// validators when bulk memory instructions reference data segments.
	DataCount *uint32

	CustomSections []CustomSection
}

// FuncType is a function signature in binary form.
type FuncType struct {
	Params  []byte // value type bytes
	Results []byte
}

// Equal reports whether two signatures are identical.
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

// Import is one entry of the import section.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ImportDesc describes the imported item. Kind selects which field applies.
type ImportDesc struct {
	Kind    byte
	TypeIdx uint32 // KindFunc
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
}

// TableType is a table declaration.
type TableType struct {
	ElemType byte // ValFuncRef or ValExternRef
	Limits   Limits
}

// MemoryType is a linear memory declaration.
type MemoryType struct {
	Limits Limits
}

// Limits bounds a table or memory.
type Limits struct {
	Min    uint64
	Max    *uint64
	Shared bool
}

// GlobalType is a global declaration's type.
type GlobalType struct {
	ValType byte
	Mutable bool
}

// Global is a defined global with its init expression (including the
// trailing end opcode).
type Global struct {
	Type GlobalType
	Init []byte
}

// Export is one entry of the export section.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Element is an element segment. Only the function-index forms carry
// FuncIdxs; expression forms keep their raw expressions.
type Element struct {
	Flags    uint32
	TableIdx uint32
	Offset   []byte // init expression, active segments only
	ElemKind byte
	RefType  byte
	FuncIdxs []uint32
	Exprs    [][]byte
}

// FuncBody is one code section entry.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // bytecode including the final end opcode
}

// LocalEntry groups consecutive locals of one type.
type LocalEntry struct {
	Count   uint32
	ValType byte
}

// DataSegment is one data section entry.
type DataSegment struct {
	Flags  uint32
	MemIdx uint32
	Offset []byte // init expression, active segments only
	Init   []byte
}

// CustomSection preserves named custom sections across re-encoding.
type CustomSection struct {
	Name string
	Data []byte
}

// NumImported counts imports of the given kind.
func (m *Module) NumImported(kind byte) uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Desc.Kind == kind {
			n++
		}
	}
	return n
}

// FuncTypeAt returns the signature of the function at the given index in
// the joint (imported then defined) function index space.
func (m *Module) FuncTypeAt(funcIdx uint32) *FuncType {
	var seen uint32
	for i := range m.Imports {
		if m.Imports[i].Desc.Kind != KindFunc {
			continue
		}
		if seen == funcIdx {
			return m.typeAt(m.Imports[i].Desc.TypeIdx)
		}
		seen++
	}
	local := funcIdx - seen
	if int(local) >= len(m.Funcs) {
		return nil
	}
	return m.typeAt(m.Funcs[local])
}

func (m *Module) typeAt(idx uint32) *FuncType {
	if int(idx) >= len(m.Types) {
		return nil
	}
	return &m.Types[idx]
}

// AddType interns a signature, returning its type index.
func (m *Module) AddType(t FuncType) uint32 {
	for i := range m.Types {
		if m.Types[i].Equal(t) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, t)
	return uint32(len(m.Types) - 1)
}
