package wasm

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Synthetic single-entity modules. A host-created global, table or
// memory has no module of its own, so one is minted on the fly: a
// module that declares exactly one entity and exports it. The runtime
// instantiates it under a unique name and points guest imports at it.

// SynthGlobal returns an encoded module defining one global of type t,
// initialized by init (a const expression including the trailing end),
// exported under exportName.
func SynthGlobal(exportName string, t GlobalType, init []byte) []byte {
	m := &Module{
		Globals: []Global{{Type: t, Init: init}},
		Exports: []Export{{Name: exportName, Kind: KindGlobal, Idx: 0}},
	}
	return m.Encode()
}

// SynthMemory returns an encoded module defining one linear memory with
// the given limits, exported under exportName.
func SynthMemory(exportName string, lim Limits) []byte {
	m := &Module{
		Memories: []MemoryType{{Limits: lim}},
		Exports:  []Export{{Name: exportName, Kind: KindMemory, Idx: 0}},
	}
	return m.Encode()
}

// SynthFunc returns an encoded module that imports one function of
// signature t from (importModule, importName) and re-exports it under
// exportName. Host module instances refuse ExportedFunction, so the
// runtime links every host function through one of these.
func SynthFunc(importModule, importName, exportName string, t FuncType) []byte {
	m := &Module{
		Types: []FuncType{t},
		Imports: []Import{{
			Module: importModule,
			Name:   importName,
			Desc:   ImportDesc{Kind: KindFunc, TypeIdx: 0},
		}},
		Exports: []Export{{Name: exportName, Kind: KindFunc, Idx: 0}},
	}
	return m.Encode()
}

// SynthTable returns an encoded module defining one table of type t,
// exported under exportName.
func SynthTable(exportName string, t TableType) []byte {
	m := &Module{
		Tables:  []TableType{t},
		Exports: []Export{{Name: exportName, Kind: KindTable, Idx: 0}},
	}
	return m.Encode()
}

// ConstExpr builds a const init expression for the given value type.
// For numeric types bits holds the raw value (sign-extended for i32).
// Reference types initialize to null; bits is ignored.
func ConstExpr(valType byte, bits uint64) []byte {
	var b bytes.Buffer
	switch valType {
	case ValI32:
		b.WriteByte(OpI32Const)
		WriteS32(&b, int32(bits))
	case ValI64:
		b.WriteByte(OpI64Const)
		WriteS64(&b, int64(bits))
	case ValF32:
		b.WriteByte(OpF32Const)
		var le [4]byte
		binary.LittleEndian.PutUint32(le[:], uint32(bits))
		b.Write(le[:])
	case ValF64:
		b.WriteByte(OpF64Const)
		var le [8]byte
		binary.LittleEndian.PutUint64(le[:], bits)
		b.Write(le[:])
	case ValFuncRef, ValExternRef:
		b.WriteByte(OpRefNull)
		b.WriteByte(valType)
	}
	b.WriteByte(OpEnd)
	return b.Bytes()
}

// F32Bits and F64Bits convert floats to the raw form ConstExpr expects.
func F32Bits(f float32) uint64 { return uint64(math.Float32bits(f)) }
func F64Bits(f float64) uint64 { return math.Float64bits(f) }
