package runtime

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/tetratelabs/wazero"

	"github.com/wasmlite/wasmlite/engine"
	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/types"
	"github.com/wasmlite/wasmlite/wasm"
	"github.com/wasmlite/wasmlite/wat"
)

// Module is a validated module ready for instantiation in any store of
// the same engine. Compilation itself happens per store; the module
// carries the (possibly fuel-instrumented) binary and its section
// model for type introspection and import rewiring.
type Module struct {
	eng *engine.Engine

	// original is the input binary before fuel instrumentation; it is
	// what Serialize captures.
	original []byte
	// binary is what actually gets instantiated.
	binary  []byte
	decoded *wasm.Module

	hasFuel bool
}

// Compile builds a module from binary input, or from WAT text when the
// input lacks the binary magic.
func Compile(ctx context.Context, eng *engine.Engine, input []byte) (*Module, error) {
	bin := input
	if !wasm.IsModule(input) {
		comp, err := wat.Compile(string(input))
		if err != nil {
			return nil, err
		}
		bin = comp
	}
	return compileBinary(ctx, eng, bin)
}

// CompileText builds a module from WAT source.
func CompileText(ctx context.Context, eng *engine.Engine, source string) (*Module, error) {
	bin, err := wat.Compile(source)
	if err != nil {
		return nil, err
	}
	return compileBinary(ctx, eng, bin)
}

func compileBinary(ctx context.Context, eng *engine.Engine, bin []byte) (*Module, error) {
	m := &Module{eng: eng, original: bin, binary: bin}

	decoded, err := wasm.Decode(bin)
	if err != nil {
		return nil, errs.Compile("module", err)
	}
	m.decoded = decoded

	if eng.Config().ConsumeFuel {
		if _, err := wasm.InstrumentFuel(decoded); err != nil {
			return nil, errs.Compile("fuel instrumentation", err)
		}
		m.hasFuel = true
		m.binary = decoded.Encode()
	}

	// A scratch runtime validates the result up front so instantiation
	// failures surface at compile time, the way embedders expect.
	scratch := newScratchRuntime(ctx, eng)
	defer scratch.Close(ctx)
	if _, err := scratch.CompileModule(ctx, m.binary); err != nil {
		return nil, errs.Compile("module", err)
	}
	return m, nil
}

// Validate checks that the input is a well-formed module for this
// engine's configuration, without keeping anything.
func Validate(ctx context.Context, eng *engine.Engine, bin []byte) error {
	if !wasm.IsModule(bin) {
		return errs.New(errs.PhaseCompile, errs.KindInvalidInput).
			Detail("input is not a binary module").Build()
	}
	scratch := newScratchRuntime(ctx, eng)
	defer scratch.Close(ctx)
	if _, err := scratch.CompileModule(ctx, bin); err != nil {
		return errs.Compile("module", err)
	}
	return nil
}

// newScratchRuntime builds a throwaway runtime for validation. The
// engine's compilation cache is shared, so work done here is not lost
// when the module is later instantiated in a store.
func newScratchRuntime(ctx context.Context, eng *engine.Engine) wazero.Runtime {
	return wazero.NewRuntimeWithConfig(ctx, eng.RuntimeConfig())
}

// serializeMagic distinguishes serialized modules from plain binaries.
// The payload is the original module: deserialization recompiles,
// which keeps serialized modules portable across hosts at the cost of
// not caching machine code. Engines with a CacheDir recover most of
// that cost.
var serializeMagic = []byte("wasmlite\x01")

// Serialize returns a byte representation of the module for
// Deserialize.
func (m *Module) Serialize() ([]byte, error) {
	var b bytes.Buffer
	b.Write(serializeMagic)
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(m.original)))
	b.Write(size[:])
	b.Write(m.original)
	return b.Bytes(), nil
}

// Deserialize rebuilds a module produced by Serialize.
func Deserialize(ctx context.Context, eng *engine.Engine, data []byte) (*Module, error) {
	if !bytes.HasPrefix(data, serializeMagic) {
		return nil, errs.New(errs.PhaseCompile, errs.KindInvalidInput).
			Detail("not a serialized module").Build()
	}
	rest := data[len(serializeMagic):]
	if len(rest) < 4 {
		return nil, errs.New(errs.PhaseCompile, errs.KindInvalidInput).
			Detail("serialized module truncated").Build()
	}
	size := binary.LittleEndian.Uint32(rest)
	rest = rest[4:]
	if uint32(len(rest)) < size {
		return nil, errs.New(errs.PhaseCompile, errs.KindInvalidInput).
			Detail("serialized module truncated").Build()
	}
	return compileBinary(ctx, eng, rest[:size])
}

// Type describes the module's imports and exports.
func (m *Module) Type() *types.ModuleType {
	t := &types.ModuleType{}
	for i := range m.decoded.Imports {
		imp := &m.decoded.Imports[i]
		t.Imports = append(t.Imports, types.ImportType{
			Module: imp.Module,
			Name:   imp.Name,
			Type:   m.externTypeOfImport(imp),
		})
	}
	for _, exp := range m.decoded.Exports {
		if m.hasFuel && exp.Name == wasm.FuelExportName {
			continue
		}
		t.Exports = append(t.Exports, types.ExportType{
			Name: exp.Name,
			Type: m.externTypeOfExport(exp),
		})
	}
	return t
}

func (m *Module) externTypeOfImport(imp *wasm.Import) types.ExternType {
	switch imp.Desc.Kind {
	case wasm.KindFunc:
		return types.FuncExtern(funcTypeFromWasm(m.decoded, imp.Desc.TypeIdx))
	case wasm.KindGlobal:
		return types.GlobalExtern(globalTypeFromWasm(imp.Desc.Global))
	case wasm.KindMemory:
		return types.MemoryExtern(memoryTypeFromWasm(imp.Desc.Memory))
	case wasm.KindTable:
		return types.TableExtern(tableTypeFromWasm(imp.Desc.Table))
	}
	return types.ExternType{}
}

func (m *Module) externTypeOfExport(exp wasm.Export) types.ExternType {
	switch exp.Kind {
	case wasm.KindFunc:
		if ft := m.decoded.FuncTypeAt(exp.Idx); ft != nil {
			return types.FuncExtern(funcTypeFromBinarySig(ft))
		}
	case wasm.KindGlobal:
		if gt := m.globalTypeAt(exp.Idx); gt != nil {
			return types.GlobalExtern(globalTypeFromWasm(gt))
		}
	case wasm.KindMemory:
		if mt := m.memoryTypeAt(exp.Idx); mt != nil {
			return types.MemoryExtern(memoryTypeFromWasm(mt))
		}
	case wasm.KindTable:
		if tt := m.tableTypeAt(exp.Idx); tt != nil {
			return types.TableExtern(tableTypeFromWasm(tt))
		}
	}
	return types.ExternType{}
}

// globalTypeAt resolves a global in the joint imported+defined index
// space.
func (m *Module) globalTypeAt(idx uint32) *wasm.GlobalType {
	var seen uint32
	for i := range m.decoded.Imports {
		if m.decoded.Imports[i].Desc.Kind != wasm.KindGlobal {
			continue
		}
		if seen == idx {
			return m.decoded.Imports[i].Desc.Global
		}
		seen++
	}
	local := int(idx - seen)
	if local >= len(m.decoded.Globals) {
		return nil
	}
	return &m.decoded.Globals[local].Type
}

func (m *Module) memoryTypeAt(idx uint32) *wasm.MemoryType {
	var seen uint32
	for i := range m.decoded.Imports {
		if m.decoded.Imports[i].Desc.Kind != wasm.KindMemory {
			continue
		}
		if seen == idx {
			return m.decoded.Imports[i].Desc.Memory
		}
		seen++
	}
	local := int(idx - seen)
	if local >= len(m.decoded.Memories) {
		return nil
	}
	return &m.decoded.Memories[local]
}

func (m *Module) tableTypeAt(idx uint32) *wasm.TableType {
	var seen uint32
	for i := range m.decoded.Imports {
		if m.decoded.Imports[i].Desc.Kind != wasm.KindTable {
			continue
		}
		if seen == idx {
			return m.decoded.Imports[i].Desc.Table
		}
		seen++
	}
	local := int(idx - seen)
	if local >= len(m.decoded.Tables) {
		return nil
	}
	return &m.decoded.Tables[local]
}
