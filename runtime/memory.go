package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/types"
	"github.com/wasmlite/wasmlite/wasm"
)

// PageSize is the WebAssembly linear memory page size in bytes.
const PageSize = 65536

// Memory is a linear memory, host-created or exported by an instance.
type Memory struct {
	s       *Store
	mem     api.Memory
	modName string
	name    string
}

// NewMemory creates a host-defined memory with the given page limits.
func NewMemory(ctx context.Context, s *Store, ty types.MemoryType) (*Memory, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	bin := wasm.SynthMemory("mem", limitsToWasm(ty.Limits))
	modName := s.uniqueName("memory")
	mod, err := s.instantiateSynthetic(ctx, bin, modName)
	if err != nil {
		return nil, err
	}
	return &Memory{s: s, mem: mod.ExportedMemory("mem"), modName: modName, name: "mem"}, nil
}

// Type returns the memory's type. Limits reflect the definition, not
// the current size.
func (m *Memory) Type() types.MemoryType {
	def := m.mem.Definition()
	lim := types.Limits{Min: def.Min(), Max: types.NoMax}
	if max, ok := def.Max(); ok {
		lim.Max = max
	}
	return types.MemoryType{Limits: lim}
}

// Kind implements Extern.
func (m *Memory) Kind() types.ExternKind { return types.ExternMemory }

func (m *Memory) externType() types.ExternType { return types.MemoryExtern(m.Type()) }
func (m *Memory) location() (string, string)   { return m.modName, m.name }
func (m *Memory) store() *Store                { return m.s }

// Size returns the current size in pages.
func (m *Memory) Size() uint32 {
	pages, _ := m.mem.Grow(0)
	return pages
}

// DataSize returns the current size in bytes.
func (m *Memory) DataSize() uint64 {
	return uint64(m.Size()) * PageSize
}

// UnsafeData returns a view of the whole memory. Writes are visible to
// the guest. The view disconnects when the memory grows; callers must
// not hold it across calls into guest code.
func (m *Memory) UnsafeData() []byte {
	buf, ok := m.mem.Read(0, uint32(m.DataSize()))
	if !ok {
		return nil
	}
	return buf
}

// Read copies out of memory at the given offset.
func (m *Memory) Read(offset, byteCount uint32) ([]byte, error) {
	view, ok := m.mem.Read(offset, byteCount)
	if !ok {
		return nil, errs.New(errs.PhaseStore, errs.KindInvalidInput).
			Subject(m.name).Detail("read of %d bytes at %d is out of range", byteCount, offset).Build()
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// Write copies into memory at the given offset.
func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errs.New(errs.PhaseStore, errs.KindInvalidInput).
			Subject(m.name).Detail("write of %d bytes at %d is out of range", len(data), offset).Build()
	}
	return nil
}

// Grow adds pages to the memory, returning the previous size in pages.
func (m *Memory) Grow(deltaPages uint32) (uint32, error) {
	prev, ok := m.mem.Grow(deltaPages)
	if !ok {
		return 0, errs.New(errs.PhaseStore, errs.KindInvalidInput).
			Subject(m.name).Detail("grow by %d pages exceeds the maximum", deltaPages).Build()
	}
	return prev, nil
}
