package runtime

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/types"
	"github.com/wasmlite/wasmlite/wasm"
)

// Instance is a live instantiation of a module within a store.
type Instance struct {
	s       *Store
	mod     api.Module
	src     *Module
	modName string
}

// NewInstance instantiates a module with positional imports, one
// extern per import in declaration order. The start section, if any,
// runs during instantiation; a trap there is returned as a *Trap.
func NewInstance(ctx context.Context, s *Store, m *Module, imports []Extern) (*Instance, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	want := m.Type().Imports
	if len(imports) != len(want) {
		return nil, errs.New(errs.PhaseInstantiate, errs.KindMissingImport).
			Detail("expected %d imports, got %d", len(want), len(imports)).Build()
	}
	for i, ext := range imports {
		if ext == nil {
			return nil, errs.MissingImport(want[i].Module, want[i].Name)
		}
		if ext.store() != s {
			return nil, errs.New(errs.PhaseInstantiate, errs.KindInvalidInput).
				Subject(want[i].Module + "::" + want[i].Name).
				Detail("extern belongs to a different store").Build()
		}
		if !checkExternType(want[i].Type, ext) {
			return nil, errs.TypeMismatch(errs.PhaseInstantiate,
				want[i].Module+"::"+want[i].Name,
				fmt.Sprintf("import is a %s, extern is a %s", want[i].Type.Kind, ext.Kind()))
		}
	}
	return instantiate(ctx, s, m, func(i int, module, name string) (Extern, bool) {
		return imports[i], true
	})
}

// resolveImport maps the i-th import of a module to an extern. A false
// second result leaves the import untouched, for host modules wazero
// resolves itself.
type resolveImport func(i int, module, name string) (Extern, bool)

func instantiate(ctx context.Context, s *Store, m *Module, resolve resolveImport) (*Instance, error) {
	// The shared section model stays pristine; rewiring happens on a
	// shallow clone with its own import table.
	clone := *m.decoded
	clone.Imports = append([]wasm.Import(nil), m.decoded.Imports...)

	var i int
	clone.RewriteImports(func(module, name string, kind byte) (string, string) {
		ext, ok := resolve(i, module, name)
		i++
		if !ok {
			return module, name
		}
		return ext.location()
	})

	modName := s.uniqueName("instance")
	cfg := s.baseModuleConfig().WithName(modName)

	ctx, done := s.callContext(ctx)
	defer done()

	// The start section runs here, so fuel and traps apply the same
	// way they do for calls.
	before := s.fuelBefore()
	mod, err := s.rt.InstantiateWithConfig(ctx, clone.Encode(), cfg)
	exhausted := s.fuelAfter(before)
	if err != nil {
		if trap, ok := trapFromError(err); ok {
			if exhausted {
				trap = &Trap{msg: fuelExhaustedMsg, frames: trap.frames, cause: trap.cause}
			}
			return nil, trap
		}
		return nil, errs.New(errs.PhaseInstantiate, errs.KindInvalidInput).
			Subject(modName).Cause(err).Build()
	}

	if m.hasFuel {
		if g, ok := mod.ExportedGlobal(wasm.FuelExportName).(api.MutableGlobal); ok {
			s.registerFuelGlobal(mod, g)
		}
	}
	return &Instance{s: s, mod: mod, src: m, modName: modName}, nil
}

// Type lists the instance's exports.
func (inst *Instance) Type() *types.InstanceType {
	t := &types.InstanceType{}
	for _, exp := range inst.src.Type().Exports {
		t.Exports = append(t.Exports, exp)
	}
	return t
}

// Export looks up an exported item by name, nil when absent.
func (inst *Instance) Export(name string) Extern {
	for _, exp := range inst.src.Type().Exports {
		if exp.Name == name {
			return inst.externFor(exp)
		}
	}
	return nil
}

// Exports returns all exported items in declaration order.
func (inst *Instance) Exports() []Extern {
	exps := inst.src.Type().Exports
	out := make([]Extern, 0, len(exps))
	for _, exp := range exps {
		out = append(out, inst.externFor(exp))
	}
	return out
}

// ExportAt returns the i-th export in declaration order, for callers
// walking exports without knowing names up front.
func (inst *Instance) ExportAt(i int) (string, Extern) {
	exps := inst.src.Type().Exports
	if i < 0 || i >= len(exps) {
		return "", nil
	}
	return exps[i].Name, inst.externFor(exps[i])
}

// Func looks up an exported function by name.
func (inst *Instance) Func(name string) (*Func, error) {
	ext := inst.Export(name)
	if ext == nil {
		return nil, errs.NotFound(errs.PhaseStore, name)
	}
	f, ok := ext.(*Func)
	if !ok {
		return nil, errs.TypeMismatch(errs.PhaseStore, name, "export is a "+ext.Kind().String())
	}
	return f, nil
}

// Memory looks up an exported memory by name.
func (inst *Instance) Memory(name string) (*Memory, error) {
	ext := inst.Export(name)
	if ext == nil {
		return nil, errs.NotFound(errs.PhaseStore, name)
	}
	m, ok := ext.(*Memory)
	if !ok {
		return nil, errs.TypeMismatch(errs.PhaseStore, name, "export is a "+ext.Kind().String())
	}
	return m, nil
}

// Global looks up an exported global by name.
func (inst *Instance) Global(name string) (*Global, error) {
	ext := inst.Export(name)
	if ext == nil {
		return nil, errs.NotFound(errs.PhaseStore, name)
	}
	g, ok := ext.(*Global)
	if !ok {
		return nil, errs.TypeMismatch(errs.PhaseStore, name, "export is a "+ext.Kind().String())
	}
	return g, nil
}

func (inst *Instance) externFor(exp types.ExportType) Extern {
	switch exp.Type.Kind {
	case types.ExternFunc:
		if fn := inst.mod.ExportedFunction(exp.Name); fn != nil {
			return funcFromAPI(inst.s, fn, inst.modName, exp.Name)
		}
	case types.ExternGlobal:
		if g := inst.mod.ExportedGlobal(exp.Name); g != nil {
			return globalFromAPI(inst.s, g, inst.modName, exp.Name)
		}
	case types.ExternMemory:
		if mem := inst.mod.ExportedMemory(exp.Name); mem != nil {
			return &Memory{s: inst.s, mem: mem, modName: inst.modName, name: exp.Name}
		}
	case types.ExternTable:
		// Tables have no runtime handle; the declared type carries
		// everything linking needs.
		if exp.Type.Table != nil {
			return tableFromExport(inst.s, *exp.Type.Table, inst.modName, exp.Name)
		}
	}
	return nil
}
