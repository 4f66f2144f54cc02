package runtime

import (
	"context"

	errs "github.com/wasmlite/wasmlite/errors"
)

// Linker resolves module imports by two-level name. Definitions are
// (module, name) pairs; Instantiate matches a module's imports against
// them in declaration order.
type Linker struct {
	s              *Store
	defs           map[string]map[string]Extern
	wasi           bool
	allowShadowing bool
}

// NewLinker creates an empty linker for the store.
func NewLinker(s *Store) *Linker {
	return &Linker{s: s, defs: map[string]map[string]Extern{}}
}

// AllowShadowing controls whether a later definition may replace an
// earlier one under the same name. Off by default.
func (l *Linker) AllowShadowing(allow bool) {
	l.allowShadowing = allow
}

// Define registers an extern under module::name.
func (l *Linker) Define(module, name string, ext Extern) error {
	if ext == nil {
		return errs.New(errs.PhaseLink, errs.KindInvalidInput).
			Subject(module + "::" + name).Detail("nil extern").Build()
	}
	if ext.store() != l.s {
		return errs.New(errs.PhaseLink, errs.KindInvalidInput).
			Subject(module + "::" + name).Detail("extern belongs to a different store").Build()
	}
	ns, ok := l.defs[module]
	if !ok {
		ns = map[string]Extern{}
		l.defs[module] = ns
	}
	if _, exists := ns[name]; exists && !l.allowShadowing {
		return &errs.Error{Phase: errs.PhaseLink, Kind: errs.KindShadowing,
			Subject: module + "::" + name}
	}
	ns[name] = ext
	return nil
}

// DefineInstance registers every export of an instance under the given
// module name.
func (l *Linker) DefineInstance(module string, inst *Instance) error {
	for _, exp := range inst.src.Type().Exports {
		ext := inst.externFor(exp)
		if ext == nil {
			continue
		}
		if err := l.Define(module, exp.Name, ext); err != nil {
			return err
		}
	}
	return nil
}

// DefineModule instantiates the module with this linker's definitions
// and registers its exports under the given name.
func (l *Linker) DefineModule(ctx context.Context, name string, m *Module) (*Instance, error) {
	inst, err := l.Instantiate(ctx, m)
	if err != nil {
		return nil, err
	}
	if err := l.DefineInstance(name, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// DefineWasi routes wasi_snapshot_preview1 imports to the store's WASI
// implementation, configured via Store.SetWasi.
func (l *Linker) DefineWasi() error {
	l.wasi = true
	return nil
}

// Get returns the definition under module::name, nil when absent.
func (l *Linker) Get(module, name string) Extern {
	if ns, ok := l.defs[module]; ok {
		return ns[name]
	}
	return nil
}

// Instantiate resolves the module's imports from this linker's
// definitions and instantiates it in the store.
func (l *Linker) Instantiate(ctx context.Context, m *Module) (*Instance, error) {
	if err := l.s.ensureOpen(); err != nil {
		return nil, err
	}
	want := m.Type().Imports

	resolved := make([]Extern, len(want))
	passthrough := make([]bool, len(want))
	for i, imp := range want {
		if l.wasi && imp.Module == "wasi_snapshot_preview1" {
			// wazero resolves these against its own WASI host module,
			// registered under the same name.
			passthrough[i] = true
			continue
		}
		ext := l.Get(imp.Module, imp.Name)
		if ext == nil {
			return nil, errs.MissingImport(imp.Module, imp.Name)
		}
		if !checkExternType(imp.Type, ext) {
			return nil, errs.TypeMismatch(errs.PhaseLink, imp.Module+"::"+imp.Name,
				"definition does not match the import type")
		}
		resolved[i] = ext
	}

	if l.wasi {
		if err := l.s.initWasi(ctx); err != nil {
			return nil, err
		}
	}

	return instantiate(ctx, l.s, m, func(i int, module, name string) (Extern, bool) {
		if passthrough[i] {
			return nil, false
		}
		return resolved[i], true
	})
}

// GetDefault returns the default export of the instance registered
// under name: the function exported as "" or, failing that, "_start".
func (l *Linker) GetDefault(name string) (*Func, error) {
	for _, candidate := range []string{"", "_start"} {
		if ext := l.Get(name, candidate); ext != nil {
			if f, ok := ext.(*Func); ok {
				return f, nil
			}
			return nil, errs.TypeMismatch(errs.PhaseLink, name+"::"+candidate,
				"default export is a "+ext.Kind().String())
		}
	}
	return nil, errs.NotFound(errs.PhaseLink, name)
}
