package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/types"
	"github.com/wasmlite/wasmlite/wasm"
)

// Global is a WebAssembly global variable, host-created or exported by
// an instance.
type Global struct {
	s       *Store
	g       api.Global
	modName string
	name    string
	ty      types.GlobalType
}

// NewGlobal creates a host-defined global. The initial value must
// match the content type; reference-typed globals can only start null.
func NewGlobal(ctx context.Context, s *Store, ty types.GlobalType, init Val) (*Global, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if init.Kind() != ty.Content.Kind() {
		return nil, errs.TypeMismatch(errs.PhaseLink, "global",
			"initial value is "+init.Kind().String()+", want "+ty.Content.String())
	}
	vt := byteFromValKind(ty.Content.Kind())
	var bits uint64
	switch ty.Content.Kind() {
	case types.KindI32, types.KindI64, types.KindF32, types.KindF64:
		bits = init.bits
	case types.KindFuncRef, types.KindExternRef:
		// The init expression is ref.null; a non-null reference cannot
		// be expressed as a constant.
		if init.ref != nil {
			return nil, errs.Unsupported(errs.PhaseLink,
				"reference-typed globals must be initialized to null")
		}
	default:
		return nil, errs.Unsupported(errs.PhaseLink,
			ty.Content.String()+" globals cannot be host-created")
	}

	bin := wasm.SynthGlobal("g", wasm.GlobalType{ValType: vt, Mutable: ty.Mutable},
		wasm.ConstExpr(vt, bits))
	modName := s.uniqueName("global")
	mod, err := s.instantiateSynthetic(ctx, bin, modName)
	if err != nil {
		return nil, err
	}
	return &Global{s: s, g: mod.ExportedGlobal("g"), modName: modName, name: "g", ty: ty}, nil
}

func globalFromAPI(s *Store, g api.Global, modName, name string) *Global {
	_, mutable := g.(api.MutableGlobal)
	return &Global{
		s: s, g: g, modName: modName, name: name,
		ty: types.GlobalType{Content: valTypeFromAPI(g.Type()), Mutable: mutable},
	}
}

// Type returns the global's type.
func (g *Global) Type() types.GlobalType { return g.ty }

// Kind implements Extern.
func (g *Global) Kind() types.ExternKind { return types.ExternGlobal }

func (g *Global) externType() types.ExternType { return types.GlobalExtern(g.ty) }
func (g *Global) location() (string, string)   { return g.modName, g.name }
func (g *Global) store() *Store                { return g.s }

// Get returns the global's current value.
func (g *Global) Get() Val {
	return valFromStack(g.s, g.ty.Content.Kind(), g.g.Get())
}

// Set updates the global. The global must be mutable and the value
// must match its content type.
func (g *Global) Set(v Val) error {
	if err := g.s.ensureOpen(); err != nil {
		return err
	}
	if !g.ty.Mutable {
		return errs.TypeMismatch(errs.PhaseStore, g.name, "global is immutable")
	}
	if v.Kind() != g.ty.Content.Kind() {
		return errs.TypeMismatch(errs.PhaseStore, g.name,
			"value is "+v.Kind().String()+", want "+g.ty.Content.String())
	}
	mg, ok := g.g.(api.MutableGlobal)
	if !ok {
		return errs.Unsupported(errs.PhaseStore, "global is not mutable at runtime")
	}
	raw, err := stackValue(v)
	if err != nil {
		return err
	}
	mg.Set(raw)
	return nil
}
