package runtime

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/types"
	"github.com/wasmlite/wasmlite/wasm"
)

// Func is a callable WebAssembly function, either exported by an
// instance or defined by the host with NewFunc.
type Func struct {
	s       *Store
	fn      api.Function
	modName string
	name    string
	ty      types.FuncType
}

// HostFunc is the signature of host-defined functions. Returning a
// non-nil Trap aborts the calling guest with that trap.
type HostFunc func(caller *Caller, args []Val) ([]Val, *Trap)

// Caller gives a host function access to the store and to the exports
// of the instance that called it.
type Caller struct {
	s   *Store
	mod api.Module
}

// Store returns the store the call is executing in.
func (c *Caller) Store() *Store { return c.s }

// ExportedMemory looks up a memory exported by the calling instance.
func (c *Caller) ExportedMemory(name string) (*Memory, bool) {
	mem := c.mod.ExportedMemory(name)
	if mem == nil {
		return nil, false
	}
	return &Memory{s: c.s, mem: mem, modName: c.mod.Name(), name: name}, true
}

// ExportedGlobal looks up a global exported by the calling instance.
func (c *Caller) ExportedGlobal(name string) (*Global, bool) {
	g := c.mod.ExportedGlobal(name)
	if g == nil {
		return nil, false
	}
	return globalFromAPI(c.s, g, c.mod.Name(), name), true
}

// ExportedFunc looks up a function exported by the calling instance.
func (c *Caller) ExportedFunc(name string) (*Func, bool) {
	fn := c.mod.ExportedFunction(name)
	if fn == nil {
		return nil, false
	}
	return funcFromAPI(c.s, fn, c.mod.Name(), name), true
}

// NewFunc defines a host function callable from guest code. Signatures
// are limited to i32, i64, f32, f64 and externref values.
func NewFunc(ctx context.Context, s *Store, ty types.FuncType, fn HostFunc) (*Func, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	params, err := apiValueTypes(ty.Params)
	if err != nil {
		return nil, err
	}
	results, err := apiValueTypes(ty.Results)
	if err != nil {
		return nil, err
	}

	adapter := api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
		args := make([]Val, len(ty.Params))
		for i, p := range ty.Params {
			args[i] = valFromStack(s, p.Kind(), stack[i])
		}
		out, trap := fn(&Caller{s: s, mod: mod}, args)
		if trap != nil {
			// wazero recovers panics from host functions and carries
			// the error through to the caller, where trapFromError
			// digs the original trap back out.
			panic(&pendingTrap{trap: trap})
		}
		if len(out) != len(ty.Results) {
			panic(&pendingTrap{trap: NewTrap("host function returned wrong number of results")})
		}
		for i, v := range out {
			if v.Kind() != ty.Results[i].Kind() {
				panic(&pendingTrap{trap: NewTrap("host function returned wrong result type")})
			}
			stack[i] = valToStack(v)
		}
	})

	hostName := s.uniqueName("host")
	_, err = s.rt.NewHostModuleBuilder(hostName).
		NewFunctionBuilder().
		WithGoModuleFunction(adapter, params, results).
		Export("fn").
		Instantiate(ctx)
	if err != nil {
		return nil, errs.New(errs.PhaseLink, errs.KindInternal).
			Subject("host function").Cause(err).Build()
	}

	// Host module instances refuse ExportedFunction, so the callable
	// handle comes from a synthetic module that imports the host
	// function and re-exports it.
	aliasName := s.uniqueName("func")
	bin := wasm.SynthFunc(hostName, "fn", "fn", binarySigFromFuncType(ty))
	alias, err := s.instantiateSynthetic(ctx, bin, aliasName)
	if err != nil {
		return nil, err
	}
	return &Func{s: s, fn: alias.ExportedFunction("fn"), modName: aliasName, name: "fn", ty: ty}, nil
}

func funcFromAPI(s *Store, fn api.Function, modName, name string) *Func {
	def := fn.Definition()
	ty := types.FuncType{}
	for _, p := range def.ParamTypes() {
		ty.Params = append(ty.Params, valTypeFromAPI(p))
	}
	for _, r := range def.ResultTypes() {
		ty.Results = append(ty.Results, valTypeFromAPI(r))
	}
	return &Func{s: s, fn: fn, modName: modName, name: name, ty: ty}
}

// Type returns the function's signature.
func (f *Func) Type() types.FuncType { return f.ty }

// Kind implements Extern.
func (f *Func) Kind() types.ExternKind { return types.ExternFunc }

func (f *Func) externType() types.ExternType { return types.FuncExtern(f.ty) }
func (f *Func) location() (string, string)   { return f.modName, f.name }
func (f *Func) store() *Store                { return f.s }

// Call invokes the function. A guest trap is returned as a *Trap
// error; other failures use the structured error type. Call consumes
// store fuel when the engine meters it.
func (f *Func) Call(ctx context.Context, args ...Val) ([]Val, error) {
	if err := f.s.ensureOpen(); err != nil {
		return nil, err
	}
	if len(args) != len(f.ty.Params) {
		return nil, errs.TypeMismatch(errs.PhaseCall, f.name,
			fmt.Sprintf("expected %d arguments, got %d", len(f.ty.Params), len(args)))
	}
	raw := make([]uint64, len(args))
	for i, a := range args {
		if a.Kind() != f.ty.Params[i].Kind() {
			return nil, errs.TypeMismatch(errs.PhaseCall, f.name,
				fmt.Sprintf("argument %d is %s, want %s", i, a.Kind(), f.ty.Params[i]))
		}
		v, err := stackValue(a)
		if err != nil {
			return nil, err
		}
		raw[i] = v
	}
	for _, r := range f.ty.Results {
		if r.Kind() == types.KindV128 || r.Kind() == types.KindFuncRef {
			return nil, errs.Unsupported(errs.PhaseCall, r.String()+" results cannot cross the host boundary")
		}
	}

	ctx, done := f.s.callContext(ctx)
	defer done()

	before := f.s.fuelBefore()
	out, err := f.fn.Call(ctx, raw...)
	exhausted := f.s.fuelAfter(before)

	if err != nil {
		if trap, ok := trapFromError(err); ok {
			if exhausted {
				trap = &Trap{msg: fuelExhaustedMsg, frames: trap.frames, cause: trap.cause}
			}
			return nil, trap
		}
		return nil, errs.New(errs.PhaseCall, errs.KindInternal).
			Subject(f.name).Cause(err).Build()
	}

	vals := make([]Val, len(f.ty.Results))
	for i, r := range f.ty.Results {
		vals[i] = valFromStack(f.s, r.Kind(), out[i])
	}
	return vals, nil
}

// apiValueTypes maps a signature half to wazero value types, rejecting
// kinds that cannot cross the host boundary.
func apiValueTypes(ts []types.ValType) ([]api.ValueType, error) {
	out := make([]api.ValueType, len(ts))
	for i, t := range ts {
		switch t.Kind() {
		case types.KindI32:
			out[i] = api.ValueTypeI32
		case types.KindI64:
			out[i] = api.ValueTypeI64
		case types.KindF32:
			out[i] = api.ValueTypeF32
		case types.KindF64:
			out[i] = api.ValueTypeF64
		case types.KindExternRef:
			out[i] = api.ValueTypeExternref
		default:
			return nil, errs.Unsupported(errs.PhaseLink,
				t.String()+" values cannot cross the host boundary")
		}
	}
	return out, nil
}

func valTypeFromAPI(t api.ValueType) types.ValType {
	switch t {
	case api.ValueTypeI32:
		return types.I32()
	case api.ValueTypeI64:
		return types.I64()
	case api.ValueTypeF32:
		return types.F32()
	case api.ValueTypeF64:
		return types.F64()
	case api.ValueTypeExternref:
		return types.ExternRef()
	}
	return types.ValType{}
}

// stackValue encodes a value for the wazero call stack.
func stackValue(v Val) (uint64, error) {
	switch v.Kind() {
	case types.KindI32, types.KindI64, types.KindF32, types.KindF64:
		return valToStack(v), nil
	case types.KindExternRef:
		return valToStack(v), nil
	default:
		return 0, errs.Unsupported(errs.PhaseCall,
			v.Kind().String()+" values cannot cross the host boundary")
	}
}

func valToStack(v Val) uint64 {
	if v.Kind() == types.KindExternRef {
		if r := v.Externref(); r != nil {
			return r.handle
		}
		return 0
	}
	return v.bits
}

func valFromStack(s *Store, k types.ValKind, raw uint64) Val {
	switch k {
	case types.KindI32:
		return ValI32(int32(uint32(raw)))
	case types.KindI64:
		return ValI64(int64(raw))
	case types.KindF32:
		return Val{kind: types.KindF32, bits: uint64(uint32(raw))}
	case types.KindF64:
		return Val{kind: types.KindF64, bits: raw}
	case types.KindExternRef:
		return ValExternref(s.externRefFromHandle(raw))
	}
	return Val{kind: k, bits: raw}
}
