package runtime

import (
	"context"
	"reflect"

	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/types"
)

var (
	callerType    = reflect.TypeOf((*Caller)(nil))
	externRefType = reflect.TypeOf((*ExternRef)(nil))
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
)

// WrapFunc defines a host function from a plain Go function via
// reflection. Parameters may be int32, int64, float32, float64 or
// *ExternRef, optionally preceded by a *Caller; results are the same
// value types, optionally followed by a trailing error. A returned
// *Trap aborts the guest with that trap; any other non-nil error is
// wrapped in one.
func WrapFunc(ctx context.Context, s *Store, fn any) (*Func, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, errs.New(errs.PhaseLink, errs.KindInvalidInput).
			Detail("WrapFunc needs a function, got %s", t).Build()
	}

	var ft types.FuncType
	wantsCaller := t.NumIn() > 0 && t.In(0) == callerType
	firstParam := 0
	if wantsCaller {
		firstParam = 1
	}
	for i := firstParam; i < t.NumIn(); i++ {
		vt, ok := wrapValType(t.In(i))
		if !ok {
			return nil, errs.New(errs.PhaseLink, errs.KindInvalidInput).
				Detail("unsupported parameter type %s", t.In(i)).Build()
		}
		ft.Params = append(ft.Params, vt)
	}
	returnsError := t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType
	lastResult := t.NumOut()
	if returnsError {
		lastResult--
	}
	for i := 0; i < lastResult; i++ {
		vt, ok := wrapValType(t.Out(i))
		if !ok {
			return nil, errs.New(errs.PhaseLink, errs.KindInvalidInput).
				Detail("unsupported result type %s", t.Out(i)).Build()
		}
		ft.Results = append(ft.Results, vt)
	}

	return NewFunc(ctx, s, ft, func(caller *Caller, args []Val) ([]Val, *Trap) {
		in := make([]reflect.Value, 0, len(args)+1)
		if wantsCaller {
			in = append(in, reflect.ValueOf(caller))
		}
		for _, a := range args {
			in = append(in, wrapIn(a))
		}
		out := v.Call(in)
		if returnsError {
			errVal := out[len(out)-1]
			out = out[:len(out)-1]
			if !errVal.IsNil() {
				err := errVal.Interface().(error)
				if trap, ok := err.(*Trap); ok {
					return nil, trap
				}
				return nil, NewTrap(err.Error())
			}
		}
		results := make([]Val, len(out))
		for i, o := range out {
			results[i] = wrapOut(o)
		}
		return results, nil
	})
}

func wrapValType(t reflect.Type) (types.ValType, bool) {
	switch t {
	case reflect.TypeOf(int32(0)):
		return types.I32(), true
	case reflect.TypeOf(int64(0)):
		return types.I64(), true
	case reflect.TypeOf(float32(0)):
		return types.F32(), true
	case reflect.TypeOf(float64(0)):
		return types.F64(), true
	case externRefType:
		return types.ExternRef(), true
	}
	return types.ValType{}, false
}

func wrapIn(v Val) reflect.Value {
	switch v.Kind() {
	case types.KindI32:
		return reflect.ValueOf(v.I32())
	case types.KindI64:
		return reflect.ValueOf(v.I64())
	case types.KindF32:
		return reflect.ValueOf(v.F32())
	case types.KindF64:
		return reflect.ValueOf(v.F64())
	default:
		return reflect.ValueOf(v.Externref())
	}
}

func wrapOut(v reflect.Value) Val {
	switch v.Type() {
	case reflect.TypeOf(int32(0)):
		return ValI32(v.Interface().(int32))
	case reflect.TypeOf(int64(0)):
		return ValI64(v.Interface().(int64))
	case reflect.TypeOf(float32(0)):
		return ValF32(v.Interface().(float32))
	case reflect.TypeOf(float64(0)):
		return ValF64(v.Interface().(float64))
	default:
		return ValExternref(v.Interface().(*ExternRef))
	}
}
