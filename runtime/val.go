package runtime

import (
	"fmt"
	"math"

	"github.com/wasmlite/wasmlite/types"
)

// Val is a WebAssembly value: one numeric type, a v128, or a
// reference. The kind-specific accessors panic when called on the
// wrong kind; use Kind first when the kind is not known statically.
type Val struct {
	kind types.ValKind
	bits uint64
	v128 [16]byte
	ref  any // *Func or *ExternRef
}

// ValI32 returns an i32 value.
func ValI32(v int32) Val { return Val{kind: types.KindI32, bits: uint64(uint32(v))} }

// ValI64 returns an i64 value.
func ValI64(v int64) Val { return Val{kind: types.KindI64, bits: uint64(v)} }

// ValF32 returns an f32 value.
func ValF32(v float32) Val { return Val{kind: types.KindF32, bits: uint64(math.Float32bits(v))} }

// ValF64 returns an f64 value.
func ValF64(v float64) Val { return Val{kind: types.KindF64, bits: math.Float64bits(v)} }

// ValV128 returns a v128 value from its little-endian bytes.
func ValV128(v [16]byte) Val { return Val{kind: types.KindV128, v128: v} }

// ValFuncref returns a funcref value. f may be nil for the null
// reference.
func ValFuncref(f *Func) Val { return Val{kind: types.KindFuncRef, ref: f} }

// ValExternref returns an externref value. r may be nil for the null
// reference.
func ValExternref(r *ExternRef) Val { return Val{kind: types.KindExternRef, ref: r} }

// Kind reports which type this value holds.
func (v Val) Kind() types.ValKind { return v.kind }

func (v Val) mustBe(k types.ValKind) {
	if v.kind != k {
		panic(fmt.Sprintf("runtime: %s accessor on %s value", k, v.kind))
	}
}

// I32 returns the value as an i32, panicking on kind mismatch.
func (v Val) I32() int32 {
	v.mustBe(types.KindI32)
	return int32(uint32(v.bits))
}

// I64 returns the value as an i64, panicking on kind mismatch.
func (v Val) I64() int64 {
	v.mustBe(types.KindI64)
	return int64(v.bits)
}

// F32 returns the value as an f32, panicking on kind mismatch.
func (v Val) F32() float32 {
	v.mustBe(types.KindF32)
	return math.Float32frombits(uint32(v.bits))
}

// F64 returns the value as an f64, panicking on kind mismatch.
func (v Val) F64() float64 {
	v.mustBe(types.KindF64)
	return math.Float64frombits(v.bits)
}

// V128 returns the value's little-endian bytes, panicking on kind
// mismatch.
func (v Val) V128() [16]byte {
	v.mustBe(types.KindV128)
	return v.v128
}

// Funcref returns the function reference, nil when null. Panics on
// kind mismatch.
func (v Val) Funcref() *Func {
	v.mustBe(types.KindFuncRef)
	f, _ := v.ref.(*Func)
	return f
}

// Externref returns the extern reference, nil when null. Panics on
// kind mismatch.
func (v Val) Externref() *ExternRef {
	v.mustBe(types.KindExternRef)
	r, _ := v.ref.(*ExternRef)
	return r
}

// Type returns the value's type.
func (v Val) Type() types.ValType { return types.NewValType(v.kind) }

func (v Val) String() string {
	switch v.kind {
	case types.KindI32:
		return fmt.Sprintf("%d", v.I32())
	case types.KindI64:
		return fmt.Sprintf("%d", v.I64())
	case types.KindF32:
		return fmt.Sprintf("%g", v.F32())
	case types.KindF64:
		return fmt.Sprintf("%g", v.F64())
	case types.KindV128:
		return fmt.Sprintf("v128:%x", v.v128)
	case types.KindFuncRef:
		if v.Funcref() == nil {
			return "funcref:null"
		}
		return "funcref"
	case types.KindExternRef:
		if v.Externref() == nil {
			return "externref:null"
		}
		return "externref"
	}
	return "unknown"
}
