package runtime

import (
	"github.com/wasmlite/wasmlite/types"
	"github.com/wasmlite/wasmlite/wasm"
)

// Conversions between the binary section model and the public types
// package.

func valTypeFromByte(b byte) types.ValType {
	switch b {
	case wasm.ValI32:
		return types.I32()
	case wasm.ValI64:
		return types.I64()
	case wasm.ValF32:
		return types.F32()
	case wasm.ValF64:
		return types.F64()
	case wasm.ValV128:
		return types.V128()
	case wasm.ValFuncRef:
		return types.FuncRef()
	case wasm.ValExternRef:
		return types.ExternRef()
	}
	return types.ValType{}
}

func byteFromValKind(k types.ValKind) byte {
	switch k {
	case types.KindI32:
		return wasm.ValI32
	case types.KindI64:
		return wasm.ValI64
	case types.KindF32:
		return wasm.ValF32
	case types.KindF64:
		return wasm.ValF64
	case types.KindV128:
		return wasm.ValV128
	case types.KindFuncRef:
		return wasm.ValFuncRef
	case types.KindExternRef:
		return wasm.ValExternRef
	}
	return 0
}

func binarySigFromFuncType(ft types.FuncType) wasm.FuncType {
	t := wasm.FuncType{}
	for _, p := range ft.Params {
		t.Params = append(t.Params, byteFromValKind(p.Kind()))
	}
	for _, r := range ft.Results {
		t.Results = append(t.Results, byteFromValKind(r.Kind()))
	}
	return t
}

func funcTypeFromBinarySig(ft *wasm.FuncType) types.FuncType {
	t := types.FuncType{}
	for _, p := range ft.Params {
		t.Params = append(t.Params, valTypeFromByte(p))
	}
	for _, r := range ft.Results {
		t.Results = append(t.Results, valTypeFromByte(r))
	}
	return t
}

func funcTypeFromWasm(m *wasm.Module, typeIdx uint32) types.FuncType {
	if int(typeIdx) >= len(m.Types) {
		return types.FuncType{}
	}
	return funcTypeFromBinarySig(&m.Types[typeIdx])
}

func globalTypeFromWasm(gt *wasm.GlobalType) types.GlobalType {
	return types.GlobalType{
		Content: valTypeFromByte(gt.ValType),
		Mutable: gt.Mutable,
	}
}

func limitsFromWasm(l wasm.Limits) types.Limits {
	out := types.Limits{Min: uint32(l.Min), Max: types.NoMax}
	if l.Max != nil {
		out.Max = uint32(*l.Max)
	}
	return out
}

func limitsToWasm(l types.Limits) wasm.Limits {
	out := wasm.Limits{Min: uint64(l.Min)}
	if l.HasMax() {
		max := uint64(l.Max)
		out.Max = &max
	}
	return out
}

func memoryTypeFromWasm(mt *wasm.MemoryType) types.MemoryType {
	return types.MemoryType{Limits: limitsFromWasm(mt.Limits)}
}

func tableTypeFromWasm(tt *wasm.TableType) types.TableType {
	return types.TableType{
		Element: valTypeFromByte(tt.ElemType),
		Limits:  limitsFromWasm(tt.Limits),
	}
}
