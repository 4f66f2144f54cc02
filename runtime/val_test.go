package runtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmlite/wasmlite/types"
)

func TestValAccessors(t *testing.T) {
	require.Equal(t, int32(-7), ValI32(-7).I32())
	require.Equal(t, int64(math.MinInt64), ValI64(math.MinInt64).I64())
	require.Equal(t, float32(1.5), ValF32(1.5).F32())
	require.Equal(t, 2.25, ValF64(2.25).F64())

	v := ValV128([16]byte{1, 2, 3})
	require.Equal(t, [16]byte{1, 2, 3}, v.V128())

	require.Nil(t, ValFuncref(nil).Funcref())
	require.Nil(t, ValExternref(nil).Externref())
}

func TestValKindMismatchPanics(t *testing.T) {
	require.Panics(t, func() { ValI32(1).I64() })
	require.Panics(t, func() { ValF64(1).F32() })
	require.Panics(t, func() { ValI64(1).Externref() })
}

func TestValType(t *testing.T) {
	require.Equal(t, types.KindI32, ValI32(0).Type().Kind())
	require.Equal(t, types.KindExternRef, ValExternref(nil).Type().Kind())
}

func TestValString(t *testing.T) {
	require.Equal(t, "-3", ValI32(-3).String())
	require.Equal(t, "1.5", ValF64(1.5).String())
	require.Equal(t, "funcref:null", ValFuncref(nil).String())
	require.Equal(t, "externref:null", ValExternref(nil).String())
}
