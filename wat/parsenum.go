package wat

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseUintLit parses an unsigned literal, handling the 0x prefix and
// digit-separating underscores.
func parseUintLit(s string, bits int) (uint64, error) {
	s = strings.ReplaceAll(s, "_", "")
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, bits)
	}
	return strconv.ParseUint(s, 10, bits)
}

func parseIndex(s string) (uint32, bool) {
	v, err := parseUintLit(s, 32)
	return uint32(v), err == nil
}

// parseI32 accepts both the signed and unsigned spellings of a 32-bit
// pattern, as i32.const does.
func parseI32(s string) (int32, error) {
	body, neg := splitSign(s)
	v, err := parseUintLit(body, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid i32 literal %q", s)
	}
	if neg {
		if v > 1<<31 {
			return 0, fmt.Errorf("i32 literal %q out of range", s)
		}
		return int32(-int64(v)), nil
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("i32 literal %q out of range", s)
	}
	return int32(uint32(v)), nil
}

func parseI64(s string) (int64, error) {
	body, neg := splitSign(s)
	v, err := parseUintLit(body, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid i64 literal %q", s)
	}
	if neg {
		if v > 1<<63 {
			return 0, fmt.Errorf("i64 literal %q out of range", s)
		}
		if v == 1<<63 {
			return math.MinInt64, nil
		}
		return -int64(v), nil
	}
	return int64(v), nil
}

func splitSign(s string) (string, bool) {
	switch {
	case strings.HasPrefix(s, "-"):
		return s[1:], true
	case strings.HasPrefix(s, "+"):
		return s[1:], false
	}
	return s, false
}

func parseF32(s string) (float32, error) {
	body, neg := splitSign(strings.ReplaceAll(s, "_", ""))
	switch {
	case body == "inf":
		return float32(math.Inf(sign(neg))), nil
	case body == "nan":
		return f32WithSign(math.Float32frombits(0x7fc00000), neg), nil
	case strings.HasPrefix(body, "nan:0x"):
		payload, err := strconv.ParseUint(body[6:], 16, 32)
		if err != nil || payload == 0 || payload >= 1<<23 {
			return 0, fmt.Errorf("invalid f32 nan payload %q", s)
		}
		return f32WithSign(math.Float32frombits(0x7f800000|uint32(payload)), neg), nil
	}
	v, err := strconv.ParseFloat(hexFloatFixup(body), 32)
	if err != nil {
		return 0, fmt.Errorf("invalid f32 literal %q", s)
	}
	return f32WithSign(float32(v), neg), nil
}

func parseF64(s string) (float64, error) {
	body, neg := splitSign(strings.ReplaceAll(s, "_", ""))
	switch {
	case body == "inf":
		return math.Inf(sign(neg)), nil
	case body == "nan":
		return f64WithSign(math.Float64frombits(0x7ff8000000000000), neg), nil
	case strings.HasPrefix(body, "nan:0x"):
		payload, err := strconv.ParseUint(body[6:], 16, 64)
		if err != nil || payload == 0 || payload >= 1<<52 {
			return 0, fmt.Errorf("invalid f64 nan payload %q", s)
		}
		return f64WithSign(math.Float64frombits(0x7ff0000000000000|payload), neg), nil
	}
	v, err := strconv.ParseFloat(hexFloatFixup(body), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid f64 literal %q", s)
	}
	return f64WithSign(v, neg), nil
}

// hexFloatFixup appends the binary exponent Go requires on hex floats
// when the source omits it.
func hexFloatFixup(s string) string {
	if (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) &&
		!strings.ContainsAny(s, "pP") {
		return s + "p0"
	}
	return s
}

func sign(neg bool) int {
	if neg {
		return -1
	}
	return 1
}

func f32WithSign(v float32, neg bool) float32 {
	if neg {
		return math.Float32frombits(math.Float32bits(v) | 0x80000000)
	}
	return v
}

func f64WithSign(v float64, neg bool) float64 {
	if neg {
		return math.Float64frombits(math.Float64bits(v) | 0x8000000000000000)
	}
	return v
}
