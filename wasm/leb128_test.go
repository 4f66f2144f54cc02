package wasm

import (
	"bytes"
	"math"
	"testing"
)

func TestU32RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 624485, math.MaxUint32}
	for _, v := range cases {
		var b bytes.Buffer
		WriteU32(&b, v)
		got, err := ReadU32(bytes.NewReader(b.Bytes()))
		if err != nil {
			t.Fatalf("ReadU32(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestU32KnownEncoding(t *testing.T) {
	var b bytes.Buffer
	WriteU32(&b, 624485)
	want := []byte{0xe5, 0x8e, 0x26}
	if !bytes.Equal(b.Bytes(), want) {
		t.Errorf("WriteU32(624485) = % x, want % x", b.Bytes(), want)
	}
}

func TestS32RoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 63, 64, -64, -65, math.MaxInt32, math.MinInt32}
	for _, v := range cases {
		var b bytes.Buffer
		WriteS32(&b, v)
		got, err := ReadS32(bytes.NewReader(b.Bytes()))
		if err != nil {
			t.Fatalf("ReadS32(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestS64RoundTrip(t *testing.T) {
	cases := []int64{0, -1, 1, -123456, math.MaxInt64, math.MinInt64}
	for _, v := range cases {
		var b bytes.Buffer
		WriteS64(&b, v)
		got, err := ReadS64(bytes.NewReader(b.Bytes()))
		if err != nil {
			t.Fatalf("ReadS64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestS33ReadsBlockTypes(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want int64
	}{
		{"void", []byte{0x40}, -64},
		{"i32", []byte{0x7f}, -1},
		{"typeidx", []byte{0x05}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadS33(bytes.NewReader(tc.in))
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("ReadS33(% x) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestReadU32Truncated(t *testing.T) {
	if _, err := ReadU32(bytes.NewReader([]byte{0x80})); err == nil {
		t.Error("expected error on truncated input")
	}
}

func TestFloatRoundTrip(t *testing.T) {
	var b bytes.Buffer
	WriteF32(&b, 3.5)
	WriteF64(&b, -0.25)
	r := bytes.NewReader(b.Bytes())
	f32, err := ReadF32(r)
	if err != nil || f32 != 3.5 {
		t.Errorf("ReadF32 = %v, %v", f32, err)
	}
	f64, err := ReadF64(r)
	if err != nil || f64 != -0.25 {
		t.Errorf("ReadF64 = %v, %v", f64, err)
	}
}
