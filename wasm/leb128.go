package wasm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const maxVarintLen = 10

// ReadU32 decodes an unsigned LEB128 value up to 32 bits.
func ReadU32(r io.ByteReader) (uint32, error) {
	v, err := ReadU64(r)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("leb128: value %d overflows u32", v)
	}
	return uint32(v), nil
}

// ReadU64 decodes an unsigned LEB128 value up to 64 bits.
func ReadU64(r io.ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < maxVarintLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("leb128: %w", err)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, fmt.Errorf("leb128: unsigned value too long")
}

// ReadS32 decodes a signed LEB128 value up to 32 bits.
func ReadS32(r io.ByteReader) (int32, error) {
	v, err := ReadS64(r)
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("leb128: value %d overflows s32", v)
	}
	return int32(v), nil
}

// ReadS64 decodes a signed LEB128 value up to 64 bits.
func ReadS64(r io.ByteReader) (int64, error) {
	var result int64
	var shift uint
	for i := 0; i < maxVarintLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("leb128: %w", err)
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, nil
		}
	}
	return 0, fmt.Errorf("leb128: signed value too long")
}

// ReadS33 decodes the s33 encoding used by block types.
func ReadS33(r io.ByteReader) (int64, error) {
	return ReadS64(r)
}

// WriteU32 appends an unsigned LEB128 value.
func WriteU32(w *bytes.Buffer, v uint32) {
	WriteU64(w, uint64(v))
}

// WriteU64 appends an unsigned LEB128 value.
func WriteU64(w *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// WriteS32 appends a signed LEB128 value.
func WriteS32(w *bytes.Buffer, v int32) {
	WriteS64(w, int64(v))
}

// WriteS64 appends a signed LEB128 value.
func WriteS64(w *bytes.Buffer, v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		w.WriteByte(b)
		if done {
			return
		}
	}
}

// ReadF32 reads a little-endian IEEE 754 float32.
func ReadF32(r io.Reader) (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

// ReadF64 reads a little-endian IEEE 754 float64.
func ReadF64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

// WriteF32 appends a little-endian IEEE 754 float32.
func WriteF32(w *bytes.Buffer, v float32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	w.Write(buf[:])
}

// WriteF64 appends a little-endian IEEE 754 float64.
func WriteF64(w *bytes.Buffer, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	w.Write(buf[:])
}
