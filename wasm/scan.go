package wasm

import (
	"bytes"
	"fmt"
	"io"
)

// Walk iterates the instructions of a function body (bytecode without the
// local declarations), calling fn with each instruction's byte offset and
// opcode. Immediates are decoded and skipped so the walk stays in sync
// with the instruction stream.
func Walk(code []byte, fn func(offset int, opcode byte) error) error {
	r := bytes.NewReader(code)
	for r.Len() > 0 {
		offset := len(code) - r.Len()
		op, err := r.ReadByte()
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(offset, op); err != nil {
				return err
			}
		}
		if err := skipImmediates(r, op); err != nil {
			return fmt.Errorf("wasm: at offset %d, opcode 0x%02x: %w", offset, op, err)
		}
	}
	return nil
}

// skipImmediates advances r past the immediates of op.
func skipImmediates(r *bytes.Reader, op byte) error {
	switch op {
	case OpBlock, OpLoop, OpIf:
		_, err := ReadS33(r)
		return err

	case OpBr, OpBrIf, OpCall, OpLocalGet, OpLocalSet, OpLocalTee,
		OpGlobalGet, OpGlobalSet, OpTableGet, OpTableSet, OpRefFunc:
		_, err := ReadU32(r)
		return err

	case OpBrTable:
		n, err := ReadU32(r)
		if err != nil {
			return err
		}
		for i := uint32(0); i <= n; i++ { // targets plus default
			if _, err := ReadU32(r); err != nil {
				return err
			}
		}
		return nil

	case OpCallIndirect, 0x12, 0x13: // call_indirect and tail-call forms
		if op == OpCallIndirect || op == 0x13 {
			if _, err := ReadU32(r); err != nil {
				return err
			}
			_, err := ReadU32(r)
			return err
		}
		_, err := ReadU32(r)
		return err

	case OpSelectT:
		n, err := ReadU32(r)
		if err != nil {
			return err
		}
		return skipBytes(r, int(n))

	case OpMemorySize, OpMemoryGrow:
		_, err := r.ReadByte()
		return err

	case OpI32Const:
		_, err := ReadS32(r)
		return err
	case OpI64Const:
		_, err := ReadS64(r)
		return err
	case OpF32Const:
		return skipBytes(r, 4)
	case OpF64Const:
		return skipBytes(r, 8)

	case OpRefNull:
		_, err := r.ReadByte()
		return err

	case OpPrefixMisc:
		return skipMiscImmediates(r)
	case OpPrefixSIMD:
		return skipSIMDImmediates(r)
	case OpPrefixAtomic:
		return skipAtomicImmediates(r)
	}

	// Memory loads and stores carry a memarg.
	if op >= 0x28 && op <= 0x3e {
		return skipMemArg(r)
	}

	// Everything else has no immediates.
	return nil
}

func skipMemArg(r *bytes.Reader) error {
	if _, err := ReadU32(r); err != nil { // align
		return err
	}
	_, err := ReadU32(r) // offset
	return err
}

func skipMiscImmediates(r *bytes.Reader) error {
	sub, err := ReadU32(r)
	if err != nil {
		return err
	}
	switch sub {
	case MiscMemoryInit:
		if _, err := ReadU32(r); err != nil {
			return err
		}
		_, err := r.ReadByte()
		return err
	case MiscDataDrop, MiscElemDrop, MiscTableGrow, MiscTableSize, MiscTableFill:
		_, err := ReadU32(r)
		return err
	case MiscMemoryCopy:
		return skipBytes(r, 2)
	case MiscMemoryFill:
		_, err := r.ReadByte()
		return err
	case MiscTableInit, MiscTableCopy:
		if _, err := ReadU32(r); err != nil {
			return err
		}
		_, err := ReadU32(r)
		return err
	default:
		if sub <= 7 { // saturating truncations
			return nil
		}
		return fmt.Errorf("unknown misc sub-opcode %d", sub)
	}
}

func skipSIMDImmediates(r *bytes.Reader) error {
	sub, err := ReadU32(r)
	if err != nil {
		return err
	}
	switch {
	case sub <= 11 || sub == 92 || sub == 93: // loads, splats, stores
		return skipMemArg(r)
	case sub == 12 || sub == 13: // v128.const, i8x16.shuffle
		return skipBytes(r, 16)
	case sub >= 21 && sub <= 34: // extract/replace lane
		_, err := r.ReadByte()
		return err
	case sub >= 84 && sub <= 91: // load/store lane
		if err := skipMemArg(r); err != nil {
			return err
		}
		_, err := r.ReadByte()
		return err
	default:
		return nil
	}
}

func skipAtomicImmediates(r *bytes.Reader) error {
	sub, err := ReadU32(r)
	if err != nil {
		return err
	}
	if sub == 3 { // atomic.fence
		_, err := r.ReadByte()
		return err
	}
	return skipMemArg(r)
}

func skipBytes(r *bytes.Reader, n int) error {
	if r.Len() < n {
		return io.ErrUnexpectedEOF
	}
	_, err := r.Seek(int64(n), io.SeekCurrent)
	return err
}
