package wasm

import (
	"bytes"
	"testing"
)

func charge(globalIdx uint32, cost int64) []byte {
	var b bytes.Buffer
	writeCharge(&b, globalIdx, cost)
	return b.Bytes()
}

func TestInstrumentStraightLineBody(t *testing.T) {
	code := []byte{OpI32Const, 0x01, OpDrop, OpEnd}
	got, err := instrumentBody(code, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := append(charge(0, 2), code...)
	if !bytes.Equal(got, want) {
		t.Errorf("instrumented:\n got % x\nwant % x", got, want)
	}
}

func TestInstrumentLoopChargesEachIteration(t *testing.T) {
	// loop (local.get 0; br_if 0) end
	code := []byte{OpLoop, BlockTypeVoid, OpLocalGet, 0x00, OpBrIf, 0x00, OpEnd, OpEnd}
	got, err := instrumentBody(code, 3)
	if err != nil {
		t.Fatal(err)
	}
	var want bytes.Buffer
	want.Write(charge(3, 1)) // entry: the loop opcode itself
	want.Write(code[:2])     // loop header
	want.Write(charge(3, 2)) // per iteration: local.get + br_if
	want.Write(code[2:])
	if !bytes.Equal(got, want.Bytes()) {
		t.Errorf("instrumented:\n got % x\nwant % x", got, want.Bytes())
	}
}

func TestInstrumentNestedLoopsChargeOwnBodiesOnly(t *testing.T) {
	// loop (nop; loop (nop; nop; br_if 0) end) end
	code := []byte{
		OpLoop, BlockTypeVoid,
		OpNop,
		OpLoop, BlockTypeVoid,
		OpNop, OpNop, OpBrIf, 0x00,
		OpEnd,
		OpEnd,
		OpEnd,
	}
	got, err := instrumentBody(code, 0)
	if err != nil {
		t.Fatal(err)
	}
	var want bytes.Buffer
	want.Write(charge(0, 1)) // outer loop opcode
	want.Write(code[:2])
	want.Write(charge(0, 2)) // nop + inner loop opcode
	want.Write(code[2:5])
	want.Write(charge(0, 3)) // nop + nop + br_if
	want.Write(code[5:])
	if !bytes.Equal(got, want.Bytes()) {
		t.Errorf("instrumented:\n got % x\nwant % x", got, want.Bytes())
	}
}

func TestInstrumentBlockCountsTowardEntry(t *testing.T) {
	// block (nop) end: all three count toward the single entry charge.
	code := []byte{OpBlock, BlockTypeVoid, OpNop, OpEnd, OpEnd}
	got, err := instrumentBody(code, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := append(charge(0, 2), code...)
	if !bytes.Equal(got, want) {
		t.Errorf("instrumented:\n got % x\nwant % x", got, want)
	}
}

func TestInstrumentEmptyBody(t *testing.T) {
	code := []byte{OpEnd}
	got, err := instrumentBody(code, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, code) {
		t.Errorf("empty body changed: % x", got)
	}
}

func TestInstrumentFuelModule(t *testing.T) {
	m, err := Decode(addModule)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := InstrumentFuel(m)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Errorf("fuel global index = %d, want 0", idx)
	}
	if len(m.Globals) != 1 || m.Globals[0].Type.ValType != ValI64 || !m.Globals[0].Type.Mutable {
		t.Errorf("fuel global = %+v", m.Globals)
	}
	var found bool
	for _, e := range m.Exports {
		if e.Name == FuelExportName && e.Kind == KindGlobal && e.Idx == idx {
			found = true
		}
	}
	if !found {
		t.Errorf("fuel export missing: %+v", m.Exports)
	}
	// The result must still be a decodable module.
	if _, err := Decode(m.Encode()); err != nil {
		t.Fatalf("instrumented module does not decode: %v", err)
	}
	if !bytes.HasPrefix(m.Code[0].Code, charge(0, 3)) {
		t.Errorf("body not charged on entry: % x", m.Code[0].Code)
	}
}

func TestWalkCountsInstructions(t *testing.T) {
	body := []byte{OpLocalGet, 0x00, OpLocalGet, 0x01, 0x6a, OpEnd}
	var ops []byte
	err := Walk(body, func(off int, op byte) error {
		ops = append(ops, op)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{OpLocalGet, OpLocalGet, 0x6a, OpEnd}
	if !bytes.Equal(ops, want) {
		t.Errorf("opcodes = % x, want % x", ops, want)
	}
}

func TestWalkSkipsPrefixedImmediates(t *testing.T) {
	// memory.fill (fc 0b 00) then v128.const then end
	body := []byte{OpPrefixMisc, byte(MiscMemoryFill), 0x00, OpPrefixSIMD, 12}
	body = append(body, make([]byte, 16)...)
	body = append(body, OpEnd)
	var n int
	if err := Walk(body, func(off int, op byte) error { n++; return nil }); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("walked %d instructions, want 3", n)
	}
}
