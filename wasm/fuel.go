package wasm

import (
	"bytes"
	"fmt"
	"sort"
)

// FuelExportName is the export under which the injected fuel counter
// global is published. The runtime reads and writes it around calls.
const FuelExportName = "wasmlite.fuel"

// InstrumentFuel rewrites every function body in m so that execution
// decrements a shared i64 fuel counter and traps when it goes negative.
// A mutable i64 global is appended to the module and exported under
// FuelExportName; its index is returned.
//
// Each function charges its straight-line instruction count once on
// entry. Each loop charges its per-iteration instruction count at the
// top of every iteration, so unbounded loops run out of fuel instead
// of running forever. Nested loops charge only their own bodies.
func InstrumentFuel(m *Module) (uint32, error) {
	idx := m.NumImported(KindGlobal) + uint32(len(m.Globals))
	m.Globals = append(m.Globals, Global{
		Type: GlobalType{ValType: ValI64, Mutable: true},
		Init: []byte{OpI64Const, 0x00, OpEnd},
	})
	m.Exports = append(m.Exports, Export{Name: FuelExportName, Kind: KindGlobal, Idx: idx})

	for i := range m.Code {
		code, err := instrumentBody(m.Code[i].Code, idx)
		if err != nil {
			return 0, fmt.Errorf("wasm: instrument function body %d: %w", i, err)
		}
		m.Code[i].Code = code
	}
	return idx, nil
}

// chargePoint marks a byte offset in the original body where a charge
// sequence for cost instructions must be spliced in.
type chargePoint struct {
	off  int
	cost int64
}

func instrumentBody(code []byte, fuelGlobal uint32) ([]byte, error) {
	type frame struct {
		isLoop   bool
		count    int64
		insertAt int
	}
	stack := []frame{{}} // base frame accumulates the entry cost

	var points []chargePoint
	r := bytes.NewReader(code)
	for r.Len() > 0 {
		op, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch op {
		case OpEnd:
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch {
			case len(stack) == 0:
				if top.count > 0 {
					points = append(points, chargePoint{0, top.count})
				}
			case top.isLoop:
				if top.count > 0 {
					points = append(points, chargePoint{top.insertAt, top.count})
				}
			default:
				// Block and if bodies count toward the enclosing
				// loop, or toward the entry charge.
				stack[len(stack)-1].count += top.count
			}
		case OpElse:
			// Stays inside the current if frame.
		case OpBlock, OpIf:
			stack[len(stack)-1].count++
			if err := skipImmediates(r, op); err != nil {
				return nil, err
			}
			stack = append(stack, frame{})
		case OpLoop:
			stack[len(stack)-1].count++
			if err := skipImmediates(r, op); err != nil {
				return nil, err
			}
			stack = append(stack, frame{isLoop: true, insertAt: len(code) - r.Len()})
		default:
			stack[len(stack)-1].count++
			if err := skipImmediates(r, op); err != nil {
				return nil, err
			}
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unbalanced control structures")
	}
	if len(points) == 0 {
		return code, nil
	}

	sort.Slice(points, func(i, j int) bool { return points[i].off < points[j].off })

	var out bytes.Buffer
	out.Grow(len(code) + len(points)*24)
	prev := 0
	for _, p := range points {
		out.Write(code[prev:p.off])
		writeCharge(&out, fuelGlobal, p.cost)
		prev = p.off
	}
	out.Write(code[prev:])
	return out.Bytes(), nil
}

// writeCharge emits the fuel check: subtract cost from the counter and
// trap if the balance went negative. The injected if/end pair is fully
// balanced, so label depths of surrounding branches are unaffected.
func writeCharge(buf *bytes.Buffer, fuelGlobal uint32, cost int64) {
	buf.WriteByte(OpGlobalGet)
	WriteU32(buf, fuelGlobal)
	buf.WriteByte(OpI64Const)
	WriteS64(buf, cost)
	buf.WriteByte(OpI64Sub)
	buf.WriteByte(OpGlobalSet)
	WriteU32(buf, fuelGlobal)
	buf.WriteByte(OpGlobalGet)
	WriteU32(buf, fuelGlobal)
	buf.WriteByte(OpI64Const)
	WriteS64(buf, 0)
	buf.WriteByte(OpI64LtS)
	buf.WriteByte(OpIf)
	buf.WriteByte(BlockTypeVoid)
	buf.WriteByte(OpUnreachable)
	buf.WriteByte(OpEnd)
}
