package wasm

import (
	"bytes"
	"fmt"
	"io"
)

// IsModule reports whether data starts with the core module header.
func IsModule(data []byte) bool {
	return len(data) >= len(moduleHeader) && bytes.Equal(data[:len(moduleHeader)], moduleHeader)
}

// Decode parses a core module binary into its section model.
func Decode(data []byte) (*Module, error) {
	if !IsModule(data) {
		return nil, fmt.Errorf("wasm: not a core module (bad magic or version)")
	}

	m := &Module{}
	r := bytes.NewReader(data[len(moduleHeader):])

	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("wasm: section id: %w", err)
		}
		size, err := ReadU32(r)
		if err != nil {
			return nil, fmt.Errorf("wasm: section size: %w", err)
		}
		if uint32(r.Len()) < size {
			return nil, fmt.Errorf("wasm: section %d truncated: need %d bytes, have %d", id, size, r.Len())
		}

		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("wasm: section %d body: %w", id, err)
		}
		sr := bytes.NewReader(body)

		switch id {
		case SectionCustom:
			err = decodeCustom(sr, m)
		case SectionType:
			err = decodeTypes(sr, m)
		case SectionImport:
			err = decodeImports(sr, m)
		case SectionFunction:
			err = decodeFuncs(sr, m)
		case SectionTable:
			err = decodeTables(sr, m)
		case SectionMemory:
			err = decodeMemories(sr, m)
		case SectionGlobal:
			err = decodeGlobals(sr, m)
		case SectionExport:
			err = decodeExports(sr, m)
		case SectionStart:
			err = decodeStart(sr, m)
		case SectionElement:
			err = decodeElements(sr, m)
		case SectionCode:
			err = decodeCode(sr, m)
		case SectionData:
			err = decodeData(sr, m)
		case SectionDataCount:
			err = decodeDataCount(sr, m)
		default:
			return nil, fmt.Errorf("wasm: unknown section id %d", id)
		}
		if err != nil {
			return nil, fmt.Errorf("wasm: section %d: %w", id, err)
		}
	}

	if len(m.Funcs) != len(m.Code) {
		return nil, fmt.Errorf("wasm: function count %d does not match code count %d", len(m.Funcs), len(m.Code))
	}
	return m, nil
}

func decodeCustom(r *bytes.Reader, m *Module) error {
	name, err := readName(r)
	if err != nil {
		return err
	}
	data := make([]byte, r.Len())
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	m.CustomSections = append(m.CustomSections, CustomSection{Name: name, Data: data})
	return nil
}

func decodeTypes(r *bytes.Reader, m *Module) error {
	n, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, 0, n)
	for i := uint32(0); i < n; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != FuncTypeByte {
			return fmt.Errorf("type %d: unsupported form 0x%02x (only func types)", i, form)
		}
		ft, err := readFuncType(r)
		if err != nil {
			return fmt.Errorf("type %d: %w", i, err)
		}
		m.Types = append(m.Types, ft)
	}
	return nil
}

func readFuncType(r *bytes.Reader) (FuncType, error) {
	params, err := readValTypes(r)
	if err != nil {
		return FuncType{}, err
	}
	results, err := readValTypes(r)
	if err != nil {
		return FuncType{}, err
	}
	return FuncType{Params: params, Results: results}, nil
}

func readValTypes(r *bytes.Reader) ([]byte, error) {
	n, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	types := make([]byte, n)
	for i := range types {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if !isValType(b) {
			return nil, fmt.Errorf("invalid value type 0x%02x", b)
		}
		types[i] = b
	}
	return types, nil
}

func isValType(b byte) bool {
	switch b {
	case ValI32, ValI64, ValF32, ValF64, ValV128, ValFuncRef, ValExternRef:
		return true
	}
	return false
}

func decodeImports(r *bytes.Reader, m *Module) error {
	n, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Imports = make([]Import, 0, n)
	for i := uint32(0); i < n; i++ {
		module, err := readName(r)
		if err != nil {
			return err
		}
		name, err := readName(r)
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}

		desc := ImportDesc{Kind: kind}
		switch kind {
		case KindFunc:
			desc.TypeIdx, err = ReadU32(r)
		case KindTable:
			var t TableType
			t, err = readTableType(r)
			desc.Table = &t
		case KindMemory:
			var mt MemoryType
			mt, err = readMemoryType(r)
			desc.Memory = &mt
		case KindGlobal:
			var g GlobalType
			g, err = readGlobalType(r)
			desc.Global = &g
		default:
			return fmt.Errorf("import %d: unknown kind 0x%02x", i, kind)
		}
		if err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
		m.Imports = append(m.Imports, Import{Module: module, Name: name, Desc: desc})
	}
	return nil
}

func decodeFuncs(r *bytes.Reader, m *Module) error {
	n, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, n)
	for i := range m.Funcs {
		if m.Funcs[i], err = ReadU32(r); err != nil {
			return err
		}
	}
	return nil
}

func decodeTables(r *bytes.Reader, m *Module) error {
	n, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Tables = make([]TableType, 0, n)
	for i := uint32(0); i < n; i++ {
		t, err := readTableType(r)
		if err != nil {
			return fmt.Errorf("table %d: %w", i, err)
		}
		m.Tables = append(m.Tables, t)
	}
	return nil
}

func decodeMemories(r *bytes.Reader, m *Module) error {
	n, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Memories = make([]MemoryType, 0, n)
	for i := uint32(0); i < n; i++ {
		mt, err := readMemoryType(r)
		if err != nil {
			return fmt.Errorf("memory %d: %w", i, err)
		}
		m.Memories = append(m.Memories, mt)
	}
	return nil
}

func decodeGlobals(r *bytes.Reader, m *Module) error {
	n, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Globals = make([]Global, 0, n)
	for i := uint32(0); i < n; i++ {
		gt, err := readGlobalType(r)
		if err != nil {
			return fmt.Errorf("global %d: %w", i, err)
		}
		init, err := readInitExpr(r)
		if err != nil {
			return fmt.Errorf("global %d init: %w", i, err)
		}
		m.Globals = append(m.Globals, Global{Type: gt, Init: init})
	}
	return nil
}

func decodeExports(r *bytes.Reader, m *Module) error {
	n, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Exports = make([]Export, 0, n)
	for i := uint32(0); i < n; i++ {
		name, err := readName(r)
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		idx, err := ReadU32(r)
		if err != nil {
			return err
		}
		if kind > KindGlobal {
			return fmt.Errorf("export %q: unknown kind 0x%02x", name, kind)
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Idx: idx})
	}
	return nil
}

func decodeStart(r *bytes.Reader, m *Module) error {
	idx, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Start = &idx
	return nil
}

func decodeElements(r *bytes.Reader, m *Module) error {
	n, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Elements = make([]Element, 0, n)
	for i := uint32(0); i < n; i++ {
		flags, err := ReadU32(r)
		if err != nil {
			return err
		}
		if flags > 7 {
			return fmt.Errorf("element %d: unknown flags %d", i, flags)
		}
		e := Element{Flags: flags}

		// Active segments with explicit table index.
		if flags == 2 || flags == 6 {
			if e.TableIdx, err = ReadU32(r); err != nil {
				return err
			}
		}
		// Active segments carry an offset expression.
		if flags == 0 || flags == 2 || flags == 4 || flags == 6 {
			if e.Offset, err = readInitExpr(r); err != nil {
				return fmt.Errorf("element %d offset: %w", i, err)
			}
		}
		// Elemkind byte for func-index forms 1..3, reftype for expr forms 5..7.
		switch flags {
		case 1, 2, 3:
			if e.ElemKind, err = r.ReadByte(); err != nil {
				return err
			}
		case 5, 6, 7:
			if e.RefType, err = r.ReadByte(); err != nil {
				return err
			}
		}

		if flags <= 3 {
			cnt, err := ReadU32(r)
			if err != nil {
				return err
			}
			e.FuncIdxs = make([]uint32, cnt)
			for j := range e.FuncIdxs {
				if e.FuncIdxs[j], err = ReadU32(r); err != nil {
					return err
				}
			}
		} else {
			cnt, err := ReadU32(r)
			if err != nil {
				return err
			}
			e.Exprs = make([][]byte, cnt)
			for j := range e.Exprs {
				if e.Exprs[j], err = readInitExpr(r); err != nil {
					return fmt.Errorf("element %d expr %d: %w", i, j, err)
				}
			}
		}
		m.Elements = append(m.Elements, e)
	}
	return nil
}

func decodeCode(r *bytes.Reader, m *Module) error {
	n, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Code = make([]FuncBody, 0, n)
	for i := uint32(0); i < n; i++ {
		size, err := ReadU32(r)
		if err != nil {
			return err
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("code %d: %w", i, err)
		}

		br := bytes.NewReader(body)
		numLocals, err := ReadU32(br)
		if err != nil {
			return fmt.Errorf("code %d locals: %w", i, err)
		}
		locals := make([]LocalEntry, 0, numLocals)
		for j := uint32(0); j < numLocals; j++ {
			count, err := ReadU32(br)
			if err != nil {
				return err
			}
			vt, err := br.ReadByte()
			if err != nil {
				return err
			}
			locals = append(locals, LocalEntry{Count: count, ValType: vt})
		}

		code := make([]byte, br.Len())
		if _, err := io.ReadFull(br, code); err != nil {
			return err
		}
		m.Code = append(m.Code, FuncBody{Locals: locals, Code: code})
	}
	return nil
}

func decodeData(r *bytes.Reader, m *Module) error {
	n, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.Data = make([]DataSegment, 0, n)
	for i := uint32(0); i < n; i++ {
		flags, err := ReadU32(r)
		if err != nil {
			return err
		}
		if flags > 2 {
			return fmt.Errorf("data %d: unknown flags %d", i, flags)
		}
		d := DataSegment{Flags: flags}
		if flags == 2 {
			if d.MemIdx, err = ReadU32(r); err != nil {
				return err
			}
		}
		if flags == 0 || flags == 2 {
			if d.Offset, err = readInitExpr(r); err != nil {
				return fmt.Errorf("data %d offset: %w", i, err)
			}
		}
		size, err := ReadU32(r)
		if err != nil {
			return err
		}
		d.Init = make([]byte, size)
		if _, err := io.ReadFull(r, d.Init); err != nil {
			return err
		}
		m.Data = append(m.Data, d)
	}
	return nil
}

func decodeDataCount(r *bytes.Reader, m *Module) error {
	cnt, err := ReadU32(r)
	if err != nil {
		return err
	}
	m.DataCount = &cnt
	return nil
}

func readName(r *bytes.Reader) (string, error) {
	n, err := ReadU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readLimits(r *bytes.Reader) (Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	min, err := ReadU64(r)
	if err != nil {
		return Limits{}, err
	}
	l := Limits{Min: min, Shared: flags&0x02 != 0}
	if flags&0x01 != 0 {
		max, err := ReadU64(r)
		if err != nil {
			return Limits{}, err
		}
		l.Max = &max
	}
	return l, nil
}

func readTableType(r *bytes.Reader) (TableType, error) {
	elem, err := r.ReadByte()
	if err != nil {
		return TableType{}, err
	}
	if elem != ValFuncRef && elem != ValExternRef {
		return TableType{}, fmt.Errorf("invalid table element type 0x%02x", elem)
	}
	limits, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: elem, Limits: limits}, nil
}

func readMemoryType(r *bytes.Reader) (MemoryType, error) {
	limits, err := readLimits(r)
	if err != nil {
		return MemoryType{}, err
	}
	return MemoryType{Limits: limits}, nil
}

func readGlobalType(r *bytes.Reader) (GlobalType, error) {
	vt, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	if !isValType(vt) {
		return GlobalType{}, fmt.Errorf("invalid global value type 0x%02x", vt)
	}
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, fmt.Errorf("invalid mutability flag 0x%02x", mut)
	}
	return GlobalType{ValType: vt, Mutable: mut == 1}, nil
}

// readInitExpr copies a constant expression including its end opcode.
// Only the instruction forms valid in constant expressions are accepted.
func readInitExpr(r *bytes.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		op, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		buf.WriteByte(op)
		switch op {
		case OpEnd:
			return buf.Bytes(), nil
		case OpI32Const:
			v, err := ReadS32(r)
			if err != nil {
				return nil, err
			}
			WriteS32(&buf, v)
		case OpI64Const:
			v, err := ReadS64(r)
			if err != nil {
				return nil, err
			}
			WriteS64(&buf, v)
		case OpF32Const:
			v, err := ReadF32(r)
			if err != nil {
				return nil, err
			}
			WriteF32(&buf, v)
		case OpF64Const:
			v, err := ReadF64(r)
			if err != nil {
				return nil, err
			}
			WriteF64(&buf, v)
		case OpGlobalGet, OpRefFunc:
			idx, err := ReadU32(r)
			if err != nil {
				return nil, err
			}
			WriteU32(&buf, idx)
		case OpRefNull:
			ht, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			buf.WriteByte(ht)
		default:
			return nil, fmt.Errorf("opcode 0x%02x not allowed in constant expression", op)
		}
	}
}
