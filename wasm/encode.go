package wasm

import "bytes"

// Encode serializes the module back into binary form. Sections are emitted
// in canonical order; custom sections are appended at the end.
func (m *Module) Encode() []byte {
	var out bytes.Buffer
	out.Write(moduleHeader)

	if len(m.Types) > 0 {
		var b bytes.Buffer
		WriteU32(&b, uint32(len(m.Types)))
		for _, t := range m.Types {
			b.WriteByte(FuncTypeByte)
			writeValTypes(&b, t.Params)
			writeValTypes(&b, t.Results)
		}
		writeSection(&out, SectionType, b.Bytes())
	}

	if len(m.Imports) > 0 {
		var b bytes.Buffer
		WriteU32(&b, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			writeName(&b, imp.Module)
			writeName(&b, imp.Name)
			b.WriteByte(imp.Desc.Kind)
			switch imp.Desc.Kind {
			case KindFunc:
				WriteU32(&b, imp.Desc.TypeIdx)
			case KindTable:
				writeTableType(&b, *imp.Desc.Table)
			case KindMemory:
				writeLimits(&b, imp.Desc.Memory.Limits)
			case KindGlobal:
				writeGlobalType(&b, *imp.Desc.Global)
			}
		}
		writeSection(&out, SectionImport, b.Bytes())
	}

	if len(m.Funcs) > 0 {
		var b bytes.Buffer
		WriteU32(&b, uint32(len(m.Funcs)))
		for _, idx := range m.Funcs {
			WriteU32(&b, idx)
		}
		writeSection(&out, SectionFunction, b.Bytes())
	}

	if len(m.Tables) > 0 {
		var b bytes.Buffer
		WriteU32(&b, uint32(len(m.Tables)))
		for _, t := range m.Tables {
			writeTableType(&b, t)
		}
		writeSection(&out, SectionTable, b.Bytes())
	}

	if len(m.Memories) > 0 {
		var b bytes.Buffer
		WriteU32(&b, uint32(len(m.Memories)))
		for _, mem := range m.Memories {
			writeLimits(&b, mem.Limits)
		}
		writeSection(&out, SectionMemory, b.Bytes())
	}

	if len(m.Globals) > 0 {
		var b bytes.Buffer
		WriteU32(&b, uint32(len(m.Globals)))
		for _, g := range m.Globals {
			writeGlobalType(&b, g.Type)
			b.Write(g.Init)
		}
		writeSection(&out, SectionGlobal, b.Bytes())
	}

	if len(m.Exports) > 0 {
		var b bytes.Buffer
		WriteU32(&b, uint32(len(m.Exports)))
		for _, e := range m.Exports {
			writeName(&b, e.Name)
			b.WriteByte(e.Kind)
			WriteU32(&b, e.Idx)
		}
		writeSection(&out, SectionExport, b.Bytes())
	}

	if m.Start != nil {
		var b bytes.Buffer
		WriteU32(&b, *m.Start)
		writeSection(&out, SectionStart, b.Bytes())
	}

	if len(m.Elements) > 0 {
		var b bytes.Buffer
		WriteU32(&b, uint32(len(m.Elements)))
		for _, e := range m.Elements {
			writeElement(&b, e)
		}
		writeSection(&out, SectionElement, b.Bytes())
	}

	if m.DataCount != nil {
		var b bytes.Buffer
		WriteU32(&b, *m.DataCount)
		writeSection(&out, SectionDataCount, b.Bytes())
	}

	if len(m.Code) > 0 {
		var b bytes.Buffer
		WriteU32(&b, uint32(len(m.Code)))
		for _, body := range m.Code {
			var fb bytes.Buffer
			WriteU32(&fb, uint32(len(body.Locals)))
			for _, l := range body.Locals {
				WriteU32(&fb, l.Count)
				fb.WriteByte(l.ValType)
			}
			fb.Write(body.Code)
			WriteU32(&b, uint32(fb.Len()))
			b.Write(fb.Bytes())
		}
		writeSection(&out, SectionCode, b.Bytes())
	}

	if len(m.Data) > 0 {
		var b bytes.Buffer
		WriteU32(&b, uint32(len(m.Data)))
		for _, d := range m.Data {
			WriteU32(&b, d.Flags)
			if d.Flags == 2 {
				WriteU32(&b, d.MemIdx)
			}
			if d.Flags == 0 || d.Flags == 2 {
				b.Write(d.Offset)
			}
			WriteU32(&b, uint32(len(d.Init)))
			b.Write(d.Init)
		}
		writeSection(&out, SectionData, b.Bytes())
	}

	for _, cs := range m.CustomSections {
		var b bytes.Buffer
		writeName(&b, cs.Name)
		b.Write(cs.Data)
		writeSection(&out, SectionCustom, b.Bytes())
	}

	return out.Bytes()
}

func writeSection(out *bytes.Buffer, id byte, data []byte) {
	out.WriteByte(id)
	WriteU32(out, uint32(len(data)))
	out.Write(data)
}

func writeName(b *bytes.Buffer, s string) {
	WriteU32(b, uint32(len(s)))
	b.WriteString(s)
}

func writeValTypes(b *bytes.Buffer, types []byte) {
	WriteU32(b, uint32(len(types)))
	b.Write(types)
}

func writeLimits(b *bytes.Buffer, l Limits) {
	var flags byte
	if l.Max != nil {
		flags |= 0x01
	}
	if l.Shared {
		flags |= 0x02
	}
	b.WriteByte(flags)
	WriteU64(b, l.Min)
	if l.Max != nil {
		WriteU64(b, *l.Max)
	}
}

func writeTableType(b *bytes.Buffer, t TableType) {
	b.WriteByte(t.ElemType)
	writeLimits(b, t.Limits)
}

func writeGlobalType(b *bytes.Buffer, g GlobalType) {
	b.WriteByte(g.ValType)
	if g.Mutable {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
}

func writeElement(b *bytes.Buffer, e Element) {
	WriteU32(b, e.Flags)
	if e.Flags == 2 || e.Flags == 6 {
		WriteU32(b, e.TableIdx)
	}
	if e.Flags == 0 || e.Flags == 2 || e.Flags == 4 || e.Flags == 6 {
		b.Write(e.Offset)
	}
	switch e.Flags {
	case 1, 2, 3:
		b.WriteByte(e.ElemKind)
	case 5, 6, 7:
		b.WriteByte(e.RefType)
	}
	if e.Flags <= 3 {
		WriteU32(b, uint32(len(e.FuncIdxs)))
		for _, idx := range e.FuncIdxs {
			WriteU32(b, idx)
		}
	} else {
		WriteU32(b, uint32(len(e.Exprs)))
		for _, expr := range e.Exprs {
			b.Write(expr)
		}
	}
}
