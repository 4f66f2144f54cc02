package wat

import (
	"bytes"
	"math/bits"
	"strings"

	"github.com/wasmlite/wasmlite/wasm"
)

// funcCompiler emits the bytecode of one function body (or constant
// expression). Locals and labels are per-function; everything else
// resolves through the module parser's index spaces.
type funcCompiler struct {
	p       *moduleParser
	locals  map[string]uint32
	nLocals uint32
	labels  []string
	buf     bytes.Buffer
}

func newFuncCompiler(p *moduleParser, paramNames []string, nParams int) *funcCompiler {
	c := &funcCompiler{p: p, locals: map[string]uint32{}, nLocals: uint32(nParams)}
	for i, name := range paramNames {
		if name != "" {
			c.locals[name] = uint32(i)
		}
	}
	return c
}

func (p *moduleParser) compileFunc(pf *pendingFunc) (wasm.FuncBody, error) {
	c := newFuncCompiler(p, pf.paramNames, pf.nParams)

	fields := pf.fields
	var locals []wasm.LocalEntry
	for len(fields) > 0 && fields[0].head() == "local" {
		types, name, err := parseValTypeList(fields[0])
		if err != nil {
			return wasm.FuncBody{}, err
		}
		if name != "" {
			if _, dup := c.locals[name]; dup {
				return wasm.FuncBody{}, fields[0].errf("duplicate local name %s", name)
			}
			c.locals[name] = c.nLocals
		}
		for _, t := range types {
			if n := len(locals); n > 0 && locals[n-1].ValType == t {
				locals[n-1].Count++
			} else {
				locals = append(locals, wasm.LocalEntry{Count: 1, ValType: t})
			}
		}
		c.nLocals += uint32(len(types))
		fields = fields[1:]
	}

	if err := c.instrs(fields); err != nil {
		return wasm.FuncBody{}, err
	}
	c.buf.WriteByte(wasm.OpEnd)
	return wasm.FuncBody{Locals: locals, Code: c.buf.Bytes()}, nil
}

// instrs compiles a sequence of instructions in flat or folded form.
func (c *funcCompiler) instrs(ns []node) error {
	i := 0
	for i < len(ns) {
		var err error
		i, err = c.instr(ns, i)
		if err != nil {
			return err
		}
	}
	return nil
}

// instr compiles one instruction starting at ns[i] and returns the
// position of the next one.
func (c *funcCompiler) instr(ns []node, i int) (int, error) {
	n := &ns[i]
	if n.isList() {
		return i + 1, c.folded(n)
	}
	if !n.isAtom() {
		return 0, n.errf("expected an instruction")
	}
	switch n.text {
	case "block", "loop", "if":
		return c.flatBlock(ns, i)
	case "else", "end":
		return 0, n.errf("unexpected %q", n.text)
	}
	enc, k, err := c.encodeInstr(n, n.text, ns[i+1:])
	if err != nil {
		return 0, err
	}
	c.buf.Write(enc)
	return i + 1 + k, nil
}

// folded compiles one parenthesized instruction: operands first, then
// the operator itself.
func (c *funcCompiler) folded(n *node) error {
	head := n.head()
	switch head {
	case "":
		return n.errf("expected an instruction")
	case "block", "loop":
		fields, label := optLabel(n.list[1:])
		bt, fields, err := c.blockType(fields)
		if err != nil {
			return err
		}
		op := byte(wasm.OpBlock)
		if head == "loop" {
			op = wasm.OpLoop
		}
		c.buf.WriteByte(op)
		c.buf.Write(bt)
		c.labels = append(c.labels, label)
		err = c.instrs(fields)
		c.labels = c.labels[:len(c.labels)-1]
		if err != nil {
			return err
		}
		c.buf.WriteByte(wasm.OpEnd)
		return nil
	case "if":
		return c.foldedIf(n)
	case "then", "else":
		return n.errf("%q outside of (if ...)", head)
	}

	enc, k, err := c.encodeInstr(n, head, n.list[1:])
	if err != nil {
		return err
	}
	if err := c.instrs(n.list[1+k:]); err != nil {
		return err
	}
	c.buf.Write(enc)
	return nil
}

func (c *funcCompiler) foldedIf(n *node) error {
	fields, label := optLabel(n.list[1:])
	bt, fields, err := c.blockType(fields)
	if err != nil {
		return err
	}

	thenAt := -1
	for i := range fields {
		if fields[i].head() == "then" {
			thenAt = i
			break
		}
	}
	if thenAt < 0 {
		return n.errf("folded if requires a (then ...) clause")
	}

	// Everything before (then ...) is the condition.
	if err := c.instrs(fields[:thenAt]); err != nil {
		return err
	}
	c.buf.WriteByte(wasm.OpIf)
	c.buf.Write(bt)
	c.labels = append(c.labels, label)
	defer func() { c.labels = c.labels[:len(c.labels)-1] }()

	if err := c.instrs(fields[thenAt].list[1:]); err != nil {
		return err
	}
	rest := fields[thenAt+1:]
	if len(rest) > 0 {
		if rest[0].head() != "else" || len(rest) > 1 {
			return n.errf("unexpected fields after (then ...)")
		}
		if body := rest[0].list[1:]; len(body) > 0 {
			c.buf.WriteByte(wasm.OpElse)
			if err := c.instrs(body); err != nil {
				return err
			}
		}
	}
	c.buf.WriteByte(wasm.OpEnd)
	return nil
}

// flatBlock compiles block/loop/if written in flat form, consuming the
// stream up to and including the matching end.
func (c *funcCompiler) flatBlock(ns []node, i int) (int, error) {
	name := ns[i].text
	var op byte
	switch name {
	case "block":
		op = wasm.OpBlock
	case "loop":
		op = wasm.OpLoop
	case "if":
		op = wasm.OpIf
	}
	i++

	label := ""
	if i < len(ns) && ns[i].isAtom() && isName(ns[i].text) {
		label = ns[i].text
		i++
	}
	var btFields []node
	for i < len(ns) {
		h := ns[i].head()
		if h != "type" && h != "param" && h != "result" {
			break
		}
		btFields = append(btFields, ns[i])
		i++
	}
	bt, rest, err := c.blockType(btFields)
	if err != nil {
		return 0, err
	}
	if len(rest) != 0 {
		return 0, rest[0].errf("unexpected field in block type")
	}
	c.buf.WriteByte(op)
	c.buf.Write(bt)
	c.labels = append(c.labels, label)

	for {
		if i >= len(ns) {
			return 0, ns[len(ns)-1].errf("%s is missing its end", name)
		}
		if ns[i].isAtom() {
			switch ns[i].text {
			case "end":
				c.buf.WriteByte(wasm.OpEnd)
				c.labels = c.labels[:len(c.labels)-1]
				i++
				if label != "" && i < len(ns) && ns[i].isAtom() && ns[i].text == label {
					i++
				}
				return i, nil
			case "else":
				if op != wasm.OpIf {
					return 0, ns[i].errf("else outside of if")
				}
				c.buf.WriteByte(wasm.OpElse)
				i++
				if label != "" && i < len(ns) && ns[i].isAtom() && ns[i].text == label {
					i++
				}
				continue
			}
		}
		i, err = c.instr(ns, i)
		if err != nil {
			return 0, err
		}
	}
}

func optLabel(fields []node) ([]node, string) {
	if len(fields) > 0 && fields[0].isAtom() && isName(fields[0].text) {
		return fields[1:], fields[0].text
	}
	return fields, ""
}

// blockType consumes the (type ...)/(param ...)/(result ...) prefix and
// encodes the block type: void, a single result shorthand, or an s33
// type index for multi-value shapes.
func (c *funcCompiler) blockType(fields []node) ([]byte, []node, error) {
	var sig wasm.FuncType
	var explicit *uint32
	if len(fields) > 0 && fields[0].head() == "type" {
		t := fields[0]
		if len(t.list) != 2 {
			return nil, nil, t.errf("type reference needs one index")
		}
		idx, err := c.p.resolveIdx(c.p.typeNames, &t.list[1], "type")
		if err != nil {
			return nil, nil, err
		}
		explicit = &idx
		fields = fields[1:]
	}
	for len(fields) > 0 && (fields[0].head() == "param" || fields[0].head() == "result") {
		types, _, err := parseValTypeList(fields[0])
		if err != nil {
			return nil, nil, err
		}
		if fields[0].head() == "param" {
			sig.Params = append(sig.Params, types...)
		} else {
			sig.Results = append(sig.Results, types...)
		}
		fields = fields[1:]
	}

	var b bytes.Buffer
	switch {
	case explicit != nil:
		wasm.WriteS64(&b, int64(*explicit))
	case len(sig.Params) == 0 && len(sig.Results) == 0:
		b.WriteByte(wasm.BlockTypeVoid)
	case len(sig.Params) == 0 && len(sig.Results) == 1:
		b.WriteByte(sig.Results[0])
	default:
		wasm.WriteS64(&b, int64(c.p.mod.AddType(sig)))
	}
	return b.Bytes(), fields, nil
}

// encodeInstr encodes a plain (non-block) instruction, resolving its
// immediates from args. It returns the instruction bytes and how many
// argument nodes the immediates consumed.
func (c *funcCompiler) encodeInstr(n *node, name string, args []node) ([]byte, int, error) {
	var b bytes.Buffer
	if info, ok := plainOps[name]; ok {
		k, err := c.plainImm(&b, n, info, args)
		if err != nil {
			return nil, 0, err
		}
		return b.Bytes(), k, nil
	}
	if mi, ok := miscOps[name]; ok {
		b.WriteByte(wasm.OpPrefixMisc)
		wasm.WriteU32(&b, mi.sub)
		k, err := c.miscImm(&b, n, mi, args)
		if err != nil {
			return nil, 0, err
		}
		return b.Bytes(), k, nil
	}
	return nil, 0, n.errf("unknown instruction %q", name)
}

func (c *funcCompiler) plainImm(b *bytes.Buffer, n *node, info opInfo, args []node) (int, error) {
	switch info.imm {
	case immNone:
		b.WriteByte(info.code)
		return 0, nil

	case immLabel:
		if len(args) == 0 {
			return 0, n.errf("missing label")
		}
		depth, err := c.labelDepth(&args[0])
		if err != nil {
			return 0, err
		}
		b.WriteByte(info.code)
		wasm.WriteU32(b, depth)
		return 1, nil

	case immBrTable:
		var depths []uint32
		k := 0
		for k < len(args) && args[k].isAtom() && isIndexLike(args[k].text) {
			d, err := c.labelDepth(&args[k])
			if err != nil {
				return 0, err
			}
			depths = append(depths, d)
			k++
		}
		if len(depths) == 0 {
			return 0, n.errf("br_table needs at least a default label")
		}
		b.WriteByte(info.code)
		wasm.WriteU32(b, uint32(len(depths)-1))
		for _, d := range depths {
			wasm.WriteU32(b, d)
		}
		return k, nil

	case immFunc:
		return c.oneIdx(b, n, info.code, args, c.p.funcNames, "func")
	case immLocal:
		if len(args) == 0 {
			return 0, n.errf("missing local index")
		}
		idx, err := c.localIdx(&args[0])
		if err != nil {
			return 0, err
		}
		b.WriteByte(info.code)
		wasm.WriteU32(b, idx)
		return 1, nil
	case immGlobal:
		return c.oneIdx(b, n, info.code, args, c.p.globalNames, "global")
	case immTable:
		return c.oneIdx(b, n, info.code, args, c.p.tableNames, "table")

	case immCallIndirect:
		tableIdx := uint32(0)
		k := 0
		if len(args) > 0 && args[0].isAtom() && isIndexLike(args[0].text) {
			idx, err := c.p.resolveIdx(c.p.tableNames, &args[0], "table")
			if err != nil {
				return 0, err
			}
			tableIdx = idx
			k = 1
		}
		typeIdx, _, rest, err := c.p.parseTypeUse(*n, args[k:])
		if err != nil {
			return 0, err
		}
		k += len(args[k:]) - len(rest)
		b.WriteByte(info.code)
		wasm.WriteU32(b, typeIdx)
		wasm.WriteU32(b, tableIdx)
		return k, nil

	case immMemIdx:
		memIdx := uint32(0)
		k := 0
		if len(args) > 0 && args[0].isAtom() && isIndexLike(args[0].text) {
			idx, err := c.p.resolveIdx(c.p.memNames, &args[0], "memory")
			if err != nil {
				return 0, err
			}
			memIdx = idx
			k = 1
		}
		b.WriteByte(info.code)
		wasm.WriteU32(b, memIdx)
		return k, nil

	case immMemarg:
		offset := uint64(0)
		align := info.align
		k := countMemargAtoms(args)
		for _, a := range args[:k] {
			s := a.text
			if strings.HasPrefix(s, "offset=") {
				v, err := parseUintLit(s[len("offset="):], 64)
				if err != nil {
					return 0, a.errf("invalid %s", s)
				}
				offset = v
				continue
			}
			v, err := parseUintLit(s[len("align="):], 32)
			if err != nil || v == 0 || v&(v-1) != 0 {
				return 0, a.errf("alignment must be a power of two")
			}
			align = uint32(bits.TrailingZeros64(v))
		}
		b.WriteByte(info.code)
		wasm.WriteU32(b, align)
		wasm.WriteU64(b, offset)
		return k, nil

	case immI32:
		if len(args) == 0 || !args[0].isAtom() {
			return 0, n.errf("i32.const needs a literal")
		}
		v, err := parseI32(args[0].text)
		if err != nil {
			return 0, args[0].errf("%v", err)
		}
		b.WriteByte(info.code)
		wasm.WriteS32(b, v)
		return 1, nil
	case immI64:
		if len(args) == 0 || !args[0].isAtom() {
			return 0, n.errf("i64.const needs a literal")
		}
		v, err := parseI64(args[0].text)
		if err != nil {
			return 0, args[0].errf("%v", err)
		}
		b.WriteByte(info.code)
		wasm.WriteS64(b, v)
		return 1, nil
	case immF32:
		if len(args) == 0 || !args[0].isAtom() {
			return 0, n.errf("f32.const needs a literal")
		}
		v, err := parseF32(args[0].text)
		if err != nil {
			return 0, args[0].errf("%v", err)
		}
		b.WriteByte(info.code)
		wasm.WriteF32(b, v)
		return 1, nil
	case immF64:
		if len(args) == 0 || !args[0].isAtom() {
			return 0, n.errf("f64.const needs a literal")
		}
		v, err := parseF64(args[0].text)
		if err != nil {
			return 0, args[0].errf("%v", err)
		}
		b.WriteByte(info.code)
		wasm.WriteF64(b, v)
		return 1, nil

	case immSelect:
		var types []byte
		k := 0
		for k < len(args) && args[k].head() == "result" {
			ts, _, err := parseValTypeList(args[k])
			if err != nil {
				return 0, err
			}
			types = append(types, ts...)
			k++
		}
		if len(types) == 0 {
			b.WriteByte(wasm.OpSelect)
		} else {
			b.WriteByte(wasm.OpSelectT)
			wasm.WriteU32(b, uint32(len(types)))
			b.Write(types)
		}
		return k, nil

	case immRefNull:
		if len(args) == 0 || !args[0].isAtom() {
			return 0, n.errf("ref.null needs a heap type")
		}
		var ht byte
		switch args[0].text {
		case "func", "funcref":
			ht = wasm.ValFuncRef
		case "extern", "externref":
			ht = wasm.ValExternRef
		default:
			return 0, args[0].errf("unknown heap type %q", args[0].text)
		}
		b.WriteByte(info.code)
		b.WriteByte(ht)
		return 1, nil
	}
	return 0, n.errf("unhandled immediate for %q", n.text)
}

// countMemargAtoms reports how many leading offset=/align= atoms appear.
func countMemargAtoms(args []node) int {
	k := 0
	for k < len(args) && args[k].isAtom() &&
		(strings.HasPrefix(args[k].text, "offset=") || strings.HasPrefix(args[k].text, "align=")) {
		k++
	}
	return k
}

func (c *funcCompiler) miscImm(b *bytes.Buffer, n *node, mi miscInfo, args []node) (int, error) {
	atoms := 0
	for atoms < len(args) && args[atoms].isAtom() && isIndexLike(args[atoms].text) {
		atoms++
	}
	switch mi.imm {
	case immNone:
		return 0, nil
	case immDataIdxMem:
		// memory.init memidx? dataidx
		mem, data := uint32(0), uint32(0)
		var err error
		switch atoms {
		case 1:
			data, err = c.p.resolveIdx(c.p.dataNames, &args[0], "data")
		case 2:
			if mem, err = c.p.resolveIdx(c.p.memNames, &args[0], "memory"); err == nil {
				data, err = c.p.resolveIdx(c.p.dataNames, &args[1], "data")
			}
		default:
			return 0, n.errf("memory.init needs a data segment index")
		}
		if err != nil {
			return 0, err
		}
		wasm.WriteU32(b, data)
		wasm.WriteU32(b, mem)
		return atoms, nil
	case immDataIdx:
		if atoms < 1 {
			return 0, n.errf("data.drop needs a data segment index")
		}
		idx, err := c.p.resolveIdx(c.p.dataNames, &args[0], "data")
		if err != nil {
			return 0, err
		}
		wasm.WriteU32(b, idx)
		return 1, nil
	case immTwoZeros:
		b.Write([]byte{0x00, 0x00})
		return 0, nil
	case immOneZero:
		b.WriteByte(0x00)
		return 0, nil
	case immElemTable:
		// table.init tableidx? elemidx
		table, elem := uint32(0), uint32(0)
		var err error
		switch atoms {
		case 1:
			elem, err = c.p.resolveIdx(c.p.elemNames, &args[0], "elem")
		case 2:
			if table, err = c.p.resolveIdx(c.p.tableNames, &args[0], "table"); err == nil {
				elem, err = c.p.resolveIdx(c.p.elemNames, &args[1], "elem")
			}
		default:
			return 0, n.errf("table.init needs an element segment index")
		}
		if err != nil {
			return 0, err
		}
		wasm.WriteU32(b, elem)
		wasm.WriteU32(b, table)
		return atoms, nil
	case immElemIdx:
		if atoms < 1 {
			return 0, n.errf("elem.drop needs an element segment index")
		}
		idx, err := c.p.resolveIdx(c.p.elemNames, &args[0], "elem")
		if err != nil {
			return 0, err
		}
		wasm.WriteU32(b, idx)
		return 1, nil
	case immTablePair:
		dst, src := uint32(0), uint32(0)
		var err error
		if atoms >= 2 {
			if dst, err = c.p.resolveIdx(c.p.tableNames, &args[0], "table"); err == nil {
				src, err = c.p.resolveIdx(c.p.tableNames, &args[1], "table")
			}
			if err != nil {
				return 0, err
			}
			atoms = 2
		} else {
			atoms = 0
		}
		wasm.WriteU32(b, dst)
		wasm.WriteU32(b, src)
		return atoms, nil
	case immTableIdx:
		idx := uint32(0)
		k := 0
		if atoms >= 1 {
			var err error
			if idx, err = c.p.resolveIdx(c.p.tableNames, &args[0], "table"); err != nil {
				return 0, err
			}
			k = 1
		}
		wasm.WriteU32(b, idx)
		return k, nil
	}
	return 0, n.errf("unhandled immediate")
}

func (c *funcCompiler) oneIdx(b *bytes.Buffer, n *node, code byte, args []node, space map[string]uint32, what string) (int, error) {
	if len(args) == 0 {
		return 0, n.errf("missing %s index", what)
	}
	idx, err := c.p.resolveIdx(space, &args[0], what)
	if err != nil {
		return 0, err
	}
	b.WriteByte(code)
	wasm.WriteU32(b, idx)
	return 1, nil
}

func (c *funcCompiler) localIdx(n *node) (uint32, error) {
	if !n.isAtom() {
		return 0, n.errf("expected a local index")
	}
	if isName(n.text) {
		idx, ok := c.locals[n.text]
		if !ok {
			return 0, n.errf("unknown local %s", n.text)
		}
		return idx, nil
	}
	idx, ok := parseIndex(n.text)
	if !ok {
		return 0, n.errf("invalid local index %q", n.text)
	}
	return idx, nil
}

// labelDepth resolves a label immediate: a literal depth or a $name
// searched innermost-first.
func (c *funcCompiler) labelDepth(n *node) (uint32, error) {
	if !n.isAtom() {
		return 0, n.errf("expected a label")
	}
	if isName(n.text) {
		for i := len(c.labels) - 1; i >= 0; i-- {
			if c.labels[i] == n.text {
				return uint32(len(c.labels) - 1 - i), nil
			}
		}
		return 0, n.errf("unknown label %s", n.text)
	}
	depth, ok := parseIndex(n.text)
	if !ok {
		return 0, n.errf("invalid label %q", n.text)
	}
	return depth, nil
}

// isIndexLike reports whether an atom can denote an index: a $name or
// a numeric literal. Keywords like "end" are neither.
func isIndexLike(s string) bool {
	if isName(s) {
		return true
	}
	_, ok := parseIndex(s)
	return ok
}
